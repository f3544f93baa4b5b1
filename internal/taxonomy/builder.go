package taxonomy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/obradata/obrataxo/internal/normtext"
)

// Build compiles every rule source under root into an immutable
// Repository. Unit definitions in the reserved subdirectory load
// first. Parse failures degrade to recorded warnings; duplicate
// nicknames and unresolvable canonical units abort the whole build.
func Build(root string) (*Repository, error) {
	repo := &Repository{
		Units: UnitMap{},
		Report: Report{
			PerUnit: map[string]int{},
		},
	}

	if err := loadUnits(filepath.Join(root, UnitsDir), repo); err != nil {
		return nil, err
	}

	files, err := SourceFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		repo.Report.Warnings = append(repo.Report.Warnings,
			fmt.Sprintf("no rule sources found under %s", root))
	}

	seen := map[string]string{} // nickname -> source file
	var fatal []string

	for _, path := range files {
		rel := relTo(root, path)
		doc, err := LoadDoc(path)
		if err != nil {
			repo.Report.Warnings = append(repo.Report.Warnings,
				fmt.Sprintf("%s: skipped: %v", rel, eris.Cause(err)))
			zap.L().Warn("taxonomy: rule source skipped",
				zap.String("file", rel), zap.Error(err))
			continue
		}
		repo.Report.FilesRead++

		domain := docDomain(doc)
		for i, rec := range FlattenEntries(doc) {
			rule, problems := compileRule(rec, repo.Units)
			if rule == nil {
				for _, p := range problems {
					repo.Report.Warnings = append(repo.Report.Warnings,
						fmt.Sprintf("%s entry %d: %s", rel, i, p))
				}
				continue
			}
			// Non-rejecting problems (e.g. include/exclude overlap).
			for _, p := range problems {
				repo.Report.Warnings = append(repo.Report.Warnings,
					fmt.Sprintf("%s [%s]: %s", rel, rule.Nickname, p))
			}

			if !repo.Units.IsCanonical(rule.Unit) {
				fatal = append(fatal, fmt.Sprintf(
					"%s [%s]: unit %q does not resolve to a canonical unit",
					rel, rule.Nickname, rule.Unit))
				continue
			}

			if first, dup := seen[rule.Nickname]; dup {
				repo.Report.Duplicates = append(repo.Report.Duplicates, rule.Nickname)
				fatal = append(fatal, fmt.Sprintf(
					"%s [%s]: duplicate nickname (first seen in %s)",
					rel, rule.Nickname, first))
				continue
			}
			seen[rule.Nickname] = rel

			rule.Domain = domain
			rule.SourceFile = rel
			rule.SourceOrder = len(repo.Rules)
			repo.Rules = append(repo.Rules, *rule)
			repo.Report.PerUnit[rule.Unit]++
		}
	}

	if len(fatal) > 0 {
		return nil, eris.Errorf("taxonomy: build aborted: %s", strings.Join(fatal, "; "))
	}

	repo.Report.RuleCount = len(repo.Rules)
	repo.Report.UnitCount = canonicalCount(repo.Units)

	zap.L().Info("taxonomy: repository built",
		zap.Int("rules", repo.Report.RuleCount),
		zap.Int("units", repo.Report.UnitCount),
		zap.Int("files", repo.Report.FilesRead),
		zap.Int("warnings", len(repo.Report.Warnings)),
	)
	return repo, nil
}

// compileRule normalizes one raw record into a Rule. A nil rule means
// the record was rejected; the returned problems explain why. A
// non-nil rule may still carry non-fatal problems.
func compileRule(rec map[string]any, units UnitMap) (*Rule, []string) {
	nickname := stringOf(rec["apelido"])
	rawUnit := stringOf(rec["unit"])

	var problems []string
	if nickname == "" {
		problems = append(problems, "missing apelido")
	}
	if rawUnit == "" {
		problems = append(problems, "missing unit")
	}

	must := normalizeGroups(groupsOf(rec["contem"]))
	if len(must) == 0 {
		problems = append(problems, "contem groups empty after normalization")
	}
	for _, g := range must {
		if len(g) == 0 {
			problems = append(problems, "contem group empty after normalization")
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}

	exclude := normalizeGroups(groupsOf(rec["ignorar"]))

	if overlap := tokenOverlap(must, exclude); len(overlap) > 0 {
		problems = append(problems, fmt.Sprintf(
			"tokens in both contem and ignorar: %s", strings.Join(overlap, ", ")))
	}

	return &Rule{
		Nickname: nickname,
		Unit:     units.Resolve(rawUnit),
		Must:     must,
		Exclude:  exclude,
	}, problems
}

func normalizeGroups(groups [][]string) [][]string {
	var out [][]string
	for _, g := range groups {
		norm := make([]string, 0, len(g))
		for _, tok := range g {
			if n := normtext.Normalize(tok); n != "" {
				norm = append(norm, n)
			}
		}
		out = append(out, norm)
	}
	return out
}

func tokenOverlap(must, exclude [][]string) []string {
	inMust := map[string]struct{}{}
	for _, g := range must {
		for _, tok := range g {
			inMust[tok] = struct{}{}
		}
	}
	var overlap []string
	for _, g := range exclude {
		for _, tok := range g {
			if _, ok := inMust[tok]; ok {
				overlap = append(overlap, tok)
			}
		}
	}
	sort.Strings(overlap)
	return overlap
}

// loadUnits reads unit-definition files. Both the rules-style shape
// (canonical unit plus synonym groups) and a flat canonical-to-synonyms
// mapping are accepted.
func loadUnits(dir string, repo *Repository) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			repo.Report.Warnings = append(repo.Report.Warnings,
				fmt.Sprintf("unit directory %s not found", dir))
			return nil
		}
		return eris.Wrapf(err, "taxonomy: read unit dir %s", dir)
	}

	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		doc, err := LoadDoc(path)
		if err != nil {
			repo.Report.Warnings = append(repo.Report.Warnings,
				fmt.Sprintf("%s: skipped: %v", e.Name(), eris.Cause(err)))
			continue
		}
		addUnitDoc(doc, repo.Units)
	}
	return nil
}

func addUnitDoc(doc any, units UnitMap) {
	// Rules-style: entries with a canonical unit and synonym groups.
	entries := FlattenEntries(doc)
	rulesStyle := false
	for _, rec := range entries {
		if stringOf(rec["unit"]) != "" {
			rulesStyle = true
			break
		}
	}
	if rulesStyle {
		for _, rec := range entries {
			canonical := stringOf(rec["unit"])
			if canonical == "" {
				continue
			}
			units.add(canonical, canonical)
			for _, group := range groupsOf(rec["contem"]) {
				for _, syn := range group {
					units.add(canonical, syn)
				}
			}
		}
		return
	}

	// Flat shape: { unidades: { m3: [m³, metros cubicos] } } or the
	// mapping at the document root.
	m, ok := doc.(map[string]any)
	if !ok {
		return
	}
	if inner, ok := m["unidades"].(map[string]any); ok {
		m = inner
	}
	for canonical, syns := range m {
		list, ok := syns.([]any)
		if !ok {
			continue
		}
		units.add(canonical, canonical)
		for _, syn := range tokensOf(list) {
			units.add(canonical, syn)
		}
	}
}

func canonicalCount(units UnitMap) int {
	n := 0
	for k, v := range units {
		if k == v {
			n++
		}
	}
	return n
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}
