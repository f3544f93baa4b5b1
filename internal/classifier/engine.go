// Package classifier resolves budget line descriptions against the
// compiled rule repository: an exact priority-ordered pass first, a
// fuzzy scoring fallback for uncertain cases.
package classifier

import (
	"strings"

	"go.uber.org/zap"

	"github.com/obradata/obrataxo/internal/normtext"
	"github.com/obradata/obrataxo/internal/taxonomy"
)

// Result is the outcome of classifying one (description, unit) pair.
// Exactly one shape holds: exact match (confidence 100), uncertain
// fuzzy suggestion (confidence = heuristic score), or unknown.
type Result struct {
	Nickname   string `json:"apelido,omitempty"`
	Domain     string `json:"dominio,omitempty"`
	Unknown    bool   `json:"desconhecido"`
	Uncertain  bool   `json:"incerto"`
	Confidence int    `json:"confianca"`
}

// Row is the minimal record shape the engine consumes.
type Row struct {
	Description string
	Unit        string
}

// Config holds the fuzzy-fallback scoring knobs. The weights were
// tuned empirically against real budgets; treat them as configuration.
type Config struct {
	UnitBonus  int // canonical unit equality
	MustHit    int // per matched inclusion token, over all groups
	ExcludeHit int // per matched exclusion token, negative
	Threshold  int // minimum score for an uncertain suggestion
	Workers    int // parallel batch workers; <=1 runs sequentially
}

// DefaultConfig returns the reference scoring configuration.
func DefaultConfig() Config {
	return Config{
		UnitBonus:  10,
		MustHit:    2,
		ExcludeHit: -5,
		Threshold:  8,
		Workers:    1,
	}
}

// Engine classifies rows against an immutable repository. Safe for
// concurrent use; it never mutates the repository.
type Engine struct {
	repo *taxonomy.Repository
	cfg  Config
}

// New creates an Engine over repo. A zero-value Config selects
// DefaultConfig; a Config with any field set is used exactly as given.
func New(repo *taxonomy.Repository, cfg Config) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Engine{repo: repo, cfg: cfg}
}

// Classify resolves a single description and unit of measure. Empty or
// malformed inputs never fail; they degrade to an unknown result.
func (e *Engine) Classify(description, unit string) Result {
	desc := normtext.Normalize(description)
	canonical := e.repo.Units.Resolve(unit)

	// Exact pass: first matching, non-excluded rule in priority order.
	for i := range e.repo.Rules {
		rule := &e.repo.Rules[i]
		if rule.Unit != canonical {
			continue
		}
		if excluded(rule, desc) {
			continue
		}
		if matchesAllGroups(rule, desc) {
			return Result{
				Nickname:   rule.Nickname,
				Domain:     rule.Domain,
				Confidence: 100,
			}
		}
	}

	return e.fuzzy(desc, canonical)
}

// fuzzy scores every rule and returns the best suggestion above the
// threshold, or an unknown result carrying the best non-negative score.
func (e *Engine) fuzzy(desc, canonical string) Result {
	var best *taxonomy.Rule
	bestScore := 0

	for i := range e.repo.Rules {
		rule := &e.repo.Rules[i]
		score := e.score(rule, desc, canonical)
		if best == nil || score > bestScore {
			best = rule
			bestScore = score
		}
	}

	if best != nil && bestScore >= e.cfg.Threshold {
		zap.L().Debug("classifier: fuzzy suggestion",
			zap.String("apelido", best.Nickname),
			zap.Int("score", bestScore),
		)
		return Result{
			Nickname:   best.Nickname,
			Domain:     best.Domain,
			Uncertain:  true,
			Confidence: bestScore,
		}
	}

	return Result{Unknown: true, Confidence: max(bestScore, 0)}
}

func (e *Engine) score(rule *taxonomy.Rule, desc, canonical string) int {
	score := 0
	if rule.Unit == canonical && canonical != "" {
		score += e.cfg.UnitBonus
	}
	for _, group := range rule.Must {
		for _, tok := range group {
			if strings.Contains(desc, tok) {
				score += e.cfg.MustHit
			}
		}
	}
	for _, group := range rule.Exclude {
		for _, tok := range group {
			if containsToken(desc, tok) {
				score += e.cfg.ExcludeHit
			}
		}
	}
	return score
}

// excluded reports whether any exclude-group token appears in desc.
// Exclusion uses whole-token matching (space padded) to avoid vetoing
// on incidental substrings; inclusion stays substring-based.
func excluded(rule *taxonomy.Rule, desc string) bool {
	for _, group := range rule.Exclude {
		for _, tok := range group {
			if containsToken(desc, tok) {
				return true
			}
		}
	}
	return false
}

// matchesAllGroups checks AND across must groups, OR within a group.
func matchesAllGroups(rule *taxonomy.Rule, desc string) bool {
	for _, group := range rule.Must {
		satisfied := false
		for _, tok := range group {
			if strings.Contains(desc, tok) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return len(rule.Must) > 0
}

func containsToken(desc, tok string) bool {
	return strings.Contains(" "+desc+" ", " "+tok+" ")
}
