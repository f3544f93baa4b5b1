package taxonomy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// UnitsDir is the reserved subdirectory holding unit-definition files.
// It is processed first and skipped by the rule walk.
const UnitsDir = "unidades"

// containerKeys are the known root keys under which rule files nest
// their entry lists.
var containerKeys = []string{"regras", "itens", "items", "data", "registros"}

// skippedDirs are never descended into when walking rule sources.
var skippedDirs = map[string]struct{}{
	UnitsDir:   {},
	"testdata": {},
	"fixtures": {},
}

// FlattenEntries maps any of the known YAML source shapes into a
// uniform list of record maps: a bare list, a list under a container
// key, or a mapping keyed by nickname.
func FlattenEntries(doc any) []map[string]any {
	switch v := doc.(type) {
	case []any:
		return mapsOf(v)
	case map[string]any:
		for _, key := range containerKeys {
			if inner, ok := v[key].([]any); ok {
				return mapsOf(inner)
			}
		}
		// Mapping keyed by nickname: { "cimento": {unit: kg, ...}, ... }
		var out []map[string]any
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "meta" {
				continue
			}
			entry, ok := v[k].(map[string]any)
			if !ok {
				return nil
			}
			rec := make(map[string]any, len(entry)+1)
			for ek, ev := range entry {
				rec[ek] = ev
			}
			if _, has := rec["apelido"]; !has {
				rec["apelido"] = k
			}
			out = append(out, rec)
		}
		return out
	}
	return nil
}

func mapsOf(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// docDomain extracts the file-level domain label, defaulting to "geral".
func docDomain(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return "geral"
	}
	meta, ok := m["meta"].(map[string]any)
	if !ok {
		return "geral"
	}
	if d := stringOf(meta["dominio"]); d != "" {
		return d
	}
	return "geral"
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// groupsOf coerces a YAML value into token groups (list of lists of
// strings). A flat list of scalars is treated as a single group.
func groupsOf(v any) [][]string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}

	if _, nested := list[0].([]any); !nested {
		// Flat list: one group of alternatives.
		if g := tokensOf(list); len(g) > 0 {
			return [][]string{g}
		}
		return nil
	}

	var groups [][]string
	for _, e := range list {
		inner, ok := e.([]any)
		if !ok {
			continue
		}
		groups = append(groups, tokensOf(inner))
	}
	return groups
}

func tokensOf(list []any) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		if s := stringOf(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SourceFiles lists rule-definition files under root, skipping the
// reserved unit directory and fixture directories. Lexical walk order
// is the discovery-order priority tie-break.
func SourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if _, skip := skippedDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isYAML(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: walk %s", root)
	}
	return files, nil
}

func isYAML(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoadDoc reads and parses a single YAML file into a generic document.
func LoadDoc(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", path)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(err, "taxonomy: parse %s", path)
	}
	return doc, nil
}
