package taxonomy

import (
	"github.com/obradata/obrataxo/internal/normtext"
)

// UnitMap maps normalized unit spellings to their canonical unit.
// Canonical units are self-referential.
type UnitMap map[string]string

// Resolve normalizes raw and looks it up; unmapped spellings pass
// through normalized. It never fails — an unknown unit simply fails to
// match any rule later, which is the intended signal.
func (m UnitMap) Resolve(raw string) string {
	n := normtext.Normalize(raw)
	if canonical, ok := m[n]; ok {
		return canonical
	}
	return n
}

// IsCanonical reports whether u is a canonical unit (maps to itself).
func (m UnitMap) IsCanonical(u string) bool {
	return m[u] == u && u != ""
}

// add registers a synonym for a canonical unit, keeping the canonical
// self-referential.
func (m UnitMap) add(canonical, synonym string) {
	c := normtext.Normalize(canonical)
	s := normtext.Normalize(synonym)
	if c == "" || s == "" {
		return
	}
	m[c] = c
	m[s] = c
}
