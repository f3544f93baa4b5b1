// Package unknowns groups unresolved line items into a deduplicated,
// counted curation queue for taxonomy maintenance.
package unknowns

import (
	"sort"

	"github.com/obradata/obrataxo/internal/normtext"
)

// Item is one classified row as seen by the aggregator.
type Item struct {
	Description string // original, pre-normalization text
	Normalized  string // optional; derived from Description when empty
	Unit        string
	Unknown     bool
}

// maxExamples bounds the original-text exemplars kept per aggregate.
const maxExamples = 3

// Aggregate is a deduplicated cluster of unresolved items.
type Aggregate struct {
	Description string   `json:"descricao_norm"`
	Unit        string   `json:"unidade"`
	Count       int      `json:"ocorrencias"`
	Examples    []string `json:"exemplos"`
}

// Group filters unknown-flagged items, groups them by (normalized
// description, unit) and returns aggregates sorted by occurrence count
// descending. No unresolved items is an empty result, not an error.
func Group(items []Item) []Aggregate {
	type key struct{ desc, unit string }

	byKey := map[key]*Aggregate{}
	var order []key

	for _, it := range items {
		if !it.Unknown {
			continue
		}
		norm := it.Normalized
		if norm == "" {
			norm = normtext.Normalize(it.Description)
		}
		k := key{desc: norm, unit: it.Unit}

		agg, ok := byKey[k]
		if !ok {
			agg = &Aggregate{Description: norm, Unit: it.Unit}
			byKey[k] = agg
			order = append(order, k)
		}
		agg.Count++
		addExample(agg, it.Description)
	}

	out := make([]Aggregate, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Description < out[j].Description
	})
	return out
}

func addExample(agg *Aggregate, original string) {
	if original == "" || len(agg.Examples) >= maxExamples {
		return
	}
	for _, ex := range agg.Examples {
		if ex == original {
			return
		}
	}
	agg.Examples = append(agg.Examples, original)
}
