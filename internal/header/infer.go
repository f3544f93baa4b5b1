package header

import (
	"regexp"
	"strings"

	"github.com/obradata/obrataxo/internal/normtext"
)

// inferSampleRows caps how many rows feed column statistics.
const inferSampleRows = 50

var codePattern = regexp.MustCompile(`^[a-z0-9./\-]+$`)

type columnStats struct {
	count        int
	numericCount int
	codeCount    int
	totalLen     int
	distinct     map[string]struct{}
}

func (c *columnStats) meanLen() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.totalLen) / float64(c.count)
}

func (c *columnStats) numericShare() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.numericCount) / float64(c.count)
}

func (c *columnStats) codeShare() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.codeCount) / float64(c.count)
}

func (c *columnStats) uniqueRatio() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(len(c.distinct)) / float64(c.count)
}

// inferColumns derives column roles from content shape when no header
// row was found. Returns nil unless a description column could be
// inferred — the signal that the grid is usable without a header.
func inferColumns(grid [][]string) map[int]Role {
	stats := collectStats(grid)
	if len(stats) == 0 {
		return nil
	}

	used := map[int]struct{}{}
	mapping := map[int]Role{}

	// Description: longest non-numeric, non-code column, penalizing
	// low-cardinality category columns.
	bestDesc, bestDescScore := -1, 0.0
	for col, st := range stats {
		if st.count == 0 || st.numericShare() > 0.8 || st.meanLen() <= 15 {
			continue
		}
		if st.codeShare() > 0.7 && st.meanLen() <= 25 {
			continue
		}
		score := st.meanLen() * (0.5 + 0.5*st.uniqueRatio())
		if score > bestDescScore {
			bestDescScore = score
			bestDesc = col
		}
	}
	if bestDesc < 0 {
		return nil
	}
	mapping[bestDesc] = RoleDescription
	used[bestDesc] = struct{}{}

	// Unit: highest match-rate against known abbreviations, short cells.
	bestUnit, bestUnitScore := -1, 0.5
	for col, st := range stats {
		if _, taken := used[col]; taken || st.count == 0 {
			continue
		}
		score := unitMatchRate(grid, col) * 2.0
		if st.meanLen() < 6 {
			score += 0.5
		}
		if score > bestUnitScore {
			bestUnitScore = score
			bestUnit = col
		}
	}
	if bestUnit >= 0 {
		mapping[bestUnit] = RoleUnit
		used[bestUnit] = struct{}{}
	}

	// Numeric columns in encounter order: quantity, then unit price.
	numericRoles := []Role{RoleQuantity, RoleUnitPrice}
	for col := 0; col < len(stats) && len(numericRoles) > 0; col++ {
		st, ok := stats[col]
		if !ok {
			continue
		}
		if _, taken := used[col]; taken {
			continue
		}
		if st.count > 0 && st.numericShare() > 0.7 {
			mapping[col] = numericRoles[0]
			numericRoles = numericRoles[1:]
			used[col] = struct{}{}
		}
	}

	return mapping
}

func collectStats(grid [][]string) map[int]*columnStats {
	stats := map[int]*columnStats{}
	limit := min(inferSampleRows, len(grid))

	for i := range limit {
		for col, cell := range grid[i] {
			st, ok := stats[col]
			if !ok {
				st = &columnStats{distinct: map[string]struct{}{}}
				stats[col] = st
			}
			val := strings.TrimSpace(cell)
			if val == "" {
				continue
			}
			st.count++
			st.totalLen += len(val)
			st.distinct[strings.ToLower(val)] = struct{}{}
			if _, ok := numericValue(val); ok {
				st.numericCount++
			}
			if codePattern.MatchString(strings.ToLower(val)) {
				st.codeCount++
			}
		}
	}
	return stats
}

func unitMatchRate(grid [][]string, col int) float64 {
	limit := min(inferSampleRows, len(grid))
	seen, hits := 0, 0
	for i := range limit {
		if col >= len(grid[i]) {
			continue
		}
		val := normtext.Normalize(grid[i][col])
		if val == "" {
			continue
		}
		seen++
		if _, ok := knownUnits[val]; ok {
			hits++
		}
	}
	if seen == 0 {
		return 0
	}
	return float64(hits) / float64(seen)
}
