// Package header locates the header row of a raw spreadsheet grid and
// maps columns to budget roles. Best-effort: a failed detection is a
// low-confidence result for the caller to route to manual mapping,
// never an error.
package header

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/obradata/obrataxo/internal/normtext"
)

// Role is a budget column role.
type Role string

const (
	RoleDescription Role = "descricao"
	RoleUnit        Role = "unidade"
	RoleQuantity    Role = "quantidade"
	RoleUnitPrice   Role = "preco_unitario"
	RoleTotalPrice  Role = "preco_total"
)

// Detection methods.
const (
	MethodKeywordScan      = "keyword_scan"
	MethodContentInference = "content_inference"
)

// NoHeaderRow is the HeaderRow sentinel meaning data starts at row 0.
const NoHeaderRow = -1

// roleKeywords are the header spellings seen in real budget sheets.
var roleKeywords = map[Role][]string{
	RoleDescription: {
		"descricao", "item", "itens", "servico", "produto", "nome",
		"especificacao", "material", "insumo", "discriminacao",
	},
	RoleUnit: {
		"un", "und", "unid", "unidade", "u.m", "um", "un. med", "un_med", "medida",
	},
	RoleQuantity: {
		"qtd", "qtde", "quantidade", "quantidades", "quant", "qnt", "qte", "volume",
	},
	RoleUnitPrice: {
		"preco unit", "preco unitario", "p.u", "pu", "valor unit", "vl unit", "unitario",
	},
	RoleTotalPrice: {
		"preco total", "total", "valor total", "vl total", "subtotal",
		"parcial", "valor", "montante",
	},
}

// rolePriority is the fixed order columns are claimed in.
var rolePriority = []Role{
	RoleDescription, RoleQuantity, RoleUnit, RoleUnitPrice, RoleTotalPrice,
}

// maxRowScore is the theoretical keyword-scan maximum
// (1.0 + 1.0 + 3*0.7) used to normalize row scores.
const maxRowScore = 4.1

// knownUnits are unit abbreviations used by content inference.
var knownUnits = map[string]struct{}{
	"m": {}, "m2": {}, "m3": {}, "kg": {}, "un": {}, "h": {},
	"vb": {}, "cj": {}, "l": {}, "par": {}, "pc": {}, "sc": {}, "gl": {},
}

// Options configures Detect.
type Options struct {
	MaxScanRows    int
	ScoreThreshold float64
}

// DefaultOptions mirrors the interactive defaults.
func DefaultOptions() Options {
	return Options{MaxScanRows: 50, ScoreThreshold: 0.55}
}

// Detection is the outcome of header detection over one grid.
type Detection struct {
	HeaderRow int          `json:"header_row"`
	Columns   map[int]Role `json:"columns"`
	Score     float64      `json:"score"`
	Method    string       `json:"method"`
}

// Detect scans the first MaxScanRows rows for a header-like row; when
// no row scores above the threshold it falls back to inferring column
// roles from content shape. Never panics on empty or jagged grids.
func Detect(grid [][]string, opts Options) Detection {
	if opts.MaxScanRows <= 0 {
		opts.MaxScanRows = DefaultOptions().MaxScanRows
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = DefaultOptions().ScoreThreshold
	}

	det := Detection{HeaderRow: NoHeaderRow, Method: MethodKeywordScan}
	if len(grid) == 0 {
		return det
	}

	limit := min(opts.MaxScanRows, len(grid))
	bestRow, bestScore := 0, -1.0
	for i := range limit {
		if score := rowScore(grid[i]); score > bestScore {
			bestScore = score
			bestRow = i
		}
	}
	det.Score = bestScore

	if bestScore >= opts.ScoreThreshold {
		det.HeaderRow = bestRow
		det.Columns = mapColumns(grid[bestRow])
		return det
	}

	// Fallback: treat every row as data and infer roles from shape.
	if inferred := inferColumns(grid); inferred != nil {
		det.HeaderRow = NoHeaderRow
		det.Columns = inferred
		det.Score = 0.6
		det.Method = MethodContentInference
		return det
	}

	zap.L().Debug("header: detection failed",
		zap.Float64("best_score", bestScore),
		zap.Int("rows", len(grid)),
	)
	return det
}

// rowScore measures header-likeness of one row: each role found adds
// its weight, normalized against the theoretical maximum.
func rowScore(cells []string) float64 {
	found := map[Role]struct{}{}
	score := 0.0

	for _, cell := range cells {
		norm := normtext.NormalizeWith(cell, normtext.Options{StripPunct: false})
		if norm == "" {
			continue
		}
		for _, role := range rolePriority {
			if !cellMatchesRole(norm, role) {
				continue
			}
			if _, seen := found[role]; !seen {
				score += roleWeight(role)
				found[role] = struct{}{}
			}
			break
		}
	}

	return min(score/maxRowScore, 1.0)
}

func roleWeight(role Role) float64 {
	if role == RoleDescription || role == RoleQuantity {
		return 1.0
	}
	return 0.7
}

func cellMatchesRole(norm string, role Role) bool {
	for _, kw := range roleKeywords[role] {
		if strings.Contains(norm, kw) || strings.Contains(kw, norm) {
			return true
		}
	}
	return false
}

// mapColumns assigns header cells to roles. A cell may be a candidate
// for several roles ("Preço Unit" contains the unit keyword "un");
// roles claim their first free candidate column in fixed priority
// order, each role at most one column and each column at most one role.
func mapColumns(cells []string) map[int]Role {
	candidates := map[Role][]int{}
	for col, cell := range cells {
		norm := normtext.NormalizeWith(cell, normtext.Options{StripPunct: false})
		if norm == "" {
			continue
		}
		for _, role := range rolePriority {
			if cellMatchesRole(norm, role) {
				candidates[role] = append(candidates[role], col)
			}
		}
	}

	used := map[int]struct{}{}
	mapping := map[int]Role{}
	for _, role := range rolePriority {
		for _, col := range candidates[role] {
			if _, taken := used[col]; taken {
				continue
			}
			mapping[col] = role
			used[col] = struct{}{}
			break
		}
	}
	return mapping
}

// numericValue parses a cell as a number, tolerating comma decimals.
func numericValue(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Retry without thousand-separator stripping.
		v, err = strconv.ParseFloat(strings.TrimSpace(cell), 64)
	}
	return v, err == nil
}
