package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_KeywordScan(t *testing.T) {
	grid := [][]string{
		{"Item", "Descrição", "Unid", "Qtd", "Preço Unit", "Total"},
		{"1.1", "Concreto fck 30", "m3", "12,5", "450,00", "5625,00"},
		{"1.2", "Areia média lavada", "m3", "8", "120,00", "960,00"},
	}

	det := Detect(grid, DefaultOptions())

	assert.Equal(t, 0, det.HeaderRow)
	assert.Equal(t, MethodKeywordScan, det.Method)
	assert.GreaterOrEqual(t, det.Score, 0.55)

	roles := map[Role]bool{}
	for _, role := range det.Columns {
		roles[role] = true
	}
	assert.True(t, roles[RoleDescription], "mapping must include a description column")
	assert.True(t, roles[RoleQuantity], "mapping must include a quantity column")
	assert.True(t, roles[RoleUnit])
}

func TestDetect_UnitKeywordDoesNotSwallowUnitPrice(t *testing.T) {
	// "Preço Unit" also contains the unit keyword "un"; the unit role
	// must claim "Unid" and leave the column to the unit-price role.
	grid := [][]string{
		{"Item", "Descrição", "Unid", "Qtd", "Preço Unit", "Total"},
		{"1.1", "Concreto fck 30", "m3", "12,5", "450,00", "5625,00"},
	}

	det := Detect(grid, DefaultOptions())
	require.Equal(t, 0, det.HeaderRow)

	assert.Equal(t, RoleUnit, det.Columns[2])
	assert.Equal(t, RoleQuantity, det.Columns[3])
	assert.Equal(t, RoleUnitPrice, det.Columns[4])
	assert.Equal(t, RoleTotalPrice, det.Columns[5])
}

func TestDetect_HeaderNotOnFirstRow(t *testing.T) {
	grid := [][]string{
		{"ORÇAMENTO SINTÉTICO", "", "", ""},
		{"Obra: Residencial XYZ", "", "", ""},
		{"Descrição", "Unidade", "Quantidade", "Valor Total"},
		{"Concreto fck 25", "m3", "10", "4500"},
	}

	det := Detect(grid, DefaultOptions())
	assert.Equal(t, 2, det.HeaderRow)
	assert.Equal(t, MethodKeywordScan, det.Method)
}

func TestDetect_RolePriorityClaimsEachColumnOnce(t *testing.T) {
	grid := [][]string{
		{"Descrição", "Qtd", "Unid", "Unitário", "Total"},
	}

	det := Detect(grid, DefaultOptions())
	require.Equal(t, 0, det.HeaderRow)

	colsPerRole := map[Role]int{}
	for _, role := range det.Columns {
		colsPerRole[role]++
	}
	for role, n := range colsPerRole {
		assert.Equal(t, 1, n, "role %s mapped to %d columns", role, n)
	}
}

func TestDetect_ContentInferenceFallback(t *testing.T) {
	// No header at all: data starts at row 0.
	grid := [][]string{
		{"Escavação manual de vala em solo de primeira categoria", "m3", "15,00", "32,50"},
		{"Concreto estrutural fck 30 bombeado em vigas e pilares", "m3", "8,20", "480,00"},
		{"Alvenaria de tijolo cerâmico furado 9x19x19", "m2", "120,00", "65,00"},
		{"Chapisco aplicado em alvenaria com argamassa 1:3", "m2", "118,00", "8,75"},
	}

	det := Detect(grid, DefaultOptions())

	assert.Equal(t, NoHeaderRow, det.HeaderRow)
	assert.Equal(t, MethodContentInference, det.Method)
	assert.Equal(t, RoleDescription, det.Columns[0])
	assert.Equal(t, RoleUnit, det.Columns[1])
	assert.Equal(t, RoleQuantity, det.Columns[2])
	assert.Equal(t, RoleUnitPrice, det.Columns[3])
}

func TestDetect_TotalFailureReturnsEmptyMapping(t *testing.T) {
	grid := [][]string{
		{"a", "b"},
		{"c", "d"},
	}

	det := Detect(grid, DefaultOptions())
	assert.Empty(t, det.Columns)
	assert.Equal(t, NoHeaderRow, det.HeaderRow)
	assert.Less(t, det.Score, 0.55)
}

func TestDetect_EmptyGrid(t *testing.T) {
	assert.NotPanics(t, func() {
		det := Detect(nil, DefaultOptions())
		assert.Equal(t, NoHeaderRow, det.HeaderRow)
		assert.Empty(t, det.Columns)

		det = Detect([][]string{}, Options{})
		assert.Empty(t, det.Columns)

		det = Detect([][]string{{}, {}}, DefaultOptions())
		assert.Empty(t, det.Columns)
	})
}

func TestRowScore_CapsAtOne(t *testing.T) {
	row := []string{"descricao", "quantidade", "unidade", "preco unitario", "preco total", "valor", "subtotal"}
	assert.LessOrEqual(t, rowScore(row), 1.0)
}
