package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obradata/obrataxo/internal/classifier"
	"github.com/obradata/obrataxo/internal/header"
)

func TestCellAt(t *testing.T) {
	row := []string{"a", "b"}
	assert.Equal(t, "a", cellAt(row, 0))
	assert.Equal(t, "", cellAt(row, 5))
	assert.Equal(t, "", cellAt(row, -1))
}

func TestColumnNamed(t *testing.T) {
	row := []string{"desc", "unid", "tax_desconhecido"}
	assert.Equal(t, 2, columnNamed(row, "tax_desconhecido"))
	assert.Equal(t, -1, columnNamed(row, "inexistente"))
}

func TestFormatColumns(t *testing.T) {
	assert.Equal(t, "-", formatColumns(nil))
	got := formatColumns(map[int]header.Role{
		2: header.RoleUnit,
		0: header.RoleDescription,
	})
	assert.Equal(t, "0=descricao 2=unidade", got)
}

func TestWriteClassifiedAppendsColumns(t *testing.T) {
	grid := [][]string{
		{"Descrição", "Unid."},
		{"Concreto usinado", "m3"},
		{"Item misterioso", "vb"},
	}
	results := []classifier.Result{
		{Nickname: "concreto_fck25", Domain: "estrutura", Confidence: 100},
		{Unknown: true},
	}

	path := filepath.Join(t.TempDir(), "saida.csv")
	require.NoError(t, writeClassified(path, grid, 1, results))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "tax_apelido", rows[0][2])
	assert.Equal(t, "tax_incerto", rows[0][6])
	assert.Equal(t, "concreto_fck25", rows[1][2])
	assert.Equal(t, "100", rows[1][4])
	assert.Equal(t, "false", rows[1][5])
	assert.Equal(t, "true", rows[2][5])
	assert.Equal(t, "", rows[2][2])
}

func TestWriteClassifiedHeaderlessInputGetsSyntheticHeader(t *testing.T) {
	// content-inference inputs start at row 0; the output must still
	// carry a header so the unknowns command can find its columns
	grid := [][]string{
		{"Concreto usinado", "m3"},
		{"Item misterioso", "vb"},
	}
	results := []classifier.Result{
		{Nickname: "concreto_fck25", Domain: "estrutura", Confidence: 100},
		{Unknown: true},
	}

	path := filepath.Join(t.TempDir(), "saida.csv")
	require.NoError(t, writeClassified(path, grid, 0, results))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"col_0", "col_1", "tax_apelido", "tax_dominio",
		"tax_confianca", "tax_desconhecido", "tax_incerto"}, rows[0])
	assert.Equal(t, 5, columnNamed(rows[0], "tax_desconhecido"))
	assert.Equal(t, "false", rows[1][5])
	assert.Equal(t, "true", rows[2][5])
}
