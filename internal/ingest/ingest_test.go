package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	// map iteration order does not matter for these tests; each test
	// only inspects sheets by name or uses a single sheet
	for name, rows := range sheets {
		sh, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, row := range rows {
			r := sh.AddRow()
			for _, cell := range row {
				r.AddCell().SetString(cell)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "orcamento.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadWorkbookAllSheets(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Planilha1": {
			{"Descrição", "Unid.", "Quant."},
			{"Concreto usinado FCK 25", "m3", "120"},
		},
		"Vazia": {},
	})

	sheets, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	byName := map[string]Sheet{}
	for _, sh := range sheets {
		byName[sh.Name] = sh
	}

	main := byName["Planilha1"]
	assert.Equal(t, "ok", main.Status)
	require.Len(t, main.Grid, 2)
	assert.Equal(t, "Concreto usinado FCK 25", main.Grid[1][0])

	assert.Equal(t, "empty", byName["Vazia"].Status)
	assert.Empty(t, byName["Vazia"].Grid)
}

func TestReadXLSXByName(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Orçamento": {{"Descrição"}, {"Areia média"}},
	})

	grid, err := ReadXLSX(path, "Orçamento")
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, "Areia média", grid[1][0])

	_, err = ReadXLSX(path, "Inexistente")
	require.Error(t, err)
}

func TestReadXLSXTrimsTrailingBlankRows(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Plan": {{"Descrição"}, {"Cimento"}, {"", ""}, {""}},
	})

	grid, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Len(t, grid, 2)
}

func TestReadCSVSniffsSemicolon(t *testing.T) {
	input := "Descrição;Unid.;Quant.\nConcreto usinado;m3;120\n"
	grid, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, []string{"Descrição", "Unid.", "Quant."}, grid[0])
	assert.Equal(t, "m3", grid[1][1])
}

func TestReadCSVCommaDefault(t *testing.T) {
	input := "desc,unit\nAreia média, m3 \n"
	grid, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, "m3", grid[1][1])
}

func TestStreamCSVContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestReadCSVRaggedRows(t *testing.T) {
	input := "a,b,c\nonly one\nx,y\n"
	grid, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: ','})
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Len(t, grid[1], 1)
}

func TestReadWorkbookMissingFile(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestOpenRealFileRoundTrip(t *testing.T) {
	// guard against the writer emitting files the reader cannot open
	path := writeWorkbook(t, map[string][][]string{"S": {{"x"}}})
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
