package artifact

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadRecordsInjectsProvenance(t *testing.T) {
	root := t.TempDir()
	writeCatalogFile(t, root, "estrutura/concreto.yaml", `
- apelido: concreto_fck25
  nome: Concreto usinado FCK 25
  unit: m3
`)

	records, err := ReadRecords(root)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Empty(t, rec.LoadErr)
	assert.Equal(t, "concreto.yaml", rec.file)
	assert.Equal(t, "estrutura/concreto.yaml", rec.path)
	assert.NotEmpty(t, rec.hash)
	assert.NotZero(t, rec.mtime)
	assert.Equal(t, "estrutura", rec.fields["categoria"])
}

func TestReadRecordsParseFailureBecomesErrorRecord(t *testing.T) {
	root := t.TempDir()
	writeCatalogFile(t, root, "quebrado.yaml", "apelido: [unterminated")

	records, err := ReadRecords(root)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].LoadErr)
}

func TestValidateRecords(t *testing.T) {
	raws := []RawRecord{
		{
			fields: map[string]any{
				"apelido":   "concreto_fck25",
				"nome":      "Concreto usinado FCK 25",
				"categoria": "estrutura",
				"sinonimos": "concreto usinado|concreto bombeado|concreto usinado",
				"tags":      []any{"estrutural", "concreto"},
				"spec_json": map[string]any{"fck": 25, "abatimento": "10cm"},
			},
			file: "concreto.yaml",
			path: "estrutura/concreto.yaml",
		},
		{
			fields: map[string]any{"nome": "Sem apelido"},
			file:   "solto.yaml",
			path:   "solto.yaml",
		},
		{
			fields: map[string]any{"apelido": "concreto_fck25", "nome": "Duplicado"},
			file:   "dup.yaml",
			path:   "outra/dup.yaml",
		},
		{LoadErr: "yaml: line 2: mapping values are not allowed", file: "ruim.yaml", path: "ruim.yaml"},
	}

	clean, report := ValidateRecords(raws)
	require.Len(t, clean, 1)

	rec := clean[0]
	assert.Equal(t, "concreto_fck25", rec.Apelido)
	assert.Equal(t, "ok", rec.Status)
	assert.Equal(t, []string{"concreto bombeado", "concreto usinado"}, rec.Sinonimos)
	assert.Equal(t, []string{"concreto", "estrutural"}, rec.Tags)
	// spec_json comes back key-sorted
	assert.Equal(t, `{"abatimento":"10cm","fck":25}`, rec.SpecJSON)

	assert.Equal(t, 4, report.Stats.TotalRead)
	assert.Equal(t, 1, report.Stats.OK)
	assert.Equal(t, 3, report.Stats.Error)
	assert.Equal(t, 0, report.Stats.Warn)
	assert.True(t, report.HasErrors())
	assert.Equal(t, "estrutura/concreto.yaml", report.Collisions["concreto_fck25"])
}

func TestValidateRecordsInvalidSpecJSONString(t *testing.T) {
	raws := []RawRecord{{
		fields: map[string]any{
			"apelido":   "areia_media",
			"nome":      "Areia media lavada",
			"spec_json": "{not json",
		},
		file: "areia.yaml",
		path: "agregados/areia.yaml",
	}}

	clean, report := ValidateRecords(raws)
	require.Len(t, clean, 1)
	assert.Equal(t, "{not json", clean[0].SpecJSON)
	assert.Equal(t, 1, report.Stats.Warn)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0].Msg, "spec_json")
}

func TestWriteCSVDeterministicOrder(t *testing.T) {
	records := []Record{
		{Apelido: "b_item", Nome: "B", Categoria: "zeta", Grupo: "g", Status: "ok"},
		{Apelido: "a_item", Nome: "A", Categoria: "alfa", Grupo: "g", Status: "ok",
			Sinonimos: []string{"um", "dois"}, OrigemMtime: 1700000000},
		{Apelido: "c_item", Nome: "C", Categoria: "alfa", Grupo: "g", Status: "ok"},
	}

	path := filepath.Join(t.TempDir(), "catalogo.csv")
	require.NoError(t, WriteCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, "a_item", rows[1][0])
	assert.Equal(t, "c_item", rows[2][0])
	assert.Equal(t, "b_item", rows[3][0])
	assert.Equal(t, "um|dois", rows[1][6])
	assert.Equal(t, "1700000000", rows[1][13])
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relatorio.json")
	report := &Report{
		Collisions: map[string]string{"dup": "a.yaml"},
		Errors:     []Issue{{Item: "dup", Msg: "duplicate"}},
		Warnings:   []Issue{},
		Stats:      Stats{TotalRead: 2, OK: 1, Error: 1},
	}
	require.NoError(t, WriteReport(path, report))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, report.Stats, decoded.Stats)
	assert.Equal(t, "a.yaml", decoded.Collisions["dup"])

	// keys appear in alphabetical order in the serialized form
	text := string(b)
	assert.Less(t, strings.Index(text, `"collisions"`), strings.Index(text, `"errors"`))
	assert.Less(t, strings.Index(text, `"errors"`), strings.Index(text, `"stats"`))
	assert.Less(t, strings.Index(text, `"stats"`), strings.Index(text, `"warnings"`))
}
