package unknowns

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_CountsAndSorts(t *testing.T) {
	items := []Item{
		{Description: "Cimento CP II", Normalized: "cimento cp ii", Unit: "kg", Unknown: true},
		{Description: "CIMENTO CP-II", Normalized: "cimento cp ii", Unit: "kg", Unknown: true},
		{Description: "Areia", Normalized: "areia", Unit: "m3", Unknown: true},
		{Description: "Tijolo 8 furos", Normalized: "tijolo 8 furos", Unit: "un", Unknown: false},
	}

	got := Group(items)
	require.Len(t, got, 2)

	assert.Equal(t, "cimento cp ii", got[0].Description)
	assert.Equal(t, "kg", got[0].Unit)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, []string{"Cimento CP II", "CIMENTO CP-II"}, got[0].Examples)

	assert.Equal(t, "areia", got[1].Description)
	assert.Equal(t, 1, got[1].Count)
}

func TestGroup_NormalizesWhenMissing(t *testing.T) {
	items := []Item{
		{Description: "Chapisco 1:3 Aplicado", Unit: "m2", Unknown: true},
		{Description: "CHAPISCO 1:3 aplicado", Unit: "m2", Unknown: true},
	}

	got := Group(items)
	require.Len(t, got, 1)
	assert.Equal(t, "chapisco 1:3 aplicado", got[0].Description)
	assert.Equal(t, 2, got[0].Count)
}

func TestGroup_ExamplesCappedAtThree(t *testing.T) {
	var items []Item
	for _, orig := range []string{"Areia A", "Areia B", "Areia C", "Areia D"} {
		items = append(items, Item{Description: orig, Normalized: "areia", Unit: "m3", Unknown: true})
	}

	got := Group(items)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Count)
	assert.Len(t, got[0].Examples, 3)
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil))
	assert.Empty(t, Group([]Item{{Description: "x", Unit: "un", Unknown: false}}))
}

func TestWriteJSONL(t *testing.T) {
	aggs := Group([]Item{
		{Description: "Cimento", Normalized: "cimento", Unit: "kg", Unknown: true},
		{Description: "Areia", Normalized: "areia", Unit: "m3", Unknown: true},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, aggs))

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.Len(t, lines, 2)

	assert.NotEmpty(t, lines[0]["batch_id"])
	assert.Equal(t, lines[0]["batch_id"], lines[1]["batch_id"])
	assert.Equal(t, "cimento", lines[0]["descricao_norm"])
	assert.EqualValues(t, 1, lines[0]["ocorrencias"])
}

func TestExport(t *testing.T) {
	dir := t.TempDir()

	path, err := Export(dir, []Item{
		{Description: "Cimento CP II", Normalized: "cimento cp ii", Unit: "kg", Unknown: true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.True(t, strings.HasPrefix(path, dir))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "cimento cp ii")

	// No unresolved items: no file, no error.
	path, err = Export(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}
