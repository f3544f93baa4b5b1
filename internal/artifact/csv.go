package artifact

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// csvColumns is the fixed output column order of the catalog artifact.
var csvColumns = []string{
	"apelido",
	"nome",
	"categoria",
	"grupo",
	"unidade_base",
	"unidades_aceitas",
	"sinonimos",
	"alternativas",
	"spec_json",
	"tags",
	"origem_arquivo",
	"origem_caminho",
	"origem_hash",
	"origem_mtime",
	"status_item",
}

// WriteCSV writes the validated catalog to path, sorted by categoria,
// grupo, apelido so reruns over the same sources diff cleanly.
func WriteCSV(path string, records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Categoria != b.Categoria {
			return a.Categoria < b.Categoria
		}
		if a.Grupo != b.Grupo {
			return a.Grupo < b.Grupo
		}
		return a.Apelido < b.Apelido
	})

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return eris.Wrap(err, "artifact: write header")
	}
	for _, rec := range sorted {
		if err := w.Write(rec.row()); err != nil {
			return eris.Wrapf(err, "artifact: write record %s", rec.Apelido)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "artifact: flush csv")
	}
	return f.Close()
}

func (r Record) row() []string {
	return []string{
		r.Apelido,
		r.Nome,
		r.Categoria,
		r.Grupo,
		r.UnidadeBase,
		strings.Join(r.UnidadesAceitas, "|"),
		strings.Join(r.Sinonimos, "|"),
		strings.Join(r.Alternativas, "|"),
		r.SpecJSON,
		strings.Join(r.Tags, "|"),
		r.OrigemArquivo,
		r.OrigemCaminho,
		r.OrigemHash,
		strconv.FormatInt(r.OrigemMtime, 10),
		r.Status,
	}
}
