package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Issue is one validation finding tied to a record and its source.
type Issue struct {
	File string `json:"file,omitempty"`
	Item string `json:"item,omitempty"`
	Msg  string `json:"msg"`
	Path string `json:"path,omitempty"`
}

// Stats counts validation outcomes.
type Stats struct {
	Error     int `json:"error"`
	OK        int `json:"ok"`
	TotalRead int `json:"total_read"`
	Warn      int `json:"warn"`
}

// Report is the sanity report written next to the CSV artifact.
// Fields are ordered so the serialized form is key-sorted.
type Report struct {
	Collisions map[string]string `json:"collisions"`
	Errors     []Issue           `json:"errors"`
	Stats      Stats             `json:"stats"`
	Warnings   []Issue           `json:"warnings"`
}

// HasErrors reports whether any record failed validation.
func (r *Report) HasErrors() bool {
	return r.Stats.Error > 0
}

// ValidateRecords checks raw records and returns the clean typed set
// plus the sanity report. Records with a load error, missing required
// fields or a duplicate apelido are counted as errors and dropped;
// warnings keep their record.
func ValidateRecords(raws []RawRecord) ([]Record, *Report) {
	report := &Report{
		Collisions: map[string]string{},
		Errors:     []Issue{},
		Warnings:   []Issue{},
		Stats:      Stats{TotalRead: len(raws)},
	}

	seen := map[string]string{} // apelido -> source path
	var clean []Record

	for _, raw := range raws {
		if raw.LoadErr != "" {
			report.Errors = append(report.Errors, Issue{
				File: raw.file,
				Path: raw.path,
				Msg:  fmt.Sprintf("yaml load error: %s", raw.LoadErr),
			})
			report.Stats.Error++
			continue
		}

		apelido := fieldString(raw.fields, "apelido")
		nome := fieldString(raw.fields, "nome")

		var missing []string
		if apelido == "" {
			missing = append(missing, "apelido")
		}
		if nome == "" {
			missing = append(missing, "nome")
		}
		if len(missing) > 0 {
			ref := apelido
			if ref == "" {
				ref = nome
			}
			if ref == "" {
				ref = "anonymous item"
			}
			report.Errors = append(report.Errors, Issue{
				Item: ref,
				File: raw.file,
				Path: raw.path,
				Msg:  fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
			})
			report.Stats.Error++
			continue
		}

		if first, dup := seen[apelido]; dup {
			report.Collisions[apelido] = first
			report.Errors = append(report.Errors, Issue{
				Item: apelido,
				File: raw.file,
				Path: raw.path,
				Msg:  fmt.Sprintf("duplicate apelido %q, first seen in %s", apelido, first),
			})
			report.Stats.Error++
			continue
		}
		seen[apelido] = raw.path

		rec := Record{
			Apelido:         apelido,
			Nome:            nome,
			Categoria:       fieldString(raw.fields, "categoria"),
			Grupo:           fieldString(raw.fields, "grupo"),
			UnidadeBase:     fieldString(raw.fields, "unidade_base"),
			UnidadesAceitas: fieldList(raw.fields, "unidades_aceitas"),
			Sinonimos:       fieldList(raw.fields, "sinonimos"),
			Alternativas:    fieldList(raw.fields, "alternativas"),
			Tags:            fieldList(raw.fields, "tags"),
			OrigemArquivo:   raw.file,
			OrigemCaminho:   raw.path,
			OrigemHash:      raw.hash,
			OrigemMtime:     raw.mtime,
			Status:          "ok",
		}

		spec, warn := normalizeSpecJSON(raw.fields["spec_json"])
		rec.SpecJSON = spec
		if warn != "" {
			report.Warnings = append(report.Warnings, Issue{
				Item: apelido,
				File: raw.file,
				Path: raw.path,
				Msg:  warn,
			})
			report.Stats.Warn++
		}

		clean = append(clean, rec)
		report.Stats.OK++
	}

	return clean, report
}

func fieldString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// fieldList coerces scalar, pipe-joined string, or list values into a
// sorted, deduplicated string slice.
func fieldList(fields map[string]any, key string) []string {
	var items []string
	switch v := fields[key].(type) {
	case nil:
	case string:
		if strings.Contains(v, "|") {
			items = strings.Split(v, "|")
		} else if strings.TrimSpace(v) != "" {
			items = []string{v}
		}
	case []any:
		for _, e := range v {
			items = append(items, fmt.Sprint(e))
		}
	default:
		items = []string{fmt.Sprint(v)}
	}

	set := map[string]struct{}{}
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for it := range set {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// normalizeSpecJSON canonicalizes the free-form spec blob to key-sorted
// JSON. An unparseable string is kept raw with a warning.
func normalizeSpecJSON(v any) (string, string) {
	switch spec := v.(type) {
	case nil:
		return "", ""
	case map[string]any:
		b, err := json.Marshal(spec)
		if err != nil {
			return "", "spec_json not serializable, dropped"
		}
		return string(b), ""
	case string:
		if strings.TrimSpace(spec) == "" {
			return "", ""
		}
		var obj any
		if err := json.Unmarshal([]byte(spec), &obj); err != nil {
			return spec, "invalid spec_json string, keeping as raw text"
		}
		b, _ := json.Marshal(obj)
		return string(b), ""
	default:
		return fmt.Sprint(spec), ""
	}
}
