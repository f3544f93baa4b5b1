// Package artifact builds the portable taxonomy exports: a flattened
// CSV catalog and a structured sanity report.
package artifact

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/obradata/obrataxo/internal/taxonomy"
)

// Record is one flattened catalog entry as exported to CSV.
type Record struct {
	Apelido         string
	Nome            string
	Categoria       string
	Grupo           string
	UnidadeBase     string
	UnidadesAceitas []string
	Sinonimos       []string
	Alternativas    []string
	SpecJSON        string
	Tags            []string
	OrigemArquivo   string
	OrigemCaminho   string
	OrigemHash      string
	OrigemMtime     int64
	Status          string
}

// RawRecord is a parsed-but-unvalidated catalog entry. LoadErr is set
// for files that failed to parse so validation can report them.
type RawRecord struct {
	fields  map[string]any
	file    string
	path    string
	hash    string
	mtime   int64
	LoadErr string
}

// ReadRecords recursively reads every catalog source under root,
// injecting provenance metadata per record. Parse failures become
// error records handled downstream, not hard failures.
func ReadRecords(root string) ([]RawRecord, error) {
	files, err := taxonomy.SourceFiles(root)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: enumerate %s", root)
	}

	var records []RawRecord
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		name := filepath.Base(path)

		doc, err := taxonomy.LoadDoc(path)
		if err != nil {
			records = append(records, RawRecord{
				file:    name,
				path:    rel,
				LoadErr: eris.Cause(err).Error(),
			})
			continue
		}

		hash, _ := fileHash(path)
		var mtime int64
		if st, err := os.Stat(path); err == nil {
			mtime = st.ModTime().Unix()
		}

		category := "root"
		if parts := strings.Split(rel, "/"); len(parts) > 1 {
			category = parts[0]
		}

		for _, entry := range taxonomy.FlattenEntries(doc) {
			rec := RawRecord{
				fields: entry,
				file:   name,
				path:   rel,
				hash:   hash,
				mtime:  mtime,
			}
			if _, has := entry["categoria"]; !has {
				rec.fields["categoria"] = category
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
