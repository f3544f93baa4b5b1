package unknowns

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// record is one JSONL line of the curation queue.
type record struct {
	Aggregate
	BatchID    string `json:"batch_id"`
	ExportedAt string `json:"exported_at"`
}

// WriteJSONL writes aggregates as a JSONL curation queue. Every record
// carries the same batch id so a curation run can be traced back.
func WriteJSONL(w io.Writer, aggs []Aggregate) error {
	batchID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	enc := json.NewEncoder(w)
	for _, agg := range aggs {
		rec := record{Aggregate: agg, BatchID: batchID, ExportedAt: now}
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "unknowns: encode record")
		}
	}
	return nil
}

// Export aggregates items and writes a timestamped JSONL file into
// dir, returning the file path. Nothing unresolved means no file and
// an empty path.
func Export(dir string, items []Item) (string, error) {
	aggs := Group(items)
	if len(aggs) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "unknowns: create dir %s", dir)
	}

	name := "unknowns_" + time.Now().Format("2006-01-02_1504") + ".jsonl"
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "unknowns: create %s", path)
	}
	defer f.Close()

	if err := WriteJSONL(f, aggs); err != nil {
		return "", err
	}
	return path, nil
}
