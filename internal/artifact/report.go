package artifact

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// WriteReport writes the sanity report as indented JSON.
func WriteReport(path string, report *Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifact: marshal report")
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "artifact: write %s", path)
	}
	return nil
}
