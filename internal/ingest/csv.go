package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // default ','; auto-detected from the first line when 0
	TrimSpace bool
}

// StreamCSV reads CSV rows and sends them to a channel. Caller must
// consume the returned row channel; both channels are closed when
// processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // budget exports have ragged rows

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: read csv row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV collects an entire CSV stream into a grid. Delimiter is
// sniffed from the first line when not set: semicolon-separated
// exports are common in Brazilian spreadsheets.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	if opts.Delimiter == 0 {
		buffered, delim, err := sniffDelimiter(r)
		if err != nil {
			return nil, err
		}
		r = buffered
		opts.Delimiter = delim
	}

	rowCh, errCh := StreamCSV(ctx, r, opts)
	var grid [][]string
	for row := range rowCh {
		grid = append(grid, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return grid, nil
}

// sniffDelimiter peeks at the first line and picks the separator with
// the most occurrences, defaulting to comma.
func sniffDelimiter(r io.Reader) (io.Reader, rune, error) {
	head := make([]byte, 4096)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, 0, eris.Wrap(err, "ingest: sniff delimiter")
	}
	head = head[:n]

	line := string(head)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	best, bestCount := ',', strings.Count(line, ",")
	for _, cand := range []rune{';', '\t'} {
		if c := strings.Count(line, string(cand)); c > bestCount {
			best, bestCount = cand, c
		}
	}

	return io.MultiReader(strings.NewReader(string(head)), r), best, nil
}
