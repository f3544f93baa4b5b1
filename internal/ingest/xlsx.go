// Package ingest reads budget spreadsheets (XLSX workbooks and CSV
// exports) into plain string grids for header detection and
// classification.
package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet is one workbook tab as a raw string grid.
type Sheet struct {
	Name   string
	Grid   [][]string
	Status string // "ok" or "empty"
}

// ReadWorkbook reads every sheet of an XLSX workbook. Empty sheets are
// kept with Status "empty" so callers can report them per tab.
func ReadWorkbook(path string) ([]Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open workbook %s", path)
	}

	sheets := make([]Sheet, 0, len(f.Sheets))
	for _, sh := range f.Sheets {
		grid := sheetGrid(sh)
		status := "ok"
		if len(grid) == 0 {
			status = "empty"
		}
		sheets = append(sheets, Sheet{Name: sh.Name, Grid: grid, Status: status})
	}
	return sheets, nil
}

// ReadXLSX reads a single sheet by name, or the first sheet when name
// is empty.
func ReadXLSX(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open workbook %s", path)
	}

	var sheet *xlsx.Sheet
	if name != "" {
		sh, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", name)
		}
		sheet = sh
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("ingest: workbook %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	return sheetGrid(sheet), nil
}

func sheetGrid(sheet *xlsx.Sheet) [][]string {
	grid := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		blank := true
		for j, cell := range row.Cells {
			cells[j] = cell.String()
			if cells[j] != "" {
				blank = false
			}
		}
		if blank && len(grid) == 0 {
			continue // leading blank rows carry no signal
		}
		grid = append(grid, cells)
	}

	// drop trailing blank rows
	for len(grid) > 0 {
		last := grid[len(grid)-1]
		blank := true
		for _, c := range last {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			break
		}
		grid = grid[:len(grid)-1]
	}
	return grid
}
