// internal/app/features/students/xlsx.go
package students

import (
	"bytes"
	"fmt"

	"github.com/dalemusser/studentid/internal/app/system/csvutil"
	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Roster"

var rosterColumnWidths = []float64{18, 24, 8, 14, 12, 24, 14, 9, 16, 28, 36}

// rosterXLSX renders the roster as a single-sheet workbook with a styled,
// frozen header row.
func rosterXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	sw, err := f.NewStreamWriter(rosterSheet)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}
	for i, width := range rosterColumnWidths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	header := make([]any, len(csvutil.RosterHeader))
	for i, h := range csvutil.RosterHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("header row: %w", err)
	}

	for r, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			// Strings stay strings: IDs and phone numbers must not become numbers.
			cells[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("row %d: %w", r+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
