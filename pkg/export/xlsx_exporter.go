package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	sheet string
}

// NewXLSXExporter constructs a workbook exporter writing to the named sheet.
func NewXLSXExporter(sheet string) *XLSXExporter {
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &XLSXExporter{sheet: sheet}
}

// Render writes the title in A1, headers in row 2 and one row per record. Footer lines follow a blank row.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", e.sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetCellValue(e.sheet, "A1", data.Title); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}

	row := 2
	if err := e.writeRow(f, row, data.Headers); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(e.sheet, "A2", last, bold); err != nil {
		return nil, fmt.Errorf("style headers: %w", err)
	}

	for _, record := range data.Rows {
		row++
		values := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			values[i] = record[header]
		}
		if err := e.writeRow(f, row, values); err != nil {
			return nil, err
		}
	}
	if len(data.Footer) > 0 {
		row++
	}
	for _, line := range data.Footer {
		row++
		if err := e.writeRow(f, row, []string{line}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *XLSXExporter) writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(e.sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
