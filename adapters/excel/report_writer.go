package excel

import (
	"fmt"

	"dashsync/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of an exported report.
type Sheet struct {
	Name string
	Rows [][]string
}

// WriteWorkbook saves sheets to an .xlsx file, in order. The first row of
// each sheet is written bold as its header.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return errors.InvalidInput("no sheets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return errors.Wrapf(err, "failed to name sheet %q", sheet.Name)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return errors.Wrapf(err, "failed to add sheet %q", sheet.Name)
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return errors.Wrap(err, "invalid cell coordinates")
			}
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return errors.Wrapf(err, "failed to write row %d of %q", r+1, sheet.Name)
			}
			if r == 0 && len(row) > 0 {
				last, _ := excelize.CoordinatesToCellName(len(row), 1)
				if err := f.SetCellStyle(sheet.Name, cell, last, headerStyle); err != nil {
					return errors.Wrap(err, "failed to style header")
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.StorageError(fmt.Sprintf("failed to save workbook %s", path), err)
	}
	return nil
}
