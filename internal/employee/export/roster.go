// Package export renders personnel rosters as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"legajo/internal/employee/models"
)

// SheetName is the worksheet holding the roster.
const SheetName = "Legajos"

// Header is the first row of the roster.
var Header = []any{"Apellido", "Nombres", "DNI", "CUIL", "Fecha de nacimiento", "Teléfono"}

var columnWidths = map[string]float64{"A": 24, "B": 28, "C": 12, "D": 16, "E": 20, "F": 18}

// WriteRoster writes employees, one per row in the given order, as an xlsx
// workbook. DNI and CUIL are written in their masked forms.
func WriteRoster(w io.Writer, employees []*models.Employee) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, e := range employees {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		birth := ""
		if !e.BirthDate.IsZero() {
			birth = e.BirthDate.Format("02/01/2006")
		}
		row := []any{e.LastName, e.FirstNames, e.DNI.Masked(), e.MaskedCUIL(), birth, e.Phone}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
