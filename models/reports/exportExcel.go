package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/finacore/recognition_backend/models"
	"github.com/xuri/excelize/v2"
)

// ExportRollforwardExcel streams the rollforward report as an xlsx attachment.
func ExportRollforwardExcel(ctx context.Context, w http.ResponseWriter, fromDate time.Time, toDate time.Time, legalEntityId *int, family *models.RecognitionFamily) error {
	data, err := GetRollforwardReport(ctx, fromDate, toDate, legalEntityId, family)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheet, "A1", "LegalEntity")
	f.SetCellValue(sheet, "B1", "Family")
	f.SetCellValue(sheet, "C1", "Currency")
	f.SetCellValue(sheet, "D1", "Opening")
	f.SetCellValue(sheet, "E1", "Movement")
	f.SetCellValue(sheet, "F1", "Closing")
	f.SetCellValue(sheet, "G1", "ClosingShort")
	f.SetCellValue(sheet, "H1", "ClosingLong")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+row, d.LegalEntityId)
		f.SetCellValue(sheet, "B"+row, string(d.Family))
		f.SetCellValue(sheet, "C"+row, d.CurrencyCode)
		f.SetCellValue(sheet, "D"+row, d.OpeningBase.InexactFloat64())
		f.SetCellValue(sheet, "E"+row, d.MovementBase.InexactFloat64())
		f.SetCellValue(sheet, "F"+row, d.ClosingBase.InexactFloat64())
		f.SetCellValue(sheet, "G"+row, d.ClosingShortBase.InexactFloat64())
		f.SetCellValue(sheet, "H"+row, d.ClosingLongBase.InexactFloat64())
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=rollforward.xlsx")
	return f.Write(w)
}
