package export

import (
	"fmt"
	"io"
	"time"

	"toolcrib/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetReport = "Report"

var reportColumns = []interface{}{"Location", "Item", "Quantity", "Last Transaction"}

// ReportFilename returns report_YYYYMMDD.xlsx.
func ReportFilename(now time.Time) string {
	return fmt.Sprintf("report_%s.xlsx", now.Format("20060102"))
}

// WriteReport renders report rows under a title line, one row per item.
func WriteReport(w io.Writer, title string, generated time.Time, rows []models.ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetReport); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}

	_ = f.SetCellValue(SheetReport, "A1", fmt.Sprintf("%s Report (%s)", title, models.FormatTimestamp(generated)))
	_ = f.MergeCell(SheetReport, "A1", "D1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(SheetReport, "A1", "A1", titleStyle)

	if err := writeRow(f, SheetReport, 2, reportColumns); err != nil {
		return err
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(SheetReport, "A2", "D2", headerStyle)

	for i := range rows {
		r := &rows[i]
		last := ""
		if r.LastTx != nil {
			last = models.FormatTimestamp(*r.LastTx)
		}
		if err := writeRow(f, SheetReport, i+3, []interface{}{r.Location, r.Item, r.Quantity, last}); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(SheetReport, "A", "A", 12)
	_ = f.SetColWidth(SheetReport, "B", "B", 35)
	_ = f.SetColWidth(SheetReport, "D", "D", 22)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}
