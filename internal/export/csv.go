package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"toolcrib/internal/models"
)

// InventoryCSVHeader is the first line of every inventory export.
var InventoryCSVHeader = []string{"Location", "Item", "Quantity", "Notes"}

// InventoryCSVFilename returns inventory_YYYYMMDD.csv for the given day.
func InventoryCSVFilename(now time.Time) string {
	return fmt.Sprintf("inventory_%s.csv", now.Format("20060102"))
}

// WriteInventoryCSV writes the header and one record per item. Fields holding
// commas, quotes or newlines are quoted; everything else is written as is.
func WriteInventoryCSV(w io.Writer, items []models.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(InventoryCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range items {
		it := &items[i]
		record := []string{it.Location, it.Item, strconv.FormatInt(it.Quantity, 10), it.Notes}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
