package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"toolcrib/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetInventory    = "Inventory"
	SheetTransactions = "Transactions"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	inventoryColumns   = []string{"location", "item", "notes", "quantity"}
	transactionColumns = []string{"item", "action", "user", "timestamp", "qty"}
)

// ErrInvalidBackup wraps every problem found while reading a backup workbook.
var ErrInvalidBackup = errors.New("invalid backup")

// BackupFilename returns tool_crib_backup_YYYYMMDD_HHMMSS.xlsx.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("tool_crib_backup_%s.xlsx", now.Format("20060102_150405"))
}

// WriteBackup writes both collections to a two-sheet workbook.
func WriteBackup(w io.Writer, items []models.InventoryItem, txs []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetInventory); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetTransactions); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	if err := writeRow(f, SheetInventory, 1, toRow(inventoryColumns)); err != nil {
		return err
	}
	for i := range items {
		it := &items[i]
		if err := writeRow(f, SheetInventory, i+2, []interface{}{it.Location, it.Item, it.Notes, it.Quantity}); err != nil {
			return err
		}
	}

	if err := writeRow(f, SheetTransactions, 1, toRow(transactionColumns)); err != nil {
		return err
	}
	for i := range txs {
		tx := &txs[i]
		row := []interface{}{tx.Item, tx.Action, tx.User, models.FormatTimestamp(tx.Timestamp), tx.Qty}
		if err := writeRow(f, SheetTransactions, i+2, row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(SheetInventory, "B", "C", 30)
	_ = f.SetColWidth(SheetTransactions, "A", "A", 30)
	_ = f.SetColWidth(SheetTransactions, "D", "D", 20)
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// ReadBackup parses a workbook produced by WriteBackup. Columns are located by
// header name, so extra columns and any column order are accepted; a missing
// sheet or required column fails the whole restore.
func ReadBackup(r io.Reader) ([]*models.InventoryItem, []*models.Transaction, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer f.Close()

	invRows, err := sheetRows(f, SheetInventory, inventoryColumns)
	if err != nil {
		return nil, nil, err
	}
	txRows, err := sheetRows(f, SheetTransactions, transactionColumns)
	if err != nil {
		return nil, nil, err
	}

	items := make([]*models.InventoryItem, 0, len(invRows))
	for _, row := range invRows {
		if row["item"] == "" && row["location"] == "" {
			continue
		}
		items = append(items, &models.InventoryItem{
			Location: models.NormalizeLocation(row["location"]),
			Item:     row["item"],
			Notes:    row["notes"],
			Quantity: parseCount(row["quantity"]),
		})
	}

	txs := make([]*models.Transaction, 0, len(txRows))
	for i, row := range txRows {
		if row["item"] == "" && row["action"] == "" {
			continue
		}
		ts, err := parseTimestamp(row["timestamp"])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: transactions row %d: %v", ErrInvalidBackup, i+2, err)
		}
		txs = append(txs, &models.Transaction{
			Item:      row["item"],
			Action:    row["action"],
			User:      row["user"],
			Timestamp: ts,
			Qty:       parseCount(row["qty"]),
		})
	}

	return items, txs, nil
}

func sheetRows(f *excelize.File, sheet string, required []string) ([]map[string]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: missing sheet %q", ErrInvalidBackup, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidBackup, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no header", ErrInvalidBackup, sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: sheet %q is missing column %q", ErrInvalidBackup, sheet, col)
		}
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(required))
		for _, col := range required {
			if i := index[col]; i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("error writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// parseCount accepts integers and spreadsheet floats ("12.0"); blanks and junk read as 0.
func parseCount(raw string) int64 {
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return max(n, 0)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
		return int64(math.Round(v))
	}
	return 0
}

var timestampLayouts = []string{
	models.TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	models.DateLayout,
	"1/2/06 15:04",
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
