package export

import (
	"bytes"
	"testing"
	"time"

	"toolcrib/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// useLocalZone swaps time.Local for the duration of the test.
func useLocalZone(t *testing.T, loc *time.Location) {
	t.Helper()
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

func TestBackupRoundTrip(t *testing.T) {
	useLocalZone(t, time.FixedZone("EST", -5*60*60))
	// rows read back from sqlite and the data service carry UTC timestamps
	ts := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	items := []models.InventoryItem{
		{ID: 1, Location: "5A", Item: "Drill Bit", Quantity: 12, Notes: "sharp"},
		{ID: 2, Location: "105B", Item: "Tap Set", Quantity: 0},
	}
	txs := []models.Transaction{
		{ID: 9, Item: "Drill Bit", Action: models.ActionCheckOut, User: "Dana", Qty: 3, Timestamp: ts},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBackup(&buf, items, txs))

	gotItems, gotTxs, err := ReadBackup(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Len(t, gotItems, 2)
	assert.Equal(t, "5A", gotItems[0].Location)
	assert.Equal(t, "Drill Bit", gotItems[0].Item)
	assert.Equal(t, int64(12), gotItems[0].Quantity)
	assert.Equal(t, "sharp", gotItems[0].Notes)
	assert.Equal(t, int64(0), gotItems[0].ID, "ids are reassigned on restore")
	assert.Equal(t, "", gotItems[1].Notes)

	require.Len(t, gotTxs, 1)
	assert.Equal(t, models.ActionCheckOut, gotTxs[0].Action)
	assert.Equal(t, "Dana", gotTxs[0].User)
	assert.Equal(t, int64(3), gotTxs[0].Qty)
	assert.True(t, ts.Equal(gotTxs[0].Timestamp), "got %s", gotTxs[0].Timestamp.UTC())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	cell, err := f.GetCellValue(SheetTransactions, "D2")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10 10:30:00", cell)
}

func TestReadBackup_ColumnOrderAndExtras(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetInventory))
	_, err := f.NewSheet(SheetTransactions)
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow(SheetInventory, "A1", &[]interface{}{"Quantity", "ID", "Item", "Location", "Notes"}))
	require.NoError(t, f.SetSheetRow(SheetInventory, "A2", &[]interface{}{"4.0", 77, "Reamer", "12c", ""}))
	require.NoError(t, f.SetSheetRow(SheetTransactions, "A1", &[]interface{}{"item", "action", "user", "timestamp", "qty"}))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	items, txs, err := ReadBackup(&buf)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "12C", items[0].Location)
	assert.Equal(t, int64(4), items[0].Quantity)
	assert.Empty(t, txs)
}

func TestReadBackup_Invalid(t *testing.T) {
	t.Run("not a workbook", func(t *testing.T) {
		_, _, err := ReadBackup(bytes.NewReader([]byte("location,item\n")))
		assert.ErrorIs(t, err, ErrInvalidBackup)
	})

	t.Run("missing sheet", func(t *testing.T) {
		f := excelize.NewFile()
		require.NoError(t, f.SetSheetName("Sheet1", SheetInventory))
		require.NoError(t, f.SetSheetRow(SheetInventory, "A1", &[]interface{}{"location", "item", "notes", "quantity"}))
		var buf bytes.Buffer
		_, err := f.WriteTo(&buf)
		require.NoError(t, err)

		_, _, err = ReadBackup(&buf)
		assert.ErrorIs(t, err, ErrInvalidBackup)
		assert.Contains(t, err.Error(), SheetTransactions)
	})

	t.Run("missing column", func(t *testing.T) {
		f := excelize.NewFile()
		require.NoError(t, f.SetSheetName("Sheet1", SheetInventory))
		_, err := f.NewSheet(SheetTransactions)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(SheetInventory, "A1", &[]interface{}{"location", "item", "quantity"}))
		require.NoError(t, f.SetSheetRow(SheetTransactions, "A1", &[]interface{}{"item", "action", "user", "timestamp", "qty"}))
		var buf bytes.Buffer
		_, err = f.WriteTo(&buf)
		require.NoError(t, err)

		_, _, err = ReadBackup(&buf)
		assert.ErrorIs(t, err, ErrInvalidBackup)
		assert.Contains(t, err.Error(), `"notes"`)
	})
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(7), parseCount("7"))
	assert.Equal(t, int64(7), parseCount("7.0"))
	assert.Equal(t, int64(0), parseCount("-2"))
	assert.Equal(t, int64(0), parseCount("n/a"))
	assert.Equal(t, int64(0), parseCount(""))
}
