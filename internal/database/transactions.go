package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"toolcrib/internal/domain"
	"toolcrib/internal/models"
)

func (db *DB) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	query := `SELECT id, item, action, user, timestamp, qty FROM transactions
              ORDER BY timestamp DESC, id DESC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.Item, &tx.Action, &tx.User, &tx.Timestamp, &tx.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// RecordTransaction inserts tx and adjusts the stored quantity inside one SQL transaction.
// The delta is applied to the current row value, so concurrent submissions never lose updates.
func (db *DB) RecordTransaction(ctx context.Context, itemID int64, tx *models.Transaction) (int64, error) {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	var itemName string
	var current int64
	err = sqlTx.QueryRowContext(ctx, `SELECT item, quantity FROM inventory WHERE id = ?`, itemID).Scan(&itemName, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("load item: %w", err)
	}
	delta := models.Delta(tx.Action, tx.Qty)
	if models.QuantityOverflows(current, delta) {
		return 0, fmt.Errorf("item %d: %w", itemID, domain.ErrQuantityOverflow)
	}
	if tx.Item == "" {
		tx.Item = itemName
	}

	if err := insertTransaction(ctx, sqlTx, tx); err != nil {
		return 0, err
	}

	_, err = sqlTx.ExecContext(ctx, `UPDATE inventory SET quantity = MAX(0, quantity + ?) WHERE id = ?`, delta, itemID)
	if err != nil {
		return 0, fmt.Errorf("update quantity: %w", err)
	}

	var qty int64
	if err := sqlTx.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE id = ?`, itemID).Scan(&qty); err != nil {
		return 0, fmt.Errorf("read quantity: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return qty, nil
}

func (db *DB) DeleteItem(ctx context.Context, itemID int64, tx *models.Transaction) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	var name string
	var qty int64
	err = sqlTx.QueryRowContext(ctx, `SELECT item, quantity FROM inventory WHERE id = ?`, itemID).Scan(&name, &qty)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	tx.Item = name
	tx.Qty = qty

	if err := insertTransaction(ctx, sqlTx, tx); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return sqlTx.Commit()
}

// ReplaceAll swaps both collections for the given rows, as a restore from backup does.
func (db *DB) ReplaceAll(ctx context.Context, items []*models.InventoryItem, txs []*models.Transaction) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM inventory`); err != nil {
		return fmt.Errorf("clear inventory: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	for _, item := range items {
		result, err := sqlTx.ExecContext(ctx,
			`INSERT INTO inventory (location, item, quantity, notes) VALUES (?, ?, ?, ?)`,
			item.Location, item.Item, item.Quantity, item.Notes)
		if err != nil {
			return fmt.Errorf("restore item %q: %w", item.Item, err)
		}
		if id, err := result.LastInsertId(); err == nil {
			item.ID = id
		}
	}
	for _, tx := range txs {
		if err := insertTransaction(ctx, sqlTx, tx); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func insertTransaction(ctx context.Context, sqlTx *sql.Tx, tx *models.Transaction) error {
	result, err := sqlTx.ExecContext(ctx,
		`INSERT INTO transactions (item, action, user, timestamp, qty) VALUES (?, ?, ?, ?, ?)`,
		tx.Item, tx.Action, tx.User, tx.Timestamp.UTC(), tx.Qty)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	tx.ID = id
	return nil
}

func (db *DB) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM inventory), (SELECT COUNT(*) FROM transactions)`).
		Scan(&stats.Inventory, &stats.Transactions)
	if err != nil {
		return stats, fmt.Errorf("failed to count rows: %w", err)
	}
	return stats, nil
}
