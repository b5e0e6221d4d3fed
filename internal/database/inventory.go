package database

import (
	"context"
	"fmt"

	"toolcrib/internal/models"
)

func (db *DB) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	query := `SELECT id, location, item, quantity, notes FROM inventory ORDER BY location, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(&item.ID, &item.Location, &item.Item, &item.Quantity, &item.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory: %w", err)
	}
	return items, nil
}

func (db *DB) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	query := `INSERT INTO inventory (location, item, quantity, notes) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, item.Location, item.Item, item.Quantity, item.Notes)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	return nil
}

// UpdateNotes is a no-op for ids that do not exist.
func (db *DB) UpdateNotes(ctx context.Context, id int64, notes string) error {
	query := `UPDATE inventory SET notes = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, notes, id); err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	query := `SELECT id, location, item, quantity, notes FROM inventory WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.Location, &item.Item, &item.Quantity, &item.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return &item, nil
}
