// Package pgstore is the Postgres store used when the deployment provides a DATABASE_URL.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"toolcrib/internal/domain"
	"toolcrib/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db     *gorm.DB
	logger *zerolog.Logger
}

var _ domain.Store = (*Store)(nil)

// Open connects to dsn and migrates both tables.
func Open(dsn string, logger *zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&models.InventoryItem{}, &models.Transaction{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	logger.Info().Msg("postgres store initialized")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	if err := s.db.WithContext(ctx).Order("location ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (s *Store) UpdateNotes(ctx context.Context, id int64, notes string) error {
	err := s.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("id = ?", id).Update("notes", notes).Error
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) lockItem(tx *gorm.DB, itemID int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	return &item, nil
}

func (s *Store) RecordTransaction(ctx context.Context, itemID int64, tx *models.Transaction) (int64, error) {
	var qty int64
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		item, err := s.lockItem(db, itemID)
		if err != nil {
			return err
		}
		delta := models.Delta(tx.Action, tx.Qty)
		if models.QuantityOverflows(item.Quantity, delta) {
			return fmt.Errorf("item %d: %w", itemID, domain.ErrQuantityOverflow)
		}
		if tx.Item == "" {
			tx.Item = item.Item
		}
		if err := db.Create(tx).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		err = db.Model(&models.InventoryItem{}).Where("id = ?", itemID).
			Update("quantity", gorm.Expr("GREATEST(quantity + ?, 0)", delta)).Error
		if err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
		qty = models.ApplyDelta(item.Quantity, delta)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (s *Store) DeleteItem(ctx context.Context, itemID int64, tx *models.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		item, err := s.lockItem(db, itemID)
		if err != nil {
			return err
		}
		tx.Item = item.Item
		tx.Qty = item.Quantity
		if err := db.Create(tx).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := db.Delete(&models.InventoryItem{}, itemID).Error; err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	})
}

func (s *Store) ReplaceAll(ctx context.Context, items []*models.InventoryItem, txs []*models.Transaction) error {
	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return fmt.Errorf("begin tx: %w", db.Error)
	}

	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.InventoryItem{}).Error; err != nil {
		db.Rollback()
		return fmt.Errorf("clear inventory: %w", err)
	}
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Transaction{}).Error; err != nil {
		db.Rollback()
		return fmt.Errorf("clear transactions: %w", err)
	}
	for _, item := range items {
		item.ID = 0
	}
	for _, tx := range txs {
		tx.ID = 0
	}
	if len(items) > 0 {
		if err := db.CreateInBatches(items, 200).Error; err != nil {
			db.Rollback()
			return fmt.Errorf("restore inventory: %w", err)
		}
	}
	if len(txs) > 0 {
		if err := db.CreateInBatches(txs, 200).Error; err != nil {
			db.Rollback()
			return fmt.Errorf("restore transactions: %w", err)
		}
	}

	return db.Commit().Error
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var inv, txs int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.InventoryItem{}).Count(&inv).Error; err != nil {
		return models.Stats{}, fmt.Errorf("count inventory: %w", err)
	}
	if err := db.Model(&models.Transaction{}).Count(&txs).Error; err != nil {
		return models.Stats{}, fmt.Errorf("count transactions: %w", err)
	}
	return models.Stats{Inventory: int(inv), Transactions: int(txs)}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
