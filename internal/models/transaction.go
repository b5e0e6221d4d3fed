package models

import (
	"math"
	"time"
)

// Transaction is an append-only record of stock leaving or returning to the crib.
// Item is a copy of the item name at the time of the transaction, not a key.
type Transaction struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Item      string    `json:"item" gorm:"not null;index"`
	Action    string    `json:"action" gorm:"not null"`
	User      string    `json:"user" gorm:"column:user;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
	Qty       int64     `json:"qty" gorm:"not null"`
}

func (Transaction) TableName() string { return TableTransactions }

// FormatTimestamp renders t as local wall-clock time in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// IsStockAction reports whether action moves stock in or out.
func IsStockAction(action string) bool {
	return action == ActionCheckOut || action == ActionCheckIn
}

// Delta returns the signed quantity change an action applies.
func Delta(action string, qty int64) int64 {
	switch action {
	case ActionCheckOut:
		return -qty
	case ActionCheckIn:
		return qty
	default:
		return 0
	}
}

// QuantityOverflows reports whether current+delta would not fit in an int64.
func QuantityOverflows(current, delta int64) bool {
	return delta > 0 && current > math.MaxInt64-delta
}

// ApplyDelta returns current+delta floored at zero.
func ApplyDelta(current, delta int64) int64 {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}
