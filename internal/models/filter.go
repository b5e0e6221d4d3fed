package models

import (
	"strings"
	"time"
)

// InventoryFilter narrows the loaded inventory without touching the store.
type InventoryFilter struct {
	Item     string `json:"item"`
	Location string `json:"location"`
	Cabinet  string `json:"cabinet"`
	Drawer   string `json:"drawer"`
	Qty      int64  `json:"qty"`
}

// Empty reports whether the filter matches everything.
func (f InventoryFilter) Empty() bool {
	return f.Item == "" && f.Location == "" && f.Cabinet == "" && f.Drawer == "" && f.Qty <= 0
}

// Match applies case-insensitive substring checks on item and location, plus the
// exact cabinet/drawer/quantity selectors when set.
func (f InventoryFilter) Match(it *InventoryItem) bool {
	if f.Item != "" && !containsFold(it.Item, f.Item) {
		return false
	}
	if f.Location != "" && !containsFold(it.Location, f.Location) {
		return false
	}
	if f.Cabinet != "" && Cabinet(it.Location) != f.Cabinet {
		return false
	}
	if f.Drawer != "" && Drawer(it.Location) != strings.ToUpper(f.Drawer) {
		return false
	}
	if f.Qty > 0 && it.Quantity != f.Qty {
		return false
	}
	return true
}

// TransactionFilter narrows the loaded transaction history.
type TransactionFilter struct {
	Item   string    `json:"item"`
	User   string    `json:"user"`
	Action string    `json:"action"`
	Qty    int64     `json:"qty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// Match reports whether tx passes every set criterion. From and To are whole days, inclusive.
func (f TransactionFilter) Match(tx *Transaction) bool {
	if f.Item != "" && !containsFold(tx.Item, f.Item) {
		return false
	}
	if f.User != "" && !containsFold(tx.User, f.User) {
		return false
	}
	if f.Action != "" && f.Action != "All" && tx.Action != f.Action {
		return false
	}
	if f.Qty > 0 && tx.Qty != f.Qty {
		return false
	}
	return InDateRange(tx.Timestamp, f.From, f.To)
}

// ReportFilter selects rows for the inventory report.
type ReportFilter struct {
	Prefix   string    `json:"prefix"`
	Custom   string    `json:"custom"`
	ZeroOnly bool      `json:"zero_only"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

// ReportRow is one inventory row joined with its last transaction in range.
type ReportRow struct {
	Location string     `json:"location"`
	Item     string     `json:"item"`
	Quantity int64      `json:"quantity"`
	Notes    string     `json:"notes"`
	LastTx   *time.Time `json:"last_tx,omitempty"`
}

// InDateRange treats zero bounds as open and To as the end of its day. Day
// boundaries are taken in the zone of each bound, not of ts.
func InDateRange(ts, from, to time.Time) bool {
	if !from.IsZero() {
		start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
		if ts.Before(start) {
			return false
		}
	}
	if !to.IsZero() {
		end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1)
		if !ts.Before(end) {
			return false
		}
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
