package models

import "time"

// RowDraft holds the transaction sub-form of one inventory row for one browser session.
type RowDraft struct {
	Session   string    `json:"session"`
	ItemID    int64     `json:"item_id"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Qty       int64     `json:"qty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActionOrDefault returns the draft action or the placeholder when unset.
func (d *RowDraft) ActionOrDefault() string {
	if d == nil || d.Action == "" {
		return ActionNone
	}
	return d.Action
}

// QtyOrDefault returns the draft quantity or DefaultTransactionQty.
func (d *RowDraft) QtyOrDefault() int64 {
	if d == nil || d.Qty < 1 {
		return DefaultTransactionQty
	}
	return d.Qty
}

// UserOrEmpty is safe to call on a nil draft.
func (d *RowDraft) UserOrEmpty() string {
	if d == nil {
		return ""
	}
	return d.User
}

// Stats is the row count summary behind the "check data" action.
type Stats struct {
	Inventory    int `json:"inventory"`
	Transactions int `json:"transactions"`
}
