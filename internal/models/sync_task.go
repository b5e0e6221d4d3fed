package models

import "time"

// SyncTask is a queued mirror job for the Google Sheets worker.
type SyncTask struct {
	ID          string          `json:"id"`
	TaskType    string          `json:"task_type"`
	Items       []InventoryItem `json:"items,omitempty"`
	Transaction *Transaction    `json:"transaction,omitempty"`
	RetryCount  int             `json:"retry_count"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	NextRetryAt time.Time       `json:"next_retry_at"`
}
