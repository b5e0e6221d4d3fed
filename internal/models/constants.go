package models

const (
	ActionNone     = "None"
	ActionCheckOut = "Check Out"
	ActionCheckIn  = "Check In"
	ActionDeleted  = "Deleted"
)

// TransactionActions lists the actions offered by the per-row form, placeholder first.
var TransactionActions = []string{ActionNone, ActionCheckOut, ActionCheckIn}

const (
	TableInventory    = "inventory"
	TableTransactions = "transactions"
)

const (
	// RecentTransactionsLimit is how many transactions the view keeps.
	RecentTransactionsLimit = 100

	// ExportTransactionLimit bounds full-history reads for backups and reports.
	ExportTransactionLimit = 100000

	// DefaultTransactionQty is used when the quantity field is empty.
	DefaultTransactionQty = 1

	// TimestampLayout is how timestamps are written to exports.
	TimestampLayout = "2006-01-02 15:04:05"

	// DateLayout is used for date-only filters and filenames.
	DateLayout = "2006-01-02"

	// DefaultDraftTTL is how long per-row form drafts survive, in seconds.
	DefaultDraftTTL = 12 * 60 * 60
)
