package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"toolcrib/internal/models"
)

// ReportPrefixes lists the distinct two-digit location prefixes in the loaded inventory.
func (s *InventoryService) ReportPrefixes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, it := range s.snapshot.Items {
		if len(it.Location) >= 2 && isDigit(it.Location[0]) && isDigit(it.Location[1]) {
			seen[it.Location[:2]] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Report selects inventory rows by prefix, custom location text and zero stock,
// and attaches the latest transaction time per item name inside the date range.
// The full transaction history is read from the store; when that fails the
// recent transactions already loaded are used instead.
func (s *InventoryService) Report(ctx context.Context, f models.ReportFilter) []models.ReportRow {
	snap := s.Snapshot()

	txs := snap.Transactions
	if rows, err := s.store.ListTransactions(ctx, models.ExportTransactionLimit); err != nil {
		s.logger.Warn().Err(err).Msg("report: falling back to recent transactions")
	} else {
		txs = make([]models.Transaction, 0, len(rows))
		for _, r := range rows {
			txs = append(txs, *r)
		}
	}

	last := make(map[string]time.Time)
	for _, tx := range txs {
		if !models.InDateRange(tx.Timestamp, f.From, f.To) {
			continue
		}
		if cur, ok := last[tx.Item]; !ok || tx.Timestamp.After(cur) {
			last[tx.Item] = tx.Timestamp
		}
	}

	prefix := strings.TrimSpace(f.Prefix)
	if strings.EqualFold(prefix, "all") {
		prefix = ""
	}
	custom := strings.TrimSpace(f.Custom)

	rows := make([]models.ReportRow, 0, len(snap.Items))
	for _, it := range snap.Items {
		if prefix != "" && !strings.HasPrefix(it.Location, prefix) {
			continue
		}
		if custom != "" && !strings.Contains(strings.ToLower(it.Location), strings.ToLower(custom)) {
			continue
		}
		if f.ZeroOnly && it.Quantity != 0 {
			continue
		}

		row := models.ReportRow{Location: it.Location, Item: it.Item, Quantity: it.Quantity, Notes: it.Notes}
		if ts, ok := last[it.Item]; ok {
			ts := ts
			row.LastTx = &ts
		}
		rows = append(rows, row)
	}
	return rows
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
