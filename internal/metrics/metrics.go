package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolcrib",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	stockTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolcrib",
			Name:      "transactions_total",
			Help:      "Recorded inventory transactions by action.",
		},
		[]string{"action"},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolcrib",
			Name:      "store_errors_total",
			Help:      "Failed data store calls by operation.",
		},
		[]string{"operation"},
	)

	sheetsSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolcrib",
			Name:      "sheets_sync_total",
			Help:      "Google Sheets mirror tasks by outcome.",
		},
		[]string{"task", "result"},
	)

	inventoryRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "toolcrib",
			Name:      "inventory_rows",
			Help:      "Inventory rows in the last loaded snapshot.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, stockTransactions, storeErrors, sheetsSyncs, inventoryRows)
	})
}

func IncHTTP(endpoint string, status int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func IncTransaction(action string) {
	stockTransactions.WithLabelValues(action).Inc()
}

func IncStoreError(operation string) {
	storeErrors.WithLabelValues(operation).Inc()
}

func IncSheetsSync(task, result string) {
	sheetsSyncs.WithLabelValues(task, result).Inc()
}

func SetInventoryRows(n int) {
	inventoryRows.Set(float64(n))
}
