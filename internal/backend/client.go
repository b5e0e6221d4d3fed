// Package backend talks to the hosted data service that owns the inventory and
// transaction collections. The service speaks the PostgREST dialect: table
// endpoints under /rest/v1/{table} and stored procedures under /rest/v1/rpc/{name}.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toolcrib/internal/config"
	"toolcrib/internal/domain"
	"toolcrib/internal/models"

	"github.com/rs/zerolog"
	"github.com/supabase-community/postgrest-go"
)

const (
	restPrefix     = "/rest/v1"
	defaultTimeout = 10 * time.Second

	// numeric_value_out_of_range, raised when a check-in overflows bigint
	codeOutOfRange = "22003"
)

// Client is a domain.Store backed by the hosted data service.
type Client struct {
	restURL   string
	apiKey    string
	timeout   time.Duration
	transport *http.Transport
	logger    *zerolog.Logger
}

var _ domain.Store = (*Client)(nil)

// APIError is a non-2xx answer from the data service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data service: http %d", e.Status)
	}
	return fmt.Sprintf("data service: http %d: %s", e.Status, e.Message)
}

// New builds a client from the backend section. Both the URL and the public API key
// are required; there is no fallback.
func New(cfg config.BackendConfig, logger *zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("backend url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("backend api key is required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		restURL:   strings.TrimRight(cfg.URL, "/") + restPrefix,
		apiKey:    cfg.APIKey,
		timeout:   timeout,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
		logger:    logger,
	}, nil
}

// scopedTransport binds one postgrest call to a context and keeps the decoded
// error body of a failed response, which postgrest-go flattens into a string.
type scopedTransport struct {
	ctx    context.Context
	base   http.RoundTripper
	logger *zerolog.Logger
	apiErr *APIError
}

func (t *scopedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if err != nil {
		return nil, err
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("data service request")

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		t.apiErr = apiErr
		resp.Body = io.NopCloser(bytes.NewReader(data))
	}
	return resp, nil
}

// call runs fn against a fresh postgrest client scoped to ctx and the configured
// timeout. postgrest-go keeps errors on the client, so clients are not shared.
func (c *Client) call(ctx context.Context, fn func(pc *postgrest.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rt := &scopedTransport{ctx: ctx, base: c.transport, logger: c.logger}
	pc := postgrest.NewClient(c.restURL, "", nil)
	if pc.ClientError != nil {
		return pc.ClientError
	}
	pc.SetApiKey(c.apiKey)
	pc.SetAuthToken(c.apiKey)
	pc.Transport.Parent = rt

	err := fn(pc)
	if rt.apiErr != nil {
		return rt.apiErr
	}
	if err == nil {
		err = pc.ClientError
	}
	return err
}

// rpc calls a stored procedure and decodes its JSON result into out. A null
// result leaves out untouched.
func (c *Client) rpc(ctx context.Context, name string, params any, out any) error {
	return c.call(ctx, func(pc *postgrest.Client) error {
		body := strings.TrimSpace(pc.Rpc(name, "", params))
		if pc.ClientError != nil || out == nil || body == "" || body == "null" {
			return pc.ClientError
		}
		return json.Unmarshal([]byte(body), out)
	})
}

func (c *Client) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	err := c.call(ctx, func(pc *postgrest.Client) error {
		_, err := pc.From(models.TableInventory).
			Select("*", "", false).
			Order("location", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&items)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return items, nil
}

func (c *Client) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	body := map[string]any{
		"location": item.Location,
		"item":     item.Item,
		"quantity": item.Quantity,
		"notes":    item.Notes,
	}

	var created []models.InventoryItem
	err := c.call(ctx, func(pc *postgrest.Client) error {
		_, err := pc.From(models.TableInventory).
			Insert(body, false, "", "representation", "").
			ExecuteTo(&created)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	if len(created) > 0 {
		item.ID = created[0].ID
	}
	return nil
}

func (c *Client) UpdateNotes(ctx context.Context, id int64, notes string) error {
	err := c.call(ctx, func(pc *postgrest.Client) error {
		_, _, err := pc.From(models.TableInventory).
			Update(map[string]any{"notes": notes}, "minimal", "").
			Eq("id", strconv.FormatInt(id, 10)).
			Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return nil
}

// restTransaction tolerates timestamps with or without a zone offset.
type restTransaction struct {
	ID        int64  `json:"id"`
	Item      string `json:"item"`
	Action    string `json:"action"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	Qty       int64  `json:"qty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func (c *Client) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	var rows []restTransaction
	err := c.call(ctx, func(pc *postgrest.Client) error {
		_, err := pc.From(models.TableTransactions).
			Select("*", "", false).
			Order("timestamp", &postgrest.OrderOpts{Ascending: false}).
			Limit(limit, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txs := make([]*models.Transaction, 0, len(rows))
	for _, r := range rows {
		ts := parseTimestamp(r.Timestamp)
		if ts.IsZero() && r.Timestamp != "" {
			c.logger.Warn().Str("timestamp", r.Timestamp).Int64("id", r.ID).Msg("unparseable transaction timestamp")
		}
		txs = append(txs, &models.Transaction{
			ID:        r.ID,
			Item:      r.Item,
			Action:    r.Action,
			User:      r.User,
			Timestamp: ts,
			Qty:       r.Qty,
		})
	}
	return txs, nil
}

type recordResult struct {
	TransactionID int64  `json:"transaction_id"`
	Item          string `json:"item"`
	Quantity      int64  `json:"quantity"`
}

// RecordTransaction calls the record_transaction procedure, which inserts the log row
// and applies the clamped delta in one database transaction. A null result means the
// item does not exist.
func (c *Client) RecordTransaction(ctx context.Context, itemID int64, tx *models.Transaction) (int64, error) {
	params := map[string]any{
		"p_item_id":   itemID,
		"p_item":      tx.Item,
		"p_action":    tx.Action,
		"p_user":      tx.User,
		"p_qty":       tx.Qty,
		"p_timestamp": tx.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	var res *recordResult
	if err := c.rpc(ctx, "record_transaction", params, &res); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeOutOfRange {
			return 0, fmt.Errorf("item %d: %w", itemID, domain.ErrQuantityOverflow)
		}
		return 0, fmt.Errorf("failed to record transaction: %w", err)
	}
	if res == nil {
		return 0, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	tx.ID = res.TransactionID
	if res.Item != "" {
		tx.Item = res.Item
	}
	return res.Quantity, nil
}

type deleteResult struct {
	TransactionID int64  `json:"transaction_id"`
	Item          string `json:"item"`
	Qty           int64  `json:"qty"`
}

func (c *Client) DeleteItem(ctx context.Context, itemID int64, tx *models.Transaction) error {
	params := map[string]any{
		"p_item_id":   itemID,
		"p_user":      tx.User,
		"p_timestamp": tx.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	var res *deleteResult
	if err := c.rpc(ctx, "delete_item", params, &res); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if res == nil {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	tx.ID = res.TransactionID
	tx.Item = res.Item
	tx.Qty = res.Qty
	return nil
}

func (c *Client) ReplaceAll(ctx context.Context, items []*models.InventoryItem, txs []*models.Transaction) error {
	pItems := make([]map[string]any, 0, len(items))
	for _, it := range items {
		pItems = append(pItems, map[string]any{
			"location": it.Location,
			"item":     it.Item,
			"quantity": it.Quantity,
			"notes":    it.Notes,
		})
	}
	pTxs := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		pTxs = append(pTxs, map[string]any{
			"item":      tx.Item,
			"action":    tx.Action,
			"user":      tx.User,
			"timestamp": tx.Timestamp.UTC().Format(time.RFC3339Nano),
			"qty":       tx.Qty,
		})
	}

	params := map[string]any{"p_items": pItems, "p_transactions": pTxs}
	if err := c.rpc(ctx, "restore_inventory", params, nil); err != nil {
		return fmt.Errorf("failed to restore inventory: %w", err)
	}
	return nil
}

// Stats asks the service for exact row counts with HEAD requests.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	inv, err := c.count(ctx, models.TableInventory)
	if err != nil {
		return stats, err
	}
	txs, err := c.count(ctx, models.TableTransactions)
	if err != nil {
		return stats, err
	}
	stats.Inventory, stats.Transactions = inv, txs
	return stats, nil
}

func (c *Client) count(ctx context.Context, table string) (int, error) {
	var n int64
	err := c.call(ctx, func(pc *postgrest.Client) error {
		var err error
		_, n, err = pc.From(table).Select("id", "exact", true).Execute()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int(n), nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, func(pc *postgrest.Client) error {
		_, _, err := pc.From(models.TableInventory).Select("id", "", false).Limit(1, "").Execute()
		return err
	})
}

func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
