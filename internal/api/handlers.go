package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toolcrib/internal/models"
	"toolcrib/internal/service"
)

// flexString accepts a JSON string or number so clients may send "qty": 3 or "qty": "3".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type createItemRequest struct {
	Item     string     `json:"item"`
	Location string     `json:"location"`
	Quantity flexString `json:"quantity"`
	Notes    string     `json:"notes"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type transactionRequest struct {
	Action string     `json:"action"`
	User   string     `json:"user"`
	Qty    flexString `json:"qty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func (s *HTTPServer) handleListInventory(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items := s.inventory.Search(filter)
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var body createItemRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := s.inventory.AddItem(r.Context(), service.NewItemInput{
		Item:     body.Item,
		Location: body.Location,
		Quantity: string(body.Quantity),
		Notes:    body.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *HTTPServer) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body notesRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.inventory.UpdateNotes(r.Context(), id, body.Notes); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body transactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.inventory.SubmitTransaction(r.Context(), service.TransactionInput{
		ItemID: id,
		Action: body.Action,
		User:   body.User,
		Qty:    string(body.Qty),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.drafts.Clear(r.Context(), sessionFrom(r.Context()), id)
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := s.inventory.DeleteItem(r.Context(), id, r.URL.Query().Get("user")); err != nil {
		writeServiceError(w, err)
		return
	}
	s.drafts.Clear(r.Context(), sessionFrom(r.Context()), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r.URL.Query(), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs := s.inventory.FilterTransactions(filter)
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs, "count": len(txs)})
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prefixes": s.inventory.ReportPrefixes(),
		"rows":     s.inventory.Report(r.Context(), filter),
	})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.inventory.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts := s.drafts.List(r.Context(), sessionFrom(r.Context()))
	out := make([]*models.RowDraft, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": out})
}

func (s *HTTPServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	draft := s.drafts.Get(r.Context(), sessionFrom(r.Context()), id)
	if draft == nil {
		writeError(w, http.StatusNotFound, "no draft")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body transactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	draft, err := s.drafts.Save(r.Context(), sessionFrom(r.Context()), id, body.Action, body.User, string(body.Qty))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "draft storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func inventoryFilterFromQuery(q url.Values) (models.InventoryFilter, error) {
	f := models.InventoryFilter{
		Item:     strings.TrimSpace(q.Get("item")),
		Location: strings.TrimSpace(q.Get("location")),
		Cabinet:  strings.TrimSpace(q.Get("cabinet")),
		Drawer:   strings.TrimSpace(q.Get("drawer")),
	}
	qty, err := optionalInt(q.Get("qty"), "qty")
	if err != nil {
		return f, err
	}
	f.Qty = qty
	return f, nil
}

// transactionFilterFromQuery reads the filter fields, each name optionally prefixed.
func transactionFilterFromQuery(q url.Values, prefix string) (models.TransactionFilter, error) {
	f := models.TransactionFilter{
		Item:   strings.TrimSpace(q.Get(prefix + "item")),
		User:   strings.TrimSpace(q.Get(prefix + "user")),
		Action: strings.TrimSpace(q.Get(prefix + "action")),
	}
	var err error
	if f.Qty, err = optionalInt(q.Get(prefix+"qty"), "qty"); err != nil {
		return f, err
	}
	if f.From, err = optionalDate(q.Get(prefix+"from"), "from"); err != nil {
		return f, err
	}
	if f.To, err = optionalDate(q.Get(prefix+"to"), "to"); err != nil {
		return f, err
	}
	return f, nil
}

func reportFilterFromQuery(q url.Values) (models.ReportFilter, error) {
	f := models.ReportFilter{
		Prefix: strings.TrimSpace(q.Get("prefix")),
		Custom: strings.TrimSpace(q.Get("custom")),
	}
	switch strings.ToLower(q.Get("zero_only")) {
	case "1", "true", "on", "yes":
		f.ZeroOnly = true
	}
	var err error
	if f.From, err = optionalDate(q.Get("from"), "from"); err != nil {
		return f, err
	}
	if f.To, err = optionalDate(q.Get("to"), "to"); err != nil {
		return f, err
	}
	return f, nil
}

func optionalInt(raw, name string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func optionalDate(raw, name string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(models.DateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date; expected YYYY-MM-DD", name)
	}
	return d, nil
}
