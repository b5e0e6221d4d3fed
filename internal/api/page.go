package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"toolcrib/internal/export"
	"toolcrib/internal/models"
	"toolcrib/internal/service"
)

//go:embed templates/index.html
var templatesFS embed.FS

var notices = map[string]string{
	"added":    "Item added.",
	"notes":    "Notes saved.",
	"recorded": "Transaction recorded.",
	"deleted":  "Item deleted.",
	"restored": "Backup restored. Data refreshed.",
}

func parsePage() (*template.Template, error) {
	return template.New("index.html").Funcs(template.FuncMap{
		"ts": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return models.FormatTimestamp(t)
		},
	}).ParseFS(templatesFS, "templates/index.html")
}

// pageRow is one inventory row plus the transaction sub-form state bound to it.
type pageRow struct {
	models.InventoryItem
	Action string
	User   string
	Qty    int64
	Open   bool
}

type pageData struct {
	Title         string
	Alert         string
	Notice        string
	AddForm       service.NewItemInput
	Query         url.Values
	Rows          []pageRow
	TotalItems    int
	Transactions  []models.Transaction
	Actions       []string
	FilterActions []string
	Prefixes      []string
	Stats         *models.Stats
	Loading       bool
	LoadedAt      time.Time
}

type pageState struct {
	alert   string
	addForm service.NewItemInput
	openRow int64
}

func (s *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.inventory.Refresh(r.Context())
	s.renderPage(w, r, http.StatusOK, pageState{})
}

func (s *HTTPServer) renderPage(w http.ResponseWriter, r *http.Request, status int, st pageState) {
	ctx := r.Context()
	q := r.URL.Query()
	snap := s.inventory.Snapshot()

	data := pageData{
		Title:         s.title,
		Alert:         st.alert,
		Notice:        notices[q.Get("notice")],
		AddForm:       st.addForm,
		Query:         q,
		TotalItems:    len(snap.Items),
		Actions:       models.TransactionActions,
		FilterActions: []string{"All", models.ActionCheckOut, models.ActionCheckIn, models.ActionDeleted},
		Prefixes:      s.inventory.ReportPrefixes(),
		Loading:       snap.Loading,
		LoadedAt:      snap.LoadedAt,
	}

	filter, err := inventoryFilterFromQuery(q)
	if err != nil && data.Alert == "" {
		data.Alert = err.Error()
	}
	txFilter, err := transactionFilterFromQuery(q, "tx_")
	if err != nil && data.Alert == "" {
		data.Alert = err.Error()
	}
	data.Transactions = s.inventory.FilterTransactions(txFilter)

	if q.Get("check") != "" {
		if stats, err := s.inventory.Stats(ctx); err != nil {
			_, msg := statusFor(err)
			data.Alert = msg
		} else {
			data.Stats = &stats
		}
	}

	drafts := s.drafts.List(ctx, sessionFrom(ctx))
	for _, it := range s.inventory.Search(filter) {
		d := drafts[it.ID]
		data.Rows = append(data.Rows, pageRow{
			InventoryItem: it,
			Action:        d.ActionOrDefault(),
			User:          d.UserOrEmpty(),
			Qty:           d.QtyOrDefault(),
			Open:          d != nil || it.ID == st.openRow,
		})
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.Error().Err(err).Msg("render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) redirectHome(w http.ResponseWriter, r *http.Request, notice string) {
	http.Redirect(w, r, "/?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

// formFailed re-renders the page with the error shown in the alert box.
func (s *HTTPServer) formFailed(w http.ResponseWriter, r *http.Request, err error, st pageState) {
	status, msg := statusFor(err)
	st.alert = msg
	s.renderPage(w, r, status, st)
}

func (s *HTTPServer) handleAddItemForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := service.NewItemInput{
		Item:     r.PostFormValue("item"),
		Location: r.PostFormValue("location"),
		Quantity: r.PostFormValue("quantity"),
		Notes:    r.PostFormValue("notes"),
	}

	if _, err := s.inventory.AddItem(r.Context(), in); err != nil {
		s.formFailed(w, r, err, pageState{addForm: in})
		return
	}
	s.redirectHome(w, r, "added")
}

func (s *HTTPServer) handleNotesForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if err := s.inventory.UpdateNotes(r.Context(), id, r.PostFormValue("notes")); err != nil {
		s.formFailed(w, r, err, pageState{openRow: id})
		return
	}
	s.redirectHome(w, r, "notes")
}

func (s *HTTPServer) handleTransactionForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	session := sessionFrom(ctx)
	in := service.TransactionInput{
		ItemID: id,
		Action: r.PostFormValue("action"),
		User:   r.PostFormValue("user"),
		Qty:    r.PostFormValue("qty"),
	}
	// the row keeps what was typed until a submit succeeds
	_, _ = s.drafts.Save(ctx, session, id, in.Action, in.User, in.Qty)

	if _, err := s.inventory.SubmitTransaction(ctx, in); err != nil {
		s.formFailed(w, r, err, pageState{openRow: id})
		return
	}
	s.drafts.Clear(ctx, session, id)
	s.redirectHome(w, r, "recorded")
}

func (s *HTTPServer) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if err := s.inventory.DeleteItem(r.Context(), id, r.PostFormValue("user")); err != nil {
		s.formFailed(w, r, err, pageState{openRow: id})
		return
	}
	s.drafts.Clear(r.Context(), sessionFrom(r.Context()), id)
	s.redirectHome(w, r, "deleted")
}

func (s *HTTPServer) handleRestoreForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.formFailed(w, r, export.ErrInvalidBackup, pageState{})
		return
	}
	file, _, err := r.FormFile("backup")
	if err != nil {
		s.formFailed(w, r, export.ErrInvalidBackup, pageState{})
		return
	}
	defer file.Close()

	items, txs, err := export.ReadBackup(file)
	if err != nil {
		s.logger.Warn().Err(err).Msg("restore rejected")
		s.formFailed(w, r, err, pageState{})
		return
	}
	if err := s.inventory.Restore(r.Context(), items, txs); err != nil {
		s.formFailed(w, r, err, pageState{})
		return
	}
	s.redirectHome(w, r, "restored")
}
