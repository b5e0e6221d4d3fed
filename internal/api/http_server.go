package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"toolcrib/internal/config"
	"toolcrib/internal/domain"
	"toolcrib/internal/export"
	"toolcrib/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer serves the inventory page, form posts, downloads and the JSON API.
type HTTPServer struct {
	cfg       config.HTTPConfig
	title     string
	inventory *service.InventoryService
	drafts    *service.DraftService
	logger    *zerolog.Logger
	limiter   *rateLimiter
	page      *template.Template
	server    *http.Server
	now       func() time.Time
}

func NewHTTPServer(cfg *config.Config, inventory *service.InventoryService, drafts *service.DraftService, logger *zerolog.Logger) (*HTTPServer, error) {
	page, err := parsePage()
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	limiter, err := newRateLimiter(cfg.HTTP.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limit config: %w", err)
	}

	srv := &HTTPServer{
		cfg:       cfg.HTTP,
		title:     cfg.App.Title,
		inventory: inventory,
		drafts:    drafts,
		logger:    logger,
		limiter:   limiter,
		page:      page,
		now:       time.Now,
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := chain(mux,
		srv.recoverMiddleware,
		srv.loggingMiddleware,
		srv.sessionMiddleware,
		srv.rateLimitMiddleware,
	)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv, nil
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /{$}", s.handleIndex)
	s.handle(mux, "POST /items", s.handleAddItemForm)
	s.handle(mux, "POST /items/{id}/notes", s.handleNotesForm)
	s.handle(mux, "POST /items/{id}/transactions", s.handleTransactionForm)
	s.handle(mux, "POST /items/{id}/delete", s.handleDeleteForm)
	s.handle(mux, "POST /restore", s.handleRestoreForm)

	s.handle(mux, "GET /export/inventory.csv", s.handleExportCSV)
	s.handle(mux, "GET /export/backup.xlsx", s.handleExportBackup)
	s.handle(mux, "GET /export/report.xlsx", s.handleExportReport)

	s.handle(mux, "GET /api/v1/inventory", s.handleListInventory)
	s.handle(mux, "POST /api/v1/inventory", s.handleCreateItem)
	s.handle(mux, "PATCH /api/v1/inventory/{id}/notes", s.handleUpdateNotes)
	s.handle(mux, "POST /api/v1/inventory/{id}/transactions", s.handleCreateTransaction)
	s.handle(mux, "DELETE /api/v1/inventory/{id}", s.handleDeleteItem)
	s.handle(mux, "GET /api/v1/transactions", s.handleListTransactions)
	s.handle(mux, "GET /api/v1/report", s.handleReport)
	s.handle(mux, "GET /api/v1/stats", s.handleStats)
	s.handle(mux, "GET /api/v1/drafts", s.handleListDrafts)
	s.handle(mux, "GET /api/v1/drafts/{id}", s.handleGetDraft)
	s.handle(mux, "PUT /api/v1/drafts/{id}", s.handlePutDraft)

	s.handle(mux, "GET /healthz", s.handleHealthz)
	s.handle(mux, "GET /readyz", s.handleReadyz)
}

// handle registers h and records the pattern for request logs and metrics.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if info := requestInfoFrom(r.Context()); info != nil {
			info.route = pattern
		}
		h(w, r)
	})
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.inventory.Ready(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusFor maps service errors onto HTTP status codes and user-facing text.
func statusFor(err error) (int, string) {
	if ve, ok := service.AsValidation(err); ok {
		return http.StatusUnprocessableEntity, ve.Message
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, export.ErrInvalidBackup):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "data service timed out"
	default:
		return http.StatusBadGateway, "data service error"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if ve, ok := service.AsValidation(err); ok {
		writeJSON(w, status, map[string]string{"error": msg, "field": ve.Field})
		return
	}
	writeError(w, status, msg)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
