package api

import (
	"bytes"
	"net/http"

	"toolcrib/internal/export"
)

// handleExportCSV downloads every loaded row, ignoring any search filter.
func (s *HTTPServer) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap := s.inventory.Snapshot()

	var buf bytes.Buffer
	if err := export.WriteInventoryCSV(&buf, snap.Items); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	attachment(w, "text/csv; charset=utf-8", export.InventoryCSVFilename(s.now()))
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	items, txs, err := s.inventory.FullHistory(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("backup read failed")
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBackup(&buf, items, txs); err != nil {
		s.logger.Error().Err(err).Msg("backup export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	attachment(w, export.XLSXContentType, export.BackupFilename(s.now()))
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleExportReport(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows := s.inventory.Report(r.Context(), filter)

	now := s.now()
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, s.title, now, rows); err != nil {
		s.logger.Error().Err(err).Msg("report export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	attachment(w, export.XLSXContentType, export.ReportFilename(now))
	_, _ = buf.WriteTo(w)
}
