package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleHealth reports liveness and the import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"imports": s.service.Limiter().Status(),
	})
}

// handleListDatasets returns all registered datasets as JSON.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ListDatasets())
}

// handleExport streams a dataset as xlsx (default), csv or json.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	datasetKey := chi.URLParam(r, "datasetKey")
	format := r.URL.Query().Get("format")

	dst := &httpDestination{w: w}
	result, err := s.service.Export(requestContext(r), datasetKey, format, dst)
	s.finishDownload(w, r, dst, result, err)
}

// handleTemplate downloads an empty xlsx with the dataset's headers and
// metadata sheet.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	datasetKey := chi.URLParam(r, "datasetKey")

	dst := &httpDestination{w: w}
	result, err := s.service.Template(requestContext(r), datasetKey, dst)
	s.finishDownload(w, r, dst, result, err)
}

// finishDownload reports failures that happened before any bytes were sent.
// Once the body is written the status can no longer change, so later
// failures are only logged.
func (s *Server) finishDownload(w http.ResponseWriter, r *http.Request, dst *httpDestination, result core.ExportResult, err error) {
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if result.Success {
		return
	}
	if dst.written {
		logging.FromContext(r.Context()).Error("export failed after response started",
			"file", result.FileName,
			"error", result.Error,
		)
		return
	}
	s.respondError(w, r, errors.New(result.Error), http.StatusInternalServerError)
}

// httpDestination delivers an export as a file download.
type httpDestination struct {
	w       http.ResponseWriter
	written bool
}

func (d *httpDestination) Deliver(ctx context.Context, fileName, contentType string, data []byte) error {
	h := d.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	d.w.WriteHeader(http.StatusOK)
	d.written = true

	_, err := d.w.Write(data)
	return err
}
