package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// errNoFile maps to FILE004.
var errNoFile = errors.New("no file provided")

// handlePreview analyzes an uploaded file and returns what a commit would do.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	datasetKey := chi.URLParam(r, "datasetKey")

	file, header, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	resp, err := s.service.Preview(requestContext(r), datasetKey, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.PreviewSummary(resp).Render(r.Context(), w)
		return
	}
	writeJSON(w, resp)
}

// handleCommit applies an uploaded file. The optional "lines" form field is
// a comma-separated list of line numbers to apply; without it every row
// that previews as CREATE or UPDATE is applied.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	datasetKey := chi.URLParam(r, "datasetKey")

	file, header, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	lines, err := parseLines(r.FormValue("lines"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Commit(requestContext(r), datasetKey, header.Filename, file, lines)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

// handleImportStatus returns the current state of the import limiter.
// Used for monitoring and to check if the system can accept more imports.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Limiter().Status())
}

// uploadedFile reads the "file" part of a multipart request capped at the
// configured import size. On failure the error response is already written.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	// headroom for the multipart envelope and the other form fields
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: exceeds %d bytes", maxSize), http.StatusRequestEntityTooLarge)
			return nil, nil, false
		}
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return nil, nil, false
	}
	return file, header, true
}

// parseLines parses "3,5, 9" into line numbers.
func parseLines(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	lines := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 2 {
			return nil, fmt.Errorf("invalid line number %q", p)
		}
		lines = append(lines, n)
	}
	return lines, nil
}
