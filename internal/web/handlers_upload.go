package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/logging"
	"github.com/JonMunkholm/ems/internal/web/views"
)

// handleBulkUpload imports the spreadsheet sent in the multipart "file" field
// and returns the import report. HTMX requests get the report as an HTML
// fragment.
func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+uploadFormOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, &core.RequestError{
				Kind:    core.KindFileTooLarge,
				Message: "file too large",
				Err:     err,
			})
			return
		}
		s.respondError(w, r, &core.RequestError{
			Kind:    core.KindMissingFile,
			Message: "Excel file is required",
			Err:     err,
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, &core.RequestError{
			Kind:    core.KindMissingFile,
			Message: "Excel file is required",
			Err:     err,
		})
		return
	}

	// ImportEmployees closes file.
	report, err := s.service.ImportEmployees(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.ImportReport(report).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render import report", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
