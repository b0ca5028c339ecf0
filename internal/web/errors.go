package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error type
//  4. core.MapError supplies the user message, action and support code
//  5. The technical error is logged with the request id for correlation
//  6. The message is rendered as JSON, or as an HTML fragment for HTMX

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/logging"
	"github.com/JonMunkholm/ems/internal/web/views"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Action  string                `json:"action,omitempty"`
	Code    string                `json:"code"`
	Fields  []employee.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		reqErr  *core.RequestError
		schema  *core.SchemaError
		invalid *employee.ValidationError
	)
	switch {
	case errors.As(err, &reqErr):
		if reqErr.Kind == core.KindFileTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errors.As(err, &schema), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, employee.ErrNotFound):
		return http.StatusNotFound
	case employee.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and returns a
// user-facing message. Upload rejections keep their exact text.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", userMsg.Code,
		"error", err.Error(),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Info("request rejected")
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if core.IsRequestError(err) {
		resp.Error, resp.Message = err.Error(), err.Error()
	}
	var invalid *employee.ValidationError
	if errors.As(err, &invalid) {
		resp.Fields = invalid.Fields
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.Upload.MaxWaitTime.Seconds())))
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := views.ErrorAlert(resp.Message, resp.Action, resp.Code).Render(r.Context(), w); err != nil {
			logger.Error("render error alert", "render_error", err)
		}
		return
	}
	writeJSON(w, r, status, resp)
}

// badRequest reports a malformed request parameter or body.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	logging.FromContext(r.Context()).Info("bad request", "path", r.URL.Path, "reason", message)
	writeJSON(w, r, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "VAL000",
	})
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}
