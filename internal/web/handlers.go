package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/logging"
)

// maxJSONBody bounds create and update request bodies.
const maxJSONBody = 64 << 10

// employeeRequest is the body of create and update requests. Other fields,
// such as id and timestamps echoed back from a read, are ignored.
type employeeRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Department  string `json:"department"`
}

func (req employeeRequest) toEmployee() employee.Employee {
	return employee.Employee{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Department:  req.Department,
	}
}

// parseIntParam parses an integer query parameter. Missing or malformed
// values fall back to defaultVal.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// parseDepartments accepts repeated department parameters as well as
// comma-separated lists.
func parseDepartments(r *http.Request) []string {
	q := r.URL.Query()
	var out []string
	for _, key := range []string{"department", "departments"} {
		for _, v := range q[key] {
			out = append(out, strings.Split(v, ",")...)
		}
	}
	return out
}

// parseID reads the {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid employee id %q", raw)
	}
	return id, nil
}

func (s *Server) decodeEmployee(w http.ResponseWriter, r *http.Request) (employee.Employee, bool) {
	var req employeeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		s.badRequest(w, r, "invalid request body")
		return employee.Employee{}, false
	}
	return req.toEmployee(), true
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListEmployees(r.Context(), employee.ListQuery{
		Page:        parseIntParam(r, "page", 0),
		Size:        parseIntParam(r, "size", 0),
		Departments: parseDepartments(r),
		SortDir:     r.URL.Query().Get("sortDir"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleSearchEmployees(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.SearchEmployees(r.Context(),
		r.URL.Query().Get("query"),
		parseIntParam(r, "page", 0),
		parseIntParam(r, "size", 0),
	)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleExportEmployees streams every record as a CSV attachment. The export
// is buffered so a store failure can still be reported with a proper status.
func (s *Server) handleExportEmployees(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.service.ExportEmployees(r.Context(), &buf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("employees_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("write export", "error", err)
		return
	}
	logging.FromContext(r.Context()).Info("export completed", "rows", n)
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	e, err := s.service.GetEmployee(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeEmployee(w, r)
	if !ok {
		return
	}
	e, err := s.service.CreateEmployee(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/employees/"+strconv.FormatInt(e.ID, 10))
	writeJSON(w, r, http.StatusCreated, e)
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	in, ok := s.decodeEmployee(w, r)
	if !ok {
		return
	}
	e, err := s.service.UpdateEmployee(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if err := s.service.DeleteEmployee(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllEmployees is the administrative reset.
func (s *Server) handleDeleteAllEmployees(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.DeleteAllEmployees(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"deleted": n})
}
