package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Minute,
		},
		Page: config.PageConfig{DefaultSize: 20, MaxSize: 100},
	}
}

type testServer struct {
	srv   *Server
	svc   *core.Service
	store *memory.Store
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	store := memory.New()
	svc := core.NewService(store, core.ServiceConfig{
		MaxFileSize:          cfg.Upload.MaxFileSize,
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		ImportWait:           cfg.Upload.MaxWaitTime,
		ImportTimeout:        cfg.Upload.Timeout,
		DefaultPageSize:      cfg.Page.DefaultSize,
		MaxPageSize:          cfg.Page.MaxSize,
	}, core.WithAuditLog(core.NewMemoryAuditLog()))
	srv := NewServer(svc, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, svc: svc, store: store}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seed(t *testing.T, people ...employee.Employee) []employee.Employee {
	t.Helper()
	out := make([]employee.Employee, len(people))
	for i, p := range people {
		e, err := ts.svc.CreateEmployee(t.Context(), p)
		if err != nil {
			t.Fatalf("seed %v: %v", p, err)
		}
		out[i] = *e
	}
	return out
}

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func xlsxBytes(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", addr, &cells); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/employees/bulk-upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var (
	ada   = employee.Employee{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", PhoneNumber: "111", Department: "Eng"}
	grace = employee.Employee{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", PhoneNumber: "222", Department: "Navy"}
	alan  = employee.Employee{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Department: "Eng"}
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["status"] != "ok" {
		t.Errorf("status field = %v, want ok", got["status"])
	}
}

func TestCreateEmployee(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.seed(t, ada)

	tests := []struct {
		name     string
		body     any
		want     int
		wantBody string
	}{
		{"created", map[string]string{"firstName": " Grace ", "lastName": "Hopper", "email": "g@x.com"}, http.StatusCreated, `"firstName":"Grace"`},
		{"duplicate email", map[string]string{"firstName": "A", "lastName": "B", "email": "ADA@example.com"}, http.StatusConflict, `"message":"Email already taken"`},
		{"duplicate phone", map[string]string{"firstName": "A", "lastName": "B", "email": "x@y.com", "phoneNumber": "111"}, http.StatusConflict, `"message":"Phone number already exists"`},
		{"missing fields", map[string]string{"firstName": "A"}, http.StatusBadRequest, `"field":"lastName"`},
		{"read fields ignored", map[string]any{"id": 0, "createdAt": "2024-01-01T00:00:00Z", "firstName": "Alan", "lastName": "Turing", "email": "alan@x.com"}, http.StatusCreated, `"firstName":"Alan"`},
		{"extra fields ignored", map[string]string{"nickname": "L", "firstName": "Linus", "lastName": "T", "email": "l@x.com"}, http.StatusCreated, `"email":"l@x.com"`},
		{"malformed body", "not an object", http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(jsonRequest(http.MethodPost, "/api/employees", tt.body))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body, tt.wantBody)
			}
		})
	}
}

func TestCreateEmployee_Location(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.do(jsonRequest(http.MethodPost, "/api/employees", ada))
	e := decode[employee.Employee](t, rec)
	if want := "/api/employees/" + itoa(e.ID); rec.Header().Get("Location") != want {
		t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), want)
	}
}

func TestGetUpdateDeleteEmployee(t *testing.T) {
	ts := newTestServer(t, testConfig())
	seeded := ts.seed(t, ada, grace)
	id := itoa(seeded[0].ID)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/employees/"+id, nil))
	if rec.Code != http.StatusOK || decode[employee.Employee](t, rec).Email != ada.Email {
		t.Fatalf("get = %d %s", rec.Code, rec.Body)
	}

	update := map[string]string{"firstName": "Ada", "lastName": "King", "email": "ada@example.com", "phoneNumber": "111"}
	rec = ts.do(jsonRequest(http.MethodPut, "/api/employees/"+id, update))
	if rec.Code != http.StatusOK || decode[employee.Employee](t, rec).LastName != "King" {
		t.Fatalf("update = %d %s", rec.Code, rec.Body)
	}

	update["email"] = grace.Email
	if rec := ts.do(jsonRequest(http.MethodPut, "/api/employees/"+id, update)); rec.Code != http.StatusConflict {
		t.Errorf("update to taken email = %d, want 409", rec.Code)
	}

	if rec := ts.do(httptest.NewRequest(http.MethodDelete, "/api/employees/"+id, nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/employees/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "EMP001" {
		t.Errorf("code = %q, want EMP001", got.Code)
	}
	if rec := ts.do(httptest.NewRequest(http.MethodDelete, "/api/employees/"+id, nil)); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestInvalidID(t *testing.T) {
	ts := newTestServer(t, testConfig())
	for _, path := range []string{"/api/employees/abc", "/api/employees/0", "/api/employees/-3"} {
		if rec := ts.do(httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, rec.Code)
		}
	}
}

func TestListEmployees(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.seed(t, ada, grace, alan)

	tests := []struct {
		name      string
		query     string
		wantNames []string
		wantTotal int64
	}{
		{"default asc", "", []string{"Ada", "Alan", "Grace"}, 3},
		{"desc", "?sortDir=desc", []string{"Grace", "Alan", "Ada"}, 3},
		{"department", "?department=Eng", []string{"Ada", "Alan"}, 2},
		{"departments comma", "?departments=Navy,%20Eng", []string{"Ada", "Alan", "Grace"}, 3},
		{"paged", "?page=1&size=2", []string{"Grace"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/employees"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			page := decode[employee.Page](t, rec)
			var names []string
			for _, e := range page.Items {
				names = append(names, e.FirstName)
			}
			if strings.Join(names, ",") != strings.Join(tt.wantNames, ",") {
				t.Errorf("names = %v, want %v", names, tt.wantNames)
			}
			if page.TotalItems != tt.wantTotal {
				t.Errorf("totalItems = %d, want %d", page.TotalItems, tt.wantTotal)
			}
		})
	}
}

func TestSearchEmployees(t *testing.T) {
	ts := newTestServer(t, testConfig())
	seeded := ts.seed(t, ada, grace, alan)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"hopper", 1},
		{"EXAMPLE.COM", 3},
		{itoa(seeded[2].ID), 1},
		{"nobody", 0},
	}
	for _, tt := range tests {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/employees/search?query="+tt.query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("search %q status = %d", tt.query, rec.Code)
		}
		if got := decode[employee.Page](t, rec).TotalItems; got != int64(tt.want) {
			t.Errorf("search %q total = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestExportEmployees(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.seed(t, grace, ada)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/employees/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID,First Name") || !strings.Contains(lines[1], "Ada") {
		t.Errorf("export = %q", lines)
	}
}

func TestDeleteAllEmployees(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.seed(t, ada, grace)

	rec := ts.do(httptest.NewRequest(http.MethodDelete, "/api/employees", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]int64](t, rec)["deleted"]; got != 2 {
		t.Errorf("deleted = %d, want 2", got)
	}
}

func TestAPIKeyRequiredForMutations(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	ts := newTestServer(t, cfg)

	if rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/employees", nil)); rec.Code != http.StatusOK {
		t.Errorf("list without key = %d, want 200", rec.Code)
	}
	if rec := ts.do(httptest.NewRequest(http.MethodDelete, "/api/employees", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("reset without key = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/employees", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := ts.do(req); rec.Code != http.StatusOK {
		t.Errorf("reset with key = %d, want 200", rec.Code)
	}
	if rec := ts.do(uploadRequest(t, "a.xlsx", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("upload without key = %d, want 401", rec.Code)
	}
}

func TestBulkUpload(t *testing.T) {
	ts := newTestServer(t, testConfig())
	data := xlsxBytes(t,
		[]string{"First Name", "Last Name", "Email", "Phone", "Department"},
		[]string{"A", "B", "a@x.com", "111", "Eng"},
		[]string{"C", "D", "a@x.com", "222", "Eng"},
	)

	rec := ts.do(uploadRequest(t, "staff.xlsx", data))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	report := decode[core.ImportReport](t, rec)
	if report.TotalRows != 2 || report.SuccessCount != 1 || report.FailureCount != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Errors) != 1 || report.Errors[0].RowNumber != 3 || report.Errors[0].Message != core.MsgDuplicateEmailFile {
		t.Errorf("errors = %+v", report.Errors)
	}
	if report.ImportID == "" || report.FileName != "staff.xlsx" {
		t.Errorf("report identity = %q %q", report.ImportID, report.FileName)
	}

	page, err := ts.store.List(t.Context(), employee.ListQuery{Size: 10})
	if err != nil || page.TotalItems != 1 {
		t.Errorf("stored = %d, %v; want 1", page.TotalItems, err)
	}
}

func TestBulkUpload_HTMX(t *testing.T) {
	ts := newTestServer(t, testConfig())
	data := xlsxBytes(t,
		[]string{"First Name", "Last Name", "Email", "Phone", "Department"},
		[]string{"A", "B", "a@x.com", "111", "Eng"},
	)
	req := uploadRequest(t, "staff.xlsx", data)
	req.Header.Set("HX-Request", "true")

	rec := ts.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "import-success") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestBulkUpload_Rejections(t *testing.T) {
	ts := newTestServer(t, testConfig())

	tests := []struct {
		name     string
		req      *http.Request
		want     int
		wantBody string
	}{
		{"missing file", uploadRequest(t, "", nil), http.StatusBadRequest, "Excel file is required"},
		{"empty file", uploadRequest(t, "staff.xlsx", nil), http.StatusBadRequest, "FILE004"},
		{"empty file wrong extension", uploadRequest(t, "staff.csv", nil), http.StatusBadRequest, "Excel file is required"},
		{"wrong extension", uploadRequest(t, "staff.csv", []byte("a,b")), http.StatusBadRequest, "FILE002"},
		{
			"missing department",
			uploadRequest(t, "staff.xlsx", xlsxBytes(t, []string{"First Name", "Last Name", "Email", "Phone"})),
			http.StatusBadRequest,
			"Missing required columns: department",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %q", rec.Body, tt.wantBody)
			}
		})
	}
}

func TestBulkUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 2048
	ts := newTestServer(t, cfg)

	tests := []struct {
		name string
		size int
	}{
		// Rejected by the importer's own size check.
		{"over file limit", 4096},
		// Rejected while parsing the multipart body.
		{"over request limit", 2 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(uploadRequest(t, "big.xlsx", bytes.Repeat([]byte("x"), tt.size)))
			if rec.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), "FILE001") {
				t.Errorf("body = %s, want it to contain FILE001", rec.Body)
			}
		})
	}
}

func TestRespondError_HTMX(t *testing.T) {
	ts := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/employees/99", nil)
	req.Header.Set("HX-Request", "true")

	rec := ts.do(req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `class="alert alert-error"`) || !strings.Contains(rec.Body.String(), "EMP001") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too large", &core.RequestError{Kind: core.KindFileTooLarge, Message: "file too large"}, http.StatusRequestEntityTooLarge},
		{"unsupported", &core.RequestError{Kind: core.KindUnsupportedFormat}, http.StatusBadRequest},
		{"schema", &core.SchemaError{}, http.StatusBadRequest},
		{"validation", &employee.ValidationError{}, http.StatusBadRequest},
		{"not found", employee.ErrNotFound, http.StatusNotFound},
		{"email", employee.ErrEmailTaken, http.StatusConflict},
		{"busy", core.ErrTooManyImports, http.StatusServiceUnavailable},
		{"other", bytes.ErrTooLarge, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
