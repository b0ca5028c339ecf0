package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/logging"
)

// ServiceConfig carries the limits the service enforces.
type ServiceConfig struct {
	MaxFileSize          int64
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration
	ResetTimeout         time.Duration
	DefaultPageSize      int
	MaxPageSize          int
}

// DefaultServiceConfig returns the limits used when none are configured.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxFileSize:          10 << 20,
		MaxConcurrentImports: DefaultMaxConcurrentImports,
		ImportWait:           DefaultImportWait,
		ImportTimeout:        10 * time.Minute,
		ResetTimeout:         30 * time.Second,
		DefaultPageSize:      20,
		MaxPageSize:          100,
	}
}

// Service provides the business logic for employee records.
type Service struct {
	store    employee.Store
	importer *Importer
	limiter  *ImportLimiter
	audit    AuditLog
	events   EventPublisher
	cfg      ServiceConfig
}

// Option customizes a Service.
type Option func(*Service)

// WithAuditLog sets where audit entries go. Defaults to LoggerAuditLog.
func WithAuditLog(l AuditLog) Option {
	return func(s *Service) { s.audit = l }
}

// WithPublisher sets the event publisher. Defaults to NopPublisher.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// NewService creates a Service over store.
func NewService(store employee.Store, cfg ServiceConfig, opts ...Option) *Service {
	def := DefaultServiceConfig()
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = def.MaxPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = def.ImportTimeout
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}

	s := &Service{
		store:    store,
		importer: NewImporter(store, cfg.MaxFileSize),
		limiter:  NewImportLimiter(cfg.MaxConcurrentImports, cfg.ImportWait),
		audit:    LoggerAuditLog{},
		events:   NopPublisher{},
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEmployee validates and stores a new record.
func (s *Service) CreateEmployee(ctx context.Context, in employee.Employee) (*employee.Employee, error) {
	e := in.Trimmed()
	e.ID = 0
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkDuplicates(ctx, e, 0); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, &e); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	logging.FromContext(ctx).Info("employee created", "employee_id", e.ID)
	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionEmployeeCreate,
		EmployeeID:   e.ID,
		RowsAffected: 1,
		RowData:      employeeRowData(e),
	})
	s.publish(ctx, EventEmployeeCreated, e)
	return &e, nil
}

// GetEmployee returns the record with id or employee.ErrNotFound.
func (s *Service) GetEmployee(ctx context.Context, id int64) (*employee.Employee, error) {
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get employee %d: %w", id, err)
	}
	return e, nil
}

// UpdateEmployee replaces the editable fields of record id. Duplicate checks
// ignore the record itself.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, in employee.Employee) (*employee.Employee, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update employee %d: %w", id, err)
	}

	e := in.Trimmed()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkDuplicates(ctx, e, id); err != nil {
		return nil, err
	}

	e.ID = id
	e.CreatedAt = current.CreatedAt
	if err := s.store.Save(ctx, &e); err != nil {
		return nil, fmt.Errorf("update employee %d: %w", id, err)
	}

	logging.FromContext(ctx).Info("employee updated", "employee_id", id)
	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionEmployeeUpdate,
		EmployeeID:   id,
		RowsAffected: 1,
		RowData: map[string]any{
			"before": employeeRowData(*current),
			"after":  employeeRowData(e),
		},
	})
	s.publish(ctx, EventEmployeeUpdated, e)
	return &e, nil
}

// DeleteEmployee removes record id.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete employee %d: %w", id, err)
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete employee %d: %w", id, err)
	}

	logging.FromContext(ctx).Info("employee deleted", "employee_id", id)
	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionEmployeeDelete,
		EmployeeID:   id,
		RowsAffected: 1,
		RowData:      employeeRowData(*current),
	})
	s.publish(ctx, EventEmployeeDeleted, map[string]any{"id": id})
	return nil
}

// DeleteAllEmployees removes every record. It is an administrative
// operation and is bounded by the reset timeout.
func (s *Service) DeleteAllEmployees(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ResetTimeout)
	defer cancel()

	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all employees: %w", err)
	}

	logging.FromContext(ctx).Warn("all employees deleted", "deleted", n)
	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionEmployeesReset,
		RowsAffected: int(n),
	})
	s.publish(ctx, EventEmployeesReset, map[string]any{"deleted": n})
	return n, nil
}

// ListEmployees returns one page sorted by first name.
func (s *Service) ListEmployees(ctx context.Context, q employee.ListQuery) (employee.Page, error) {
	q.Page, q.Size = s.clampPage(q.Page, q.Size)
	q.Departments = employee.CleanDepartments(q.Departments)
	if !q.Descending() {
		q.SortDir = "asc"
	}

	page, err := s.store.List(ctx, q)
	if err != nil {
		return employee.Page{}, fmt.Errorf("list employees: %w", err)
	}
	return page, nil
}

// SearchEmployees matches query against names, email and phone. A blank
// query lists everything; an all-digit query naming an existing id returns
// just that record.
func (s *Service) SearchEmployees(ctx context.Context, query string, page, size int) (employee.Page, error) {
	query = strings.TrimSpace(query)
	page, size = s.clampPage(page, size)

	if query == "" {
		return s.ListEmployees(ctx, employee.ListQuery{Page: page, Size: size, SortDir: "asc"})
	}

	if isDigits(query) {
		if id, err := strconv.ParseInt(query, 10, 64); err == nil {
			e, err := s.store.FindByID(ctx, id)
			switch {
			case err == nil:
				return employee.NewPage([]employee.Employee{*e}, page, size, 1), nil
			case !errors.Is(err, employee.ErrNotFound):
				return employee.Page{}, fmt.Errorf("search employees: %w", err)
			}
		}
	}

	result, err := s.store.Search(ctx, employee.SearchQuery{Query: query, Page: page, Size: size})
	if err != nil {
		return employee.Page{}, fmt.Errorf("search employees: %w", err)
	}
	return result, nil
}

// ImportEmployees runs a bulk import while holding an import slot. rc is
// closed on every path.
func (s *Service) ImportEmployees(ctx context.Context, fileName string, rc io.ReadCloser) (*ImportReport, error) {
	if rc == nil {
		return nil, requestError(KindMissingFile, "Excel file is required", nil)
	}

	importID := uuid.NewString()
	ctx = logging.ContextWithImportID(ctx, importID)
	logger := logging.WithFields(ctx, "file", fileName)

	var (
		report  *ImportReport
		started bool
	)
	err := s.limiter.Run(ctx, func(ctx context.Context) error {
		started = true
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ImportTimeout)
		defer cancel()

		start := time.Now()
		logger.Info("import started")

		r, err := s.importer.Process(ctx, fileName, rc)
		if err != nil {
			return err
		}
		r.ImportID = importID
		report = r

		logger.Info("import completed",
			"total", r.TotalRows,
			"saved", r.SuccessCount,
			"failed", r.FailureCount,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		// Process owns rc once it runs.
		if !started {
			_ = rc.Close()
		}
		if IsRequestError(err) {
			logger.Info("import rejected", "reason", err.Error())
		} else {
			logger.Error("import failed", "error", err)
		}
		return nil, err
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionEmployeeImport,
		ImportID:     importID,
		RowsAffected: report.SuccessCount,
		RowData: map[string]any{
			"fileName":     fileName,
			"totalRows":    report.TotalRows,
			"failureCount": report.FailureCount,
		},
	})
	s.publish(ctx, EventEmployeesImported, report)
	return report, nil
}

// LimiterStatus reports the import limiter state.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// checkDuplicates rejects an email or phone held by a record other than self.
func (s *Service) checkDuplicates(ctx context.Context, e employee.Employee, self int64) error {
	other, err := s.store.FindByEmail(ctx, e.Email)
	switch {
	case err == nil && other.ID != self:
		return employee.ErrEmailTaken
	case err != nil && !errors.Is(err, employee.ErrNotFound):
		return fmt.Errorf("check email: %w", err)
	}

	if e.PhoneNumber == "" {
		return nil
	}
	other, err = s.store.FindByPhone(ctx, e.PhoneNumber)
	switch {
	case err == nil && other.ID != self:
		return employee.ErrPhoneTaken
	case err != nil && !errors.Is(err, employee.ErrNotFound):
		return fmt.Errorf("check phone: %w", err)
	}
	return nil
}

func (s *Service) clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return page, size
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
