package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionEmployeeCreate AuditAction = "employee_create"
	ActionEmployeeUpdate AuditAction = "employee_update"
	ActionEmployeeDelete AuditAction = "employee_delete"
	ActionEmployeesReset AuditAction = "employees_reset"
	ActionEmployeeImport AuditAction = "employees_import"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	Severity     AuditSeverity  `json:"severity"`
	EmployeeID   int64          `json:"employeeId,omitempty"`
	ImportID     string         `json:"importId,omitempty"`
	Actor        string         `json:"actor,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	RowsAffected int            `json:"rowsAffected,omitempty"`
	RowData      map[string]any `json:"rowData,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AuditLog persists audit entries.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	EmployeeID   int64
	ImportID     string
	RowsAffected int
	RowData      map[string]any
	Reason       string
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionEmployeeImport, ActionEmployeeDelete:
		return SeverityHigh
	case ActionEmployeesReset:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// NewAuditEntry builds an entry for params, taking caller details from ctx.
func NewAuditEntry(ctx context.Context, params AuditLogParams) AuditEntry {
	client := ClientFromContext(ctx)
	return AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		EmployeeID:   params.EmployeeID,
		ImportID:     params.ImportID,
		Actor:        client.Actor,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		RowsAffected: params.RowsAffected,
		RowData:      params.RowData,
		Reason:       params.Reason,
		CreatedAt:    time.Now().UTC(),
	}
}

// LogAudit records an audit entry. Failures are logged, never returned.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) {
	entry := NewAuditEntry(ctx, params)
	if err := s.audit.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record audit entry",
			"action", entry.Action, "audit_id", entry.ID, "error", err)
	}
}

// employeeRowData is the audit snapshot of a record.
func employeeRowData(e employee.Employee) map[string]any {
	return map[string]any{
		"firstName":   e.FirstName,
		"lastName":    e.LastName,
		"email":       e.Email,
		"phoneNumber": e.PhoneNumber,
		"department":  e.Department,
	}
}

// MemoryAuditLog keeps entries in memory. It backs the memory store driver
// and tests.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func NewMemoryAuditLog() *MemoryAuditLog { return &MemoryAuditLog{} }

func (l *MemoryAuditLog) Record(ctx context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries, oldest first.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

// LoggerAuditLog writes entries to the structured log. It is used by store
// backends without an audit table.
type LoggerAuditLog struct{}

func (LoggerAuditLog) Record(ctx context.Context, e AuditEntry) error {
	logging.FromContext(ctx).Info("audit",
		"audit_id", e.ID,
		"action", e.Action,
		"severity", e.Severity,
		"employee_id", e.EmployeeID,
		"import_id", e.ImportID,
		"actor", e.Actor,
		"ip", e.IPAddress,
		"rows_affected", e.RowsAffected,
	)
	return nil
}
