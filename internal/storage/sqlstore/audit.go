package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/ems/internal/core"
)

// AuditLog writes audit entries to the audit_log table.
type AuditLog struct {
	db *sql.DB
}

var _ core.AuditLog = (*AuditLog)(nil)

func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (a *AuditLog) Record(ctx context.Context, e core.AuditEntry) error {
	var rowData sql.NullString
	if e.RowData != nil {
		if b, err := json.Marshal(e.RowData); err == nil {
			rowData = sql.NullString{String: string(b), Valid: true}
		}
	}
	var employeeID sql.NullInt64
	if e.EmployeeID != 0 {
		employeeID = sql.NullInt64{Int64: e.EmployeeID, Valid: true}
	}

	_, err := a.db.ExecContext(ctx, `INSERT INTO audit_log
    (id, action, severity, employee_id, import_id, actor, ip_address, user_agent, rows_affected, row_data, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		string(e.Action),
		string(e.Severity),
		employeeID,
		nullable(e.ImportID),
		nullable(e.Actor),
		nullable(e.IPAddress),
		nullable(e.UserAgent),
		e.RowsAffected,
		rowData,
		nullable(e.Reason),
		e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
