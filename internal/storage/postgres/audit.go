package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/netip"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ems/internal/core"
)

// AuditLog writes audit entries to the audit_log table.
type AuditLog struct {
	pool *pgxpool.Pool
}

var _ core.AuditLog = (*AuditLog)(nil)

func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

func (a *AuditLog) Record(ctx context.Context, e core.AuditEntry) error {
	var rowData []byte
	if e.RowData != nil {
		var err error
		rowData, err = json.Marshal(e.RowData)
		if err != nil {
			rowData = nil // keep the entry even if the snapshot cannot be encoded
		}
	}

	_, err := a.pool.Exec(ctx, `
INSERT INTO audit_log
    (id, action, severity, employee_id, import_id, actor, ip_address, user_agent, rows_affected, row_data, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID,
		string(e.Action),
		string(e.Severity),
		nullInt64(e.EmployeeID),
		nullString(e.ImportID),
		nullString(e.Actor),
		parseIP(e.IPAddress),
		nullString(e.UserAgent),
		e.RowsAffected,
		rowData,
		nullString(e.Reason),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// parseIP strips a port if present. Unparseable addresses are stored as NULL.
func parseIP(addr string) *netip.Addr {
	if addr == "" {
		return nil
	}
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &ip
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
