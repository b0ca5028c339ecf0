package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/employee/storetest"
)

// testPool connects to EMS_TEST_POSTGRES_URL and resets the tables.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("EMS_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("EMS_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, PoolConfig{URL: url, MaxConns: 4})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE employees, audit_log RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) employee.Store {
		return New(testPool(t))
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := testPool(t)
	if err := Migrate(context.Background(), pool); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestAuditLog_Record(t *testing.T) {
	pool := testPool(t)
	log := NewAuditLog(pool)
	ctx := core.ContextWithClient(context.Background(), core.ClientInfo{IPAddress: "10.1.2.3:5555", UserAgent: "test"})

	entry := core.NewAuditEntry(ctx, core.AuditLogParams{
		Action:       core.ActionEmployeeImport,
		ImportID:     "imp-1",
		RowsAffected: 3,
		RowData:      map[string]any{"fileName": "staff.xlsx"},
	})
	if err := log.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	var (
		action, severity, ip string
		rows                 int
	)
	err := pool.QueryRow(ctx, `SELECT action, severity, host(ip_address), rows_affected FROM audit_log WHERE id = $1`, entry.ID).
		Scan(&action, &severity, &ip, &rows)
	if err != nil {
		t.Fatalf("select audit entry: %v", err)
	}
	if action != string(core.ActionEmployeeImport) || severity != string(core.SeverityHigh) || ip != "10.1.2.3" || rows != 3 {
		t.Errorf("audit row = %s/%s/%s/%d", action, severity, ip, rows)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email index", &pgconn.PgError{Code: "23505", ConstraintName: emailIndex}, employee.ErrEmailTaken},
		{"phone index", &pgconn.PgError{Code: "23505", ConstraintName: phoneIndex}, employee.ErrPhoneTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("mapError() = %v, want %v", got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "23503"}
	if got := mapError(other); got != error(other) {
		t.Errorf("mapError(fk violation) = %v, want unchanged", got)
	}
	if mapError(nil) != nil {
		t.Error("mapError(nil) != nil")
	}
}

func TestParseIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.168.1.1", "192.168.1.1"},
		{"192.168.1.1:8080", "192.168.1.1"},
		{"[::1]:443", "::1"},
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := parseIP(tt.in)
		if tt.want == "" {
			if got != nil {
				t.Errorf("parseIP(%q) = %v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("parseIP(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}
