package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect holds what differs between the supported database/sql drivers.
type Dialect struct {
	Name   string
	driver string
	schema []string

	// likeEscape follows every LIKE predicate. MySQL already escapes with a
	// backslash and rejects a bare '\' literal.
	likeEscape string

	// uniqueKey reports which unique key a constraint violation hit.
	uniqueKey func(err error) (string, bool)

	// dsn adjusts the connection string before it is opened.
	dsn func(string) (string, error)
}

// SQLite uses github.com/mattn/go-sqlite3. It requires cgo.
var SQLite = Dialect{
	Name:   "sqlite",
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS employees (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name   TEXT      NOT NULL,
    last_name    TEXT      NOT NULL,
    email        TEXT      NOT NULL,
    email_key    TEXT      NOT NULL,
    phone_number TEXT,
    department   TEXT      NOT NULL DEFAULT '',
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL,
    CONSTRAINT employees_email_key UNIQUE (email_key),
    CONSTRAINT employees_phone_key UNIQUE (phone_number)
)`,
		`CREATE INDEX IF NOT EXISTS employees_first_name_idx ON employees (first_name, id)`,
		`CREATE INDEX IF NOT EXISTS employees_department_idx ON employees (department)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
    id            TEXT PRIMARY KEY,
    action        TEXT      NOT NULL,
    severity      TEXT      NOT NULL,
    employee_id   INTEGER,
    import_id     TEXT,
    actor         TEXT,
    ip_address    TEXT,
    user_agent    TEXT,
    rows_affected INTEGER,
    row_data      TEXT,
    reason        TEXT,
    created_at    TIMESTAMP NOT NULL
)`,
	},
	likeEscape: ` ESCAPE '\'`,
	uniqueKey:  sqliteUniqueKey,
	dsn:        func(dsn string) (string, error) { return dsn, nil },
}

// MySQL uses github.com/go-sql-driver/mysql. Text columns use a binary
// collation so ordering matches the other stores.
var MySQL = Dialect{
	Name:   "mysql",
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS employees (
    id           BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
    first_name   VARCHAR(255) NOT NULL,
    last_name    VARCHAR(255) NOT NULL,
    email        VARCHAR(320) NOT NULL,
    email_key    VARCHAR(320) NOT NULL,
    phone_number VARCHAR(64)  NULL,
    department   VARCHAR(255) NOT NULL DEFAULT '',
    created_at   DATETIME(6)  NOT NULL,
    updated_at   DATETIME(6)  NOT NULL,
    UNIQUE KEY employees_email_key (email_key),
    UNIQUE KEY employees_phone_key (phone_number),
    KEY employees_first_name_idx (first_name, id),
    KEY employees_department_idx (department)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE TABLE IF NOT EXISTS audit_log (
    id            CHAR(36)     NOT NULL PRIMARY KEY,
    action        VARCHAR(64)  NOT NULL,
    severity      VARCHAR(16)  NOT NULL,
    employee_id   BIGINT       NULL,
    import_id     VARCHAR(64)  NULL,
    actor         VARCHAR(255) NULL,
    ip_address    VARCHAR(45)  NULL,
    user_agent    TEXT         NULL,
    rows_affected INT          NULL,
    row_data      JSON         NULL,
    reason        TEXT         NULL,
    created_at    DATETIME(6)  NOT NULL,
    KEY audit_log_created_at_idx (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	likeEscape: "",
	uniqueKey:  mysqlUniqueKey,
	dsn:        mysqlDSN,
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case SQLite.Name, SQLite.driver:
		return SQLite, nil
	case MySQL.Name:
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("sqlstore: unknown dialect %q", name)
}

// mysqlDSN enables time parsing and found-rows semantics for UPDATE.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// mysqlUniqueKey matches error 1062, "Duplicate entry 'x' for key 'employees.employees_email_key'".
func mysqlUniqueKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return "", false
	}
	return me.Message, true
}
