// Package postgres implements employee.Store and core.AuditLog on PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ems/internal/employee"
)

//go:embed schema.sql
var schema string

// Unique index names from schema.sql. Violations report them as the constraint name.
const (
	emailIndex = "employees_email_key"
	phoneIndex = "employees_phone_key"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables and indexes when they do not exist.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Store is an employee.Store backed by the employees table.
type Store struct {
	pool *pgxpool.Pool
}

var _ employee.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `id, first_name, last_name, email, COALESCE(phone_number, ''), department, created_at, updated_at`

const insertEmployee = `
INSERT INTO employees (first_name, last_name, email, phone_number, department)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
RETURNING id, created_at, updated_at`

func (s *Store) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM employees WHERE id = $1`, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM employees WHERE lower(email) = $1`,
		employee.NormalizeEmail(email))
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*employee.Employee, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM employees WHERE phone_number = NULLIF($1, '')`,
		employee.NormalizePhone(phone))
}

func (s *Store) findOne(ctx context.Context, sql string, args ...any) (*employee.Employee, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	e, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[employee.Employee])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, employee.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) Save(ctx context.Context, e *employee.Employee) error {
	if e.ID == 0 {
		err := s.pool.QueryRow(ctx, insertEmployee,
			e.FirstName, e.LastName, e.Email, e.PhoneNumber, e.Department,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		return mapError(err)
	}

	err := s.pool.QueryRow(ctx, `
UPDATE employees
SET first_name = $2, last_name = $3, email = $4, phone_number = NULLIF($5, ''), department = $6, updated_at = now()
WHERE id = $1
RETURNING created_at, updated_at`,
		e.ID, e.FirstName, e.LastName, e.Email, e.PhoneNumber, e.Department,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrNotFound
	}
	return mapError(err)
}

// SaveAll sends every insert in one batch inside a transaction.
func (s *Store) SaveAll(ctx context.Context, records []employee.Employee) ([]employee.Employee, error) {
	if len(records) == 0 {
		return []employee.Employee{}, nil
	}
	saved := make([]employee.Employee, len(records))
	copy(saved, records)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range saved {
			batch.Queue(insertEmployee, e.FirstName, e.LastName, e.Email, e.PhoneNumber, e.Department)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range saved {
			if err := br.QueryRow().Scan(&saved[i].ID, &saved[i].CreatedAt, &saved[i].UpdatedAt); err != nil {
				br.Close()
				return err
			}
		}
		return br.Close()
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM employees`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) List(ctx context.Context, q employee.ListQuery) (employee.Page, error) {
	departments := employee.CleanDepartments(q.Departments)
	where := `WHERE (cardinality($1::text[]) = 0 OR department = ANY($1))`

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM employees `+where, departments).Scan(&total); err != nil {
		return employee.Page{}, err
	}

	dir := "ASC"
	if q.Descending() {
		dir = "DESC"
	}
	sql := `SELECT ` + selectColumns + ` FROM employees ` + where +
		` ORDER BY first_name ` + dir + `, id ` + dir + ` LIMIT $2 OFFSET $3`

	items, err := s.collect(ctx, sql, departments, q.Size, q.Offset())
	if err != nil {
		return employee.Page{}, err
	}
	return employee.NewPage(items, q.Page, q.Size, total), nil
}

func (s *Store) Search(ctx context.Context, q employee.SearchQuery) (employee.Page, error) {
	pattern := "%" + employee.EscapeLike(strings.TrimSpace(q.Query)) + "%"
	where := `WHERE first_name ILIKE $1 ESCAPE '\'
   OR last_name ILIKE $1 ESCAPE '\'
   OR email ILIKE $1 ESCAPE '\'
   OR phone_number ILIKE $1 ESCAPE '\'`

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM employees `+where, pattern).Scan(&total); err != nil {
		return employee.Page{}, err
	}

	items, err := s.collect(ctx, `SELECT `+selectColumns+` FROM employees `+where+` ORDER BY id LIMIT $2 OFFSET $3`,
		pattern, q.Size, q.Offset())
	if err != nil {
		return employee.Page{}, err
	}
	return employee.NewPage(items, q.Page, q.Size, total), nil
}

func (s *Store) collect(ctx context.Context, sql string, args ...any) ([]employee.Employee, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[employee.Employee])
}

// mapError turns unique violations into the employee conflict sentinels.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case emailIndex:
		return fmt.Errorf("%w: %s", employee.ErrEmailTaken, pgErr.Detail)
	case phoneIndex:
		return fmt.Errorf("%w: %s", employee.ErrPhoneTaken, pgErr.Detail)
	}
	return err
}
