// Package sqlstore implements employee.Store on database/sql for SQLite and
// MySQL. Case-insensitive email uniqueness is carried by an email_key column
// holding the normalized address.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/ems/internal/employee"
)

// Options tunes the connection pool. Zero values keep the driver defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open connects with dialect d and verifies the connection.
func Open(ctx context.Context, d Dialect, dsn string, opts Options) (*sql.DB, error) {
	dsn, err := d.dsn(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}

	if d.Name == SQLite.Name {
		// One connection: an in-memory database is per connection and SQLite
		// serializes writers anyway.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	return db, nil
}

// Migrate creates the tables and indexes when they do not exist.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", d.Name, err)
		}
	}
	return nil
}

// Store is an employee.Store over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ employee.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d, now: time.Now}
}

const selectColumns = `SELECT id, first_name, last_name, email, phone_number, department, created_at, updated_at FROM employees`

const insertEmployee = `INSERT INTO employees
    (first_name, last_name, email, email_key, phone_number, department, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (employee.Employee, error) {
	var (
		e     employee.Employee
		phone sql.NullString
	)
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &phone, &e.Department, &e.CreatedAt, &e.UpdatedAt)
	e.PhoneNumber = phone.String
	return e, err
}

func (s *Store) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	return s.findOne(ctx, selectColumns+` WHERE id = ?`, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	return s.findOne(ctx, selectColumns+` WHERE email_key = ?`, employee.NormalizeEmail(email))
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*employee.Employee, error) {
	phone = employee.NormalizePhone(phone)
	if phone == "" {
		return nil, employee.ErrNotFound
	}
	return s.findOne(ctx, selectColumns+` WHERE phone_number = ?`, phone)
}

func (s *Store) findOne(ctx context.Context, query string, args ...any) (*employee.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, employee.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// timestamp is the current time at the precision every dialect stores.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) Save(ctx context.Context, e *employee.Employee) error {
	now := s.timestamp()

	if e.ID == 0 {
		res, err := s.db.ExecContext(ctx, insertEmployee, insertArgs(*e, now)...)
		if err != nil {
			return s.mapError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		e.ID, e.CreatedAt, e.UpdatedAt = id, now, now
		return nil
	}

	res, err := s.db.ExecContext(ctx, `UPDATE employees
SET first_name = ?, last_name = ?, email = ?, email_key = ?, phone_number = ?, department = ?, updated_at = ?
WHERE id = ?`,
		e.FirstName, e.LastName, e.Email, employee.NormalizeEmail(e.Email), nullable(e.PhoneNumber), e.Department, now, e.ID)
	if err != nil {
		return s.mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return employee.ErrNotFound
	}

	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM employees WHERE id = ?`, e.ID).Scan(&e.CreatedAt); err != nil {
		return err
	}
	e.UpdatedAt = now
	return nil
}

// SaveAll inserts through one prepared statement inside a transaction.
func (s *Store) SaveAll(ctx context.Context, records []employee.Employee) (saved []employee.Employee, err error) {
	if len(records) == 0 {
		return []employee.Employee{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertEmployee)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	saved = make([]employee.Employee, len(records))
	for i, e := range records {
		res, err := stmt.ExecContext(ctx, insertArgs(e, now)...)
		if err != nil {
			return nil, s.mapError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		e.ID, e.CreatedAt, e.UpdatedAt = id, now, now
		saved[i] = e
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return saved, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return employee.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) List(ctx context.Context, q employee.ListQuery) (employee.Page, error) {
	var (
		where string
		args  []any
	)
	if departments := employee.CleanDepartments(q.Departments); len(departments) > 0 {
		where = ` WHERE department IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(departments)), ", ") + `)`
		for _, d := range departments {
			args = append(args, d)
		}
	}

	dir := "ASC"
	if q.Descending() {
		dir = "DESC"
	}
	order := ` ORDER BY first_name ` + dir + `, id ` + dir
	return s.page(ctx, where, order, args, q.Page, q.Size)
}

func (s *Store) Search(ctx context.Context, q employee.SearchQuery) (employee.Page, error) {
	pattern := "%" + strings.ToLower(employee.EscapeLike(strings.TrimSpace(q.Query))) + "%"
	like := ` LIKE ?` + s.dialect.likeEscape
	where := ` WHERE LOWER(first_name)` + like +
		` OR LOWER(last_name)` + like +
		` OR LOWER(email)` + like +
		` OR LOWER(phone_number)` + like
	args := []any{pattern, pattern, pattern, pattern}
	return s.page(ctx, where, ` ORDER BY id`, args, q.Page, q.Size)
}

func (s *Store) page(ctx context.Context, where, order string, args []any, page, size int) (employee.Page, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`+where, args...).Scan(&total); err != nil {
		return employee.Page{}, err
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+where+order+` LIMIT ? OFFSET ?`,
		append(args, size, page*size)...)
	if err != nil {
		return employee.Page{}, err
	}
	defer rows.Close()

	var items []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return employee.Page{}, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return employee.Page{}, err
	}
	return employee.NewPage(items, page, size, total), nil
}

// mapError turns unique key violations into the employee conflict sentinels.
func (s *Store) mapError(err error) error {
	key, ok := s.dialect.uniqueKey(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(key, "email_key"):
		return fmt.Errorf("%w: %s", employee.ErrEmailTaken, key)
	case strings.Contains(key, "phone"):
		return fmt.Errorf("%w: %s", employee.ErrPhoneTaken, key)
	}
	return err
}

func insertArgs(e employee.Employee, now time.Time) []any {
	return []any{
		e.FirstName,
		e.LastName,
		e.Email,
		employee.NormalizeEmail(e.Email),
		nullable(e.PhoneNumber),
		e.Department,
		now,
		now,
	}
}

// nullable stores an empty phone as NULL so it never collides.
func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
