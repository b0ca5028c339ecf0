package employee

import (
	"context"
	"strings"
)

// Store is the persistence port for employee records.
//
// Implementations must enforce the uniqueness of the normalized email
// (case-insensitive) and of the phone number, reporting violations as
// ErrEmailTaken or ErrPhoneTaken.
type Store interface {
	// FindByID returns ErrNotFound if no record has the id.
	FindByID(ctx context.Context, id int64) (*Employee, error)

	// FindByEmail matches case-insensitively. Returns ErrNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*Employee, error)

	// FindByPhone matches exactly. Returns ErrNotFound if absent.
	FindByPhone(ctx context.Context, phone string) (*Employee, error)

	// Save inserts the record when ID is zero, otherwise updates it.
	// Inserts assign ID and timestamps on e.
	Save(ctx context.Context, e *Employee) error

	// SaveAll inserts every record or none and returns them with ids assigned.
	SaveAll(ctx context.Context, records []Employee) ([]Employee, error)

	// DeleteByID returns ErrNotFound if no record has the id.
	DeleteByID(ctx context.Context, id int64) error

	// DeleteAll removes every record and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	List(ctx context.Context, q ListQuery) (Page, error)
	Search(ctx context.Context, q SearchQuery) (Page, error)
}

// ListQuery selects one page of records ordered by first name.
type ListQuery struct {
	Page        int // 0-based
	Size        int
	Departments []string
	SortDir     string // "asc" or "desc"
}

// SearchQuery selects one page of records whose first name, last name,
// email or phone contains Query (case-insensitive), ordered by id.
type SearchQuery struct {
	Query string
	Page  int
	Size  int
}

// Page is one page of records plus the totals needed for navigation.
type Page struct {
	Items      []Employee `json:"items"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalItems int64      `json:"totalItems"`
	TotalPages int        `json:"totalPages"`
}

// NewPage fills in TotalPages from the total count.
func NewPage(items []Employee, page, size int, total int64) Page {
	if items == nil {
		items = []Employee{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: totalPages}
}

// Offset returns the row offset of the query page.
func (q ListQuery) Offset() int { return q.Page * q.Size }

// Offset returns the row offset of the query page.
func (q SearchQuery) Offset() int { return q.Page * q.Size }

// Descending reports whether the list is sorted by first name descending.
func (q ListQuery) Descending() bool { return strings.EqualFold(q.SortDir, "desc") }

// CleanDepartments trims the department filter and drops blank entries.
func CleanDepartments(departments []string) []string {
	out := make([]string, 0, len(departments))
	for _, d := range departments {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// EscapeLike escapes LIKE wildcards so the term matches literally with ESCAPE '\'.
func EscapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
