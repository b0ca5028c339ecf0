// Package memory is an in-process employee.Store used by tests and by the
// "memory" store driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/ems/internal/employee"
)

// Store keeps employees in maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]employee.Employee
	byEmail map[string]int64
	byPhone map[string]int64
	now     func() time.Time
}

var _ employee.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[int64]employee.Employee),
		byEmail: make(map[string]int64),
		byPhone: make(map[string]int64),
		now:     time.Now,
	}
}

func (s *Store) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, employee.ErrNotFound
	}
	return &e, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[employee.NormalizeEmail(email)]
	if !ok {
		return nil, employee.ErrNotFound
	}
	e := s.byID[id]
	return &e, nil
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPhone[phone]
	if !ok || phone == "" {
		return nil, employee.ErrNotFound
	}
	e := s.byID[id]
	return &e, nil
}

func (s *Store) Save(ctx context.Context, e *employee.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == 0 {
		if err := s.checkUnique(*e, 0, nil, nil); err != nil {
			return err
		}
		s.insert(e)
		return nil
	}

	old, ok := s.byID[e.ID]
	if !ok {
		return employee.ErrNotFound
	}
	if err := s.checkUnique(*e, e.ID, nil, nil); err != nil {
		return err
	}
	s.unindex(old)
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = s.now()
	s.byID[e.ID] = *e
	s.index(*e)
	return nil
}

// SaveAll checks the whole batch, against the store and against itself,
// before inserting anything.
func (s *Store) SaveAll(ctx context.Context, records []employee.Employee) ([]employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emails := make(map[string]bool, len(records))
	phones := make(map[string]bool, len(records))
	for _, e := range records {
		if err := s.checkUnique(e, 0, emails, phones); err != nil {
			return nil, err
		}
		emails[employee.NormalizeEmail(e.Email)] = true
		if e.PhoneNumber != "" {
			phones[e.PhoneNumber] = true
		}
	}

	saved := make([]employee.Employee, len(records))
	for i := range records {
		e := records[i]
		s.insert(&e)
		saved[i] = e
	}
	return saved, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return employee.ErrNotFound
	}
	s.unindex(e)
	delete(s.byID, id)
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.byID))
	s.byID = make(map[int64]employee.Employee)
	s.byEmail = make(map[string]int64)
	s.byPhone = make(map[string]int64)
	return n, nil
}

func (s *Store) List(ctx context.Context, q employee.ListQuery) (employee.Page, error) {
	depts := employee.CleanDepartments(q.Departments)
	s.mu.RLock()
	matched := s.filter(func(e employee.Employee) bool {
		if len(depts) == 0 {
			return true
		}
		for _, d := range depts {
			if e.Department == d {
				return true
			}
		}
		return false
	})
	s.mu.RUnlock()

	desc := q.Descending()
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.FirstName != b.FirstName {
			if desc {
				return a.FirstName > b.FirstName
			}
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return paginate(matched, q.Page, q.Size), nil
}

func (s *Store) Search(ctx context.Context, q employee.SearchQuery) (employee.Page, error) {
	term := strings.ToLower(strings.TrimSpace(q.Query))
	s.mu.RLock()
	matched := s.filter(func(e employee.Employee) bool {
		for _, field := range []string{e.FirstName, e.LastName, e.Email, e.PhoneNumber} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	})
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, q.Page, q.Size), nil
}

// checkUnique reports a conflict with stored records other than self, or
// with the pending keys of the current batch.
func (s *Store) checkUnique(e employee.Employee, self int64, emails, phones map[string]bool) error {
	key := employee.NormalizeEmail(e.Email)
	if id, ok := s.byEmail[key]; (ok && id != self) || emails[key] {
		return employee.ErrEmailTaken
	}
	if e.PhoneNumber == "" {
		return nil
	}
	if id, ok := s.byPhone[e.PhoneNumber]; (ok && id != self) || phones[e.PhoneNumber] {
		return employee.ErrPhoneTaken
	}
	return nil
}

// insert assigns id and timestamps. Caller holds the write lock.
func (s *Store) insert(e *employee.Employee) {
	s.nextID++
	now := s.now()
	e.ID = s.nextID
	e.CreatedAt = now
	e.UpdatedAt = now
	s.byID[e.ID] = *e
	s.index(*e)
}

func (s *Store) index(e employee.Employee) {
	s.byEmail[employee.NormalizeEmail(e.Email)] = e.ID
	if e.PhoneNumber != "" {
		s.byPhone[e.PhoneNumber] = e.ID
	}
}

func (s *Store) unindex(e employee.Employee) {
	delete(s.byEmail, employee.NormalizeEmail(e.Email))
	if e.PhoneNumber != "" {
		delete(s.byPhone, e.PhoneNumber)
	}
}

func (s *Store) filter(keep func(employee.Employee) bool) []employee.Employee {
	out := make([]employee.Employee, 0, len(s.byID))
	for _, e := range s.byID {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func paginate(all []employee.Employee, page, size int) employee.Page {
	total := int64(len(all))
	start := page * size
	if start > len(all) || start < 0 {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	items := make([]employee.Employee, end-start)
	copy(items, all[start:end])
	return employee.NewPage(items, page, size, total)
}
