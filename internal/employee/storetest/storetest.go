// Package storetest provides a conformance suite for employee.Store
// implementations. Each backend runs it from its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/ems/internal/employee"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) employee.Store

// Run executes the whole suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveAssignsIDAndTimestamps", func(t *testing.T) { testSaveInsert(t, newStore(t)) })
	t.Run("FindByEmailIgnoresCase", func(t *testing.T) { testFindByEmail(t, newStore(t)) })
	t.Run("FindByPhoneIsExact", func(t *testing.T) { testFindByPhone(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("UniqueEmail", func(t *testing.T) { testUniqueEmail(t, newStore(t)) })
	t.Run("UniquePhone", func(t *testing.T) { testUniquePhone(t, newStore(t)) })
	t.Run("EmptyPhonesDoNotConflict", func(t *testing.T) { testEmptyPhones(t, newStore(t)) })
	t.Run("SaveUpdates", func(t *testing.T) { testSaveUpdate(t, newStore(t)) })
	t.Run("SaveAll", func(t *testing.T) { testSaveAll(t, newStore(t)) })
	t.Run("SaveAllIsAllOrNothing", func(t *testing.T) { testSaveAllAtomic(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, newStore(t)) })
	t.Run("ListSortsAndPages", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("ListFiltersDepartments", func(t *testing.T) { testListDepartments(t, newStore(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newStore(t)) })
}

func sample(first, email, phone, dept string) employee.Employee {
	return employee.Employee{
		FirstName:   first,
		LastName:    first + "son",
		Email:       email,
		PhoneNumber: phone,
		Department:  dept,
	}
}

func mustSave(t *testing.T, s employee.Store, e employee.Employee) employee.Employee {
	t.Helper()
	if err := s.Save(context.Background(), &e); err != nil {
		t.Fatalf("Save(%s) error = %v", e.Email, err)
	}
	return e
}

func testSaveInsert(t *testing.T, s employee.Store) {
	e := mustSave(t, s, sample("Ada", "Ada@Example.com", "111", "Eng"))
	if e.ID == 0 {
		t.Fatal("Save did not assign an id")
	}
	if e.CreatedAt.IsZero() {
		t.Error("Save did not set CreatedAt")
	}

	got, err := s.FindByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("FindByID error = %v", err)
	}
	if got.Email != "Ada@Example.com" {
		t.Errorf("Email = %q, want original casing %q", got.Email, "Ada@Example.com")
	}
	if got.FirstName != "Ada" || got.PhoneNumber != "111" || got.Department != "Eng" {
		t.Errorf("FindByID = %+v", got)
	}
}

func testFindByEmail(t *testing.T, s employee.Store) {
	saved := mustSave(t, s, sample("Ada", "Ada@Example.com", "111", "Eng"))

	got, err := s.FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error = %v", err)
	}
	if got.ID != saved.ID {
		t.Errorf("FindByEmail id = %d, want %d", got.ID, saved.ID)
	}
}

func testFindByPhone(t *testing.T, s employee.Store) {
	saved := mustSave(t, s, sample("Ada", "ada@example.com", "555-0100", "Eng"))

	got, err := s.FindByPhone(context.Background(), "555-0100")
	if err != nil {
		t.Fatalf("FindByPhone error = %v", err)
	}
	if got.ID != saved.ID {
		t.Errorf("FindByPhone id = %d, want %d", got.ID, saved.ID)
	}
	if _, err := s.FindByPhone(context.Background(), "555-010"); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("FindByPhone(prefix) error = %v, want ErrNotFound", err)
	}
}

func testNotFound(t *testing.T, s employee.Store) {
	ctx := context.Background()
	if _, err := s.FindByID(ctx, 424242); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("FindByID error = %v, want ErrNotFound", err)
	}
	if _, err := s.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("FindByEmail error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteByID(ctx, 424242); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("DeleteByID error = %v, want ErrNotFound", err)
	}
}

func testUniqueEmail(t *testing.T, s employee.Store) {
	mustSave(t, s, sample("Ada", "ada@example.com", "111", "Eng"))

	dup := sample("Bob", "ADA@example.com", "222", "Eng")
	if err := s.Save(context.Background(), &dup); !errors.Is(err, employee.ErrEmailTaken) {
		t.Errorf("Save(duplicate email) error = %v, want ErrEmailTaken", err)
	}
}

func testUniquePhone(t *testing.T, s employee.Store) {
	mustSave(t, s, sample("Ada", "ada@example.com", "111", "Eng"))

	dup := sample("Bob", "bob@example.com", "111", "Eng")
	if err := s.Save(context.Background(), &dup); !errors.Is(err, employee.ErrPhoneTaken) {
		t.Errorf("Save(duplicate phone) error = %v, want ErrPhoneTaken", err)
	}
}

func testEmptyPhones(t *testing.T, s employee.Store) {
	mustSave(t, s, sample("Ada", "ada@example.com", "", "Eng"))
	mustSave(t, s, sample("Bob", "bob@example.com", "", "Eng"))
}

func testSaveUpdate(t *testing.T, s employee.Store) {
	ctx := context.Background()
	e := mustSave(t, s, sample("Ada", "ada@example.com", "111", "Eng"))
	other := mustSave(t, s, sample("Bob", "bob@example.com", "222", "Ops"))

	e.Department = "Research"
	e.Email = "ADA@example.com"
	if err := s.Save(ctx, &e); err != nil {
		t.Fatalf("Save(update own email casing) error = %v", err)
	}

	got, err := s.FindByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("FindByID error = %v", err)
	}
	if got.Department != "Research" || got.Email != "ADA@example.com" {
		t.Errorf("after update = %+v", got)
	}

	other.PhoneNumber = "111"
	if err := s.Save(ctx, &other); !errors.Is(err, employee.ErrPhoneTaken) {
		t.Errorf("Save(update to taken phone) error = %v, want ErrPhoneTaken", err)
	}

	missing := sample("Zed", "zed@example.com", "999", "Eng")
	missing.ID = 987654
	if err := s.Save(ctx, &missing); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("Save(update missing) error = %v, want ErrNotFound", err)
	}
}

func testSaveAll(t *testing.T, s employee.Store) {
	ctx := context.Background()
	batch := []employee.Employee{
		sample("Ada", "ada@example.com", "111", "Eng"),
		sample("Bob", "bob@example.com", "222", "Ops"),
		sample("Cy", "cy@example.com", "333", "Eng"),
	}

	saved, err := s.SaveAll(ctx, batch)
	if err != nil {
		t.Fatalf("SaveAll error = %v", err)
	}
	if len(saved) != len(batch) {
		t.Fatalf("SaveAll returned %d records, want %d", len(saved), len(batch))
	}
	seen := make(map[int64]bool)
	for i, e := range saved {
		if e.ID == 0 || seen[e.ID] {
			t.Errorf("record %d has id %d, want unique non-zero", i, e.ID)
		}
		seen[e.ID] = true
		if e.Email != batch[i].Email {
			t.Errorf("record %d email = %q, want %q (order preserved)", i, e.Email, batch[i].Email)
		}
	}

	page, err := s.List(ctx, employee.ListQuery{Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if page.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", page.TotalItems)
	}
}

func testSaveAllAtomic(t *testing.T, s employee.Store) {
	ctx := context.Background()
	mustSave(t, s, sample("Ada", "ada@example.com", "111", "Eng"))

	_, err := s.SaveAll(ctx, []employee.Employee{
		sample("Bob", "bob@example.com", "222", "Ops"),
		sample("Ann", "ADA@EXAMPLE.COM", "333", "Eng"),
	})
	if !errors.Is(err, employee.ErrEmailTaken) {
		t.Fatalf("SaveAll error = %v, want ErrEmailTaken", err)
	}
	if _, err := s.FindByEmail(ctx, "bob@example.com"); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("bob was committed from a failed batch (err = %v)", err)
	}
}

func testDelete(t *testing.T, s employee.Store) {
	ctx := context.Background()
	e := mustSave(t, s, sample("Ada", "ada@example.com", "111", "Eng"))

	if err := s.DeleteByID(ctx, e.ID); err != nil {
		t.Fatalf("DeleteByID error = %v", err)
	}
	if _, err := s.FindByID(ctx, e.ID); !errors.Is(err, employee.ErrNotFound) {
		t.Errorf("FindByID after delete error = %v, want ErrNotFound", err)
	}
	// The email is free again.
	mustSave(t, s, sample("Ada", "ada@example.com", "111", "Eng"))
}

func testDeleteAll(t *testing.T, s employee.Store) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustSave(t, s, sample(fmt.Sprintf("E%d", i), fmt.Sprintf("e%d@example.com", i), fmt.Sprintf("%d", i), "Eng"))
	}

	n, err := s.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteAll = %d, want 3", n)
	}
	page, err := s.List(ctx, employee.ListQuery{Size: 10})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if page.TotalItems != 0 || len(page.Items) != 0 {
		t.Errorf("after DeleteAll page = %+v", page)
	}
}

func testList(t *testing.T, s employee.Store) {
	ctx := context.Background()
	for _, name := range []string{"Carol", "Alice", "Eve", "Bob", "Dave"} {
		mustSave(t, s, sample(name, name+"@example.com", "p-"+name, "Eng"))
	}

	page, err := s.List(ctx, employee.ListQuery{Page: 0, Size: 2, SortDir: "asc"})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if page.TotalItems != 5 || page.TotalPages != 3 {
		t.Errorf("totals = %d items / %d pages, want 5 / 3", page.TotalItems, page.TotalPages)
	}
	if got := names(page.Items); got != "Alice,Bob" {
		t.Errorf("page 0 asc = %s, want Alice,Bob", got)
	}

	page, err = s.List(ctx, employee.ListQuery{Page: 2, Size: 2, SortDir: "asc"})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if got := names(page.Items); got != "Eve" {
		t.Errorf("page 2 asc = %s, want Eve", got)
	}

	page, err = s.List(ctx, employee.ListQuery{Page: 0, Size: 3, SortDir: "DESC"})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if got := names(page.Items); got != "Eve,Dave,Carol" {
		t.Errorf("page 0 desc = %s, want Eve,Dave,Carol", got)
	}

	page, err = s.List(ctx, employee.ListQuery{Page: 9, Size: 2})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(page.Items) != 0 || page.TotalItems != 5 {
		t.Errorf("out of range page = %+v", page)
	}
}

func testListDepartments(t *testing.T, s employee.Store) {
	ctx := context.Background()
	mustSave(t, s, sample("Alice", "alice@example.com", "1", "Eng"))
	mustSave(t, s, sample("Bob", "bob@example.com", "2", "Sales"))
	mustSave(t, s, sample("Carol", "carol@example.com", "3", "Ops"))

	page, err := s.List(ctx, employee.ListQuery{Size: 10, Departments: []string{"Eng", "Ops"}})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if got := names(page.Items); got != "Alice,Carol" {
		t.Errorf("filtered = %s, want Alice,Carol", got)
	}
	if page.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", page.TotalItems)
	}
}

func testSearch(t *testing.T, s employee.Store) {
	ctx := context.Background()
	mustSave(t, s, employee.Employee{FirstName: "Alice", LastName: "Smith", Email: "alice@corp.io", PhoneNumber: "555-1000", Department: "Eng"})
	mustSave(t, s, employee.Employee{FirstName: "Bob", LastName: "Jones", Email: "bob@corp.io", PhoneNumber: "555-2000", Department: "Eng"})
	mustSave(t, s, employee.Employee{FirstName: "Carol", LastName: "SMITHERS", Email: "carol_x@corp.io", PhoneNumber: "777-3000", Department: "Ops"})

	tests := []struct {
		query string
		want  string
	}{
		{query: "smith", want: "Alice,Carol"},
		{query: "BOB@", want: "Bob"},
		{query: "555", want: "Alice,Bob"},
		{query: "_x", want: "Carol"},
		{query: "%", want: ""},
	}
	for _, tt := range tests {
		page, err := s.Search(ctx, employee.SearchQuery{Query: tt.query, Size: 10})
		if err != nil {
			t.Fatalf("Search(%q) error = %v", tt.query, err)
		}
		if got := names(page.Items); got != tt.want {
			t.Errorf("Search(%q) = %s, want %s", tt.query, got, tt.want)
		}
	}
}

func names(items []employee.Employee) string {
	out := ""
	for i, e := range items {
		if i > 0 {
			out += ","
		}
		out += e.FirstName
	}
	return out
}
