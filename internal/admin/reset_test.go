package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/storage/memory"
)

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := core.NewService(store, core.DefaultServiceConfig(), core.WithAuditLog(core.NewMemoryAuditLog()))
	for _, email := range []string{"a@x.com", "b@x.com"} {
		if _, err := svc.CreateEmployee(ctx, employee.Employee{FirstName: "F", LastName: "L", Email: email}); err != nil {
			t.Fatal(err)
		}
	}
	r := &Resetter{Service: svc}

	if _, err := r.ResetAll(ctx, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("ResetAll(unconfirmed) error = %v, want ErrNotConfirmed", err)
	}
	if page, _ := store.List(ctx, employee.ListQuery{Size: 10}); page.TotalItems != 2 {
		t.Fatalf("unconfirmed reset deleted records: total = %d", page.TotalItems)
	}

	n, err := r.ResetAll(ctx, true)
	if err != nil {
		t.Fatalf("ResetAll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ResetAll() = %d, want 2", n)
	}
	if page, _ := store.List(ctx, employee.ListQuery{Size: 10}); page.TotalItems != 0 {
		t.Errorf("total after reset = %d, want 0", page.TotalItems)
	}
}

func TestRunResets_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var ran []int
	err := runResets(context.Background(), []resetFn{
		func(context.Context) error { ran = append(ran, 1); return nil },
		func(context.Context) error { ran = append(ran, 2); return boom },
		func(context.Context) error { ran = append(ran, 3); return nil },
	})
	if !errors.Is(err, boom) {
		t.Errorf("runResets() error = %v, want boom", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v, want [1 2]", ran)
	}
}
