package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/employee/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) employee.Store { return New() })
}

func TestSaveAll_DuplicateWithinBatch(t *testing.T) {
	s := New()
	_, err := s.SaveAll(context.Background(), []employee.Employee{
		{FirstName: "A", LastName: "A", Email: "a@example.com", PhoneNumber: "1"},
		{FirstName: "B", LastName: "B", Email: "b@example.com", PhoneNumber: "1"},
	})
	if err != employee.ErrPhoneTaken {
		t.Fatalf("SaveAll error = %v, want ErrPhoneTaken", err)
	}
	if n, _ := s.DeleteAll(context.Background()); n != 0 {
		t.Errorf("store holds %d records after failed batch, want 0", n)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := employee.Employee{FirstName: "Same", LastName: "Person", Email: "same@example.com"}
			errs <- s.Save(context.Background(), &e)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if err != employee.ErrEmailTaken {
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d concurrent saves succeeded, want 1", ok)
	}
}
