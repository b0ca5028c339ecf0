package core

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/storage/memory"
)

var standardHeader = []string{"First Name", "Last Name", "Email", "Phone", "Department"}

// xlsxBytes writes rows to the first sheet of a workbook. A nil row is left
// empty in the sheet.
func xlsxBytes(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		if row == nil {
			continue
		}
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", addr, &cells); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

// trackingReader records whether Close was called.
type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func upload(data []byte) *trackingReader {
	return &trackingReader{Reader: bytes.NewReader(data)}
}

// fakeStore delegates to an in-memory store unless a hook is set.
type fakeStore struct {
	*memory.Store
	saveAllFn     func(ctx context.Context, records []employee.Employee) ([]employee.Employee, error)
	findByEmailFn func(ctx context.Context, email string) (*employee.Employee, error)
	saveAllCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{Store: memory.New()}
}

func (f *fakeStore) SaveAll(ctx context.Context, records []employee.Employee) ([]employee.Employee, error) {
	f.saveAllCalls++
	if f.saveAllFn != nil {
		return f.saveAllFn(ctx, records)
	}
	return f.Store.SaveAll(ctx, records)
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, email)
	}
	return f.Store.FindByEmail(ctx, email)
}

func seed(t *testing.T, s employee.Store, records ...employee.Employee) {
	t.Helper()
	for i := range records {
		if err := s.Save(context.Background(), &records[i]); err != nil {
			t.Fatalf("seed %s: %v", records[i].Email, err)
		}
	}
}
