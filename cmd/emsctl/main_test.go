package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/ems/internal/admin"
	"github.com/JonMunkholm/ems/internal/application"
	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/employee"
)

// useMemoryApp points openApp at one shared in-memory app for the test.
func useMemoryApp(t *testing.T) *application.App {
	t.Helper()
	app, err := application.New(context.Background(), &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 1, MaxWaitTime: time.Second},
	})
	if err != nil {
		t.Fatal(err)
	}
	prev := openApp
	openApp = func(context.Context) (*application.App, error) { return app, nil }
	t.Cleanup(func() { openApp = prev })
	return app
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeWorkbook(t *testing.T, rows ...[]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", addr, &cells); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "staff.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCommand(t *testing.T) {
	useMemoryApp(t)
	path := writeWorkbook(t,
		[]string{"First Name", "Last Name", "Email", "Phone", "Department"},
		[]string{"A", "B", "a@x.com", "111", "Eng"},
		[]string{"", "D", "d@x.com", "222", "Eng"},
	)

	out, err := execute("import", path)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	var report core.ImportReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if report.TotalRows != 2 || report.SuccessCount != 1 || report.FailureCount != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.FileName != "staff.xlsx" {
		t.Errorf("fileName = %q, want staff.xlsx", report.FileName)
	}
}

func TestImportCommand_Errors(t *testing.T) {
	useMemoryApp(t)

	if _, err := execute("import"); err == nil {
		t.Error("import without file: error = nil")
	}
	if _, err := execute("import", filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Error("import of missing file: error = nil")
	}

	csv := filepath.Join(t.TempDir(), "staff.csv")
	if err := os.WriteFile(csv, []byte("a,b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute("import", csv)
	if !core.IsRequestError(err) {
		t.Errorf("import of csv error = %v, want request error", err)
	}
}

func TestResetCommand(t *testing.T) {
	app := useMemoryApp(t)
	ctx := context.Background()
	if _, err := app.Service.CreateEmployee(ctx, employee.Employee{FirstName: "A", LastName: "B", Email: "a@b.c"}); err != nil {
		t.Fatal(err)
	}

	if _, err := execute("reset"); !errors.Is(err, admin.ErrNotConfirmed) {
		t.Fatalf("reset without --yes error = %v, want ErrNotConfirmed", err)
	}

	out, err := execute("reset", "--yes")
	if err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if !strings.Contains(out, "deleted 1 employees") {
		t.Errorf("output = %q", out)
	}
}
