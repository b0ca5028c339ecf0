package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/spreadsheet"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "missing file",
			err:         requestError(KindMissingFile, "Excel file is required", nil),
			wantCode:    "FILE004",
			wantMessage: "Excel file is required",
		},
		{
			name:        "wrong extension",
			err:         requestError(KindUnsupportedFormat, "Only .xlsx or .xls files are supported", spreadsheet.ErrUnsupportedFormat),
			wantCode:    "FILE002",
			wantMessage: "Only .xlsx or .xls files are supported",
		},
		{
			name:        "decoder sentinel",
			err:         fmt.Errorf("%w: %q", spreadsheet.ErrUnsupportedFormat, "a.csv"),
			wantCode:    "FILE002",
			wantMessage: "Only .xlsx or .xls files are supported",
		},
		{
			name:        "no sheets",
			err:         requestError(KindNoSheets, "Excel file does not contain any sheets", nil),
			wantCode:    "FILE005",
			wantMessage: "Excel file does not contain any sheets",
		},
		{
			name:        "missing columns",
			err:         &SchemaError{Missing: []LogicalField{FieldDepartment}},
			wantCode:    "VAL002",
			wantMessage: "Required columns are missing from the sheet",
		},
		{
			name:        "email taken",
			err:         fmt.Errorf("create: %w", employee.ErrEmailTaken),
			wantCode:    "EMP002",
			wantMessage: "Email already taken",
		},
		{
			name:        "not found",
			err:         employee.ErrNotFound,
			wantCode:    "EMP001",
			wantMessage: "Employee not found",
		},
		{
			name:        "postgres unique violation",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this value already exists",
		},
		{
			name:        "mysql duplicate entry",
			err:         errors.New("Error 1062: Duplicate entry 'x' for key 'email_key'"),
			wantCode:    "DB001",
			wantMessage: "A record with this value already exists",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB002",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "limiter busy",
			err:         ErrTooManyImports,
			wantCode:    "UPL001",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "deadline",
			err:         fmt.Errorf("import: %w", errors.New("context deadline exceeded")),
			wantCode:    "UPL003",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown falls back",
			err:         errors.New("something odd"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(employee.ErrPhoneTaken)
	want := "Phone number already exists (Code: EMP003). Use a different phone number"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true")
	}
	if !IsUserFacing(employee.ErrNotFound) {
		t.Error("IsUserFacing(ErrNotFound) = false")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("IsUserFacing(boom) = true")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Fatal("NewUserError(nil) should be nil")
	}
	ue := NewUserError(employee.ErrEmailTaken)
	if ue.Error() != "Email already taken" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, employee.ErrEmailTaken) {
		t.Error("UserError does not unwrap to the technical error")
	}
}
