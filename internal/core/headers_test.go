package core

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   ColumnMap
	}{
		{
			name:   "canonical names",
			header: []string{"First Name", "Last Name", "Email", "Phone", "Department"},
			want:   ColumnMap{FieldFirstName: 0, FieldLastName: 1, FieldEmail: 2, FieldPhoneNumber: 3, FieldDepartment: 4},
		},
		{
			name:   "case and whitespace insensitive",
			header: []string{"  FIRST_NAME", "lastname ", "Email Address", " phone_number ", "DEPT"},
			want:   ColumnMap{FieldFirstName: 0, FieldLastName: 1, FieldEmail: 2, FieldPhoneNumber: 3, FieldDepartment: 4},
		},
		{
			name:   "reordered with extra columns",
			header: []string{"ID", "dept", "mobile", "email_id", "", "last_name", "firstname"},
			want:   ColumnMap{FieldFirstName: 6, FieldLastName: 5, FieldEmail: 3, FieldPhoneNumber: 2, FieldDepartment: 1},
		},
		{
			name:   "first alias wins",
			header: []string{"first name", "last name", "email address", "email", "mobile", "phone", "department", "dept"},
			want:   ColumnMap{FieldFirstName: 0, FieldLastName: 1, FieldEmail: 3, FieldPhoneNumber: 5, FieldDepartment: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveHeaders(tt.header)
			if err != nil {
				t.Fatalf("ResolveHeaders() error = %v", err)
			}
			for field, want := range tt.want {
				if got[field] != want {
					t.Errorf("%s column = %d, want %d", field, got[field], want)
				}
			}
		})
	}
}

func TestResolveHeaders_PhoneSpellingsEquivalent(t *testing.T) {
	for _, spelling := range []string{"Phone Number", " phone_number ", "PHONE", "Mobile Number"} {
		cols, err := ResolveHeaders([]string{"first name", "last name", "email", spelling, "department"})
		if err != nil {
			t.Fatalf("ResolveHeaders(%q) error = %v", spelling, err)
		}
		if cols[FieldPhoneNumber] != 3 {
			t.Errorf("%q resolved phoneNumber to %d, want 3", spelling, cols[FieldPhoneNumber])
		}
	}
}

func TestResolveHeaders_ListsAllMissing(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []LogicalField
	}{
		{
			name:   "department missing",
			header: []string{"First Name", "Last Name", "Email", "Phone"},
			want:   []LogicalField{FieldDepartment},
		},
		{
			name:   "several missing",
			header: []string{"Email", "Surname"},
			want:   []LogicalField{FieldFirstName, FieldLastName, FieldPhoneNumber, FieldDepartment},
		},
		{
			name:   "blank header row",
			header: []string{"", "  "},
			want:   LogicalFields(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveHeaders(tt.header)
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("ResolveHeaders() error = %v, want *SchemaError", err)
			}
			if len(se.Missing) != len(tt.want) {
				t.Fatalf("Missing = %v, want %v", se.Missing, tt.want)
			}
			for i := range tt.want {
				if se.Missing[i] != tt.want[i] {
					t.Errorf("Missing[%d] = %s, want %s", i, se.Missing[i], tt.want[i])
				}
			}
		})
	}
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Missing: []LogicalField{FieldEmail, FieldDepartment}}
	if got, want := err.Error(), "Missing required columns: email, department"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{" Email ", "", "email", "Dept"})
	if idx["email"] != 2 {
		t.Errorf("email = %d, want right-most column 2", idx["email"])
	}
	if _, ok := idx[""]; ok {
		t.Error("blank header indexed")
	}
	if idx["dept"] != 3 {
		t.Errorf("dept = %d, want 3", idx["dept"])
	}
}

func TestColumnMap_Cell(t *testing.T) {
	cols := ColumnMap{FieldFirstName: 0, FieldDepartment: 4}
	row := []string{"  Ada  ", "x"}
	if got := cols.Cell(row, FieldFirstName); got != "Ada" {
		t.Errorf("Cell(firstName) = %q, want trimmed Ada", got)
	}
	if got := cols.Cell(row, FieldDepartment); got != "" {
		t.Errorf("Cell(short row) = %q, want empty", got)
	}
	if got := cols.Cell(row, FieldEmail); got != "" {
		t.Errorf("Cell(unmapped) = %q, want empty", got)
	}
}

func TestAliases(t *testing.T) {
	got := strings.Join(Aliases(FieldDepartment), ",")
	if got != "department,dept" {
		t.Errorf("Aliases(department) = %s", got)
	}
	if Aliases("nope") != nil {
		t.Error("Aliases(unknown) should be nil")
	}
}
