package core

import (
	"fmt"
	"strings"
)

// LogicalField is one of the five semantic columns of an import sheet.
type LogicalField string

const (
	FieldFirstName   LogicalField = "firstName"
	FieldLastName    LogicalField = "lastName"
	FieldEmail       LogicalField = "email"
	FieldPhoneNumber LogicalField = "phoneNumber"
	FieldDepartment  LogicalField = "department"
)

// fieldAliases lists, per logical field, the accepted header spellings in
// priority order. Entries are already normalized.
var fieldAliases = []struct {
	field   LogicalField
	aliases []string
}{
	{FieldFirstName, []string{"first name", "firstname", "first_name"}},
	{FieldLastName, []string{"last name", "lastname", "last_name"}},
	{FieldEmail, []string{"email", "email id", "email_id", "email address", "email_address"}},
	{FieldPhoneNumber, []string{"phone", "phone number", "phone_number", "mobile", "mobile number", "mobile_number"}},
	{FieldDepartment, []string{"department", "dept"}},
}

// LogicalFields returns the logical fields in report order.
func LogicalFields() []LogicalField {
	out := make([]LogicalField, len(fieldAliases))
	for i, fa := range fieldAliases {
		out[i] = fa.field
	}
	return out
}

// Aliases returns the accepted header names for f.
func Aliases(f LogicalField) []string {
	for _, fa := range fieldAliases {
		if fa.field == f {
			return append([]string(nil), fa.aliases...)
		}
	}
	return nil
}

// HeaderIndex maps normalized header names to their column position.
type HeaderIndex map[string]int

// NormalizeHeader lower-cases and trims a header cell.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// MakeHeaderIndex builds a HeaderIndex from the header row. Blank headers
// are skipped; when a name repeats, the right-most column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		idx[key] = i
	}
	return idx
}

// ColumnMap holds the resolved column position of every logical field.
type ColumnMap map[LogicalField]int

// Cell returns the trimmed value of field in row, or "" when the row is
// shorter than the mapped column.
func (m ColumnMap) Cell(row []string, field LogicalField) string {
	pos, ok := m[field]
	if !ok || pos < 0 || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// SchemaError lists every logical field the header row failed to provide.
type SchemaError struct {
	Missing []LogicalField
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("Missing required columns: %s", strings.Join(names, ", "))
}

// ResolveHeaders maps each logical field to a column using the first alias
// present in the header row. It returns a *SchemaError naming all
// unresolved fields.
func ResolveHeaders(header []string) (ColumnMap, error) {
	idx := MakeHeaderIndex(header)
	cols := make(ColumnMap, len(fieldAliases))
	var missing []LogicalField

	for _, fa := range fieldAliases {
		found := false
		for _, alias := range fa.aliases {
			if pos, ok := idx[alias]; ok {
				cols[fa.field] = pos
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fa.field)
		}
	}

	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return cols, nil
}
