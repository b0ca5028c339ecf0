package core

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/ems/internal/employee"
)

// Row-level failure messages. They are part of the import report contract.
const (
	MsgAllFieldsRequired  = "All fields are required"
	MsgDuplicateEmailFile = "Duplicate email in file"
	MsgDuplicatePhoneFile = "Duplicate phone number in file"
	MsgEmailExists        = "Email already exists"
	MsgPhoneExists        = "Phone number already exists"
)

// ImportRow is one non-blank data row of the sheet.
type ImportRow struct {
	RowNumber   int // 1-based position in the sheet
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Department  string
}

// Blank reports whether any of the five fields is empty.
func (r ImportRow) Blank() bool {
	return r.FirstName == "" || r.LastName == "" || r.Email == "" ||
		r.PhoneNumber == "" || r.Department == ""
}

// Candidate converts a row that passed every check into a record to persist.
func (r ImportRow) Candidate() employee.Employee {
	return employee.Employee{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		PhoneNumber: employee.NormalizePhone(r.PhoneNumber),
		Department:  r.Department,
	}
}

// ImportError is the single failure reported for one row.
type ImportError struct {
	RowNumber int    `json:"rowNumber"`
	Message   string `json:"message"`
}

func (e ImportError) String() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Message)
}

// ImportReport summarizes one bulk import.
// TotalRows always equals SuccessCount + FailureCount.
type ImportReport struct {
	ImportID     string        `json:"importId,omitempty"`
	FileName     string        `json:"fileName,omitempty"`
	TotalRows    int           `json:"totalRows"`
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`
	Errors       []ImportError `json:"errors"`
}

// newReport aggregates the outcome of classification and persistence.
// Errors are sorted by row so late persistence failures interleave with
// classification failures.
func newReport(total int, saved int, errs []ImportError) *ImportReport {
	if errs == nil {
		errs = []ImportError{}
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].RowNumber < errs[j].RowNumber })
	return &ImportReport{
		TotalRows:    total,
		SuccessCount: saved,
		FailureCount: len(errs),
		Errors:       errs,
	}
}
