package core

// # Error Codes Reference
//
// User-facing error messages carry a code that users can quote to support.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large          Patterns: "file too large"
//	FILE002 - Unsupported format      Patterns: "only .xlsx or .xls", "unsupported file format"
//	FILE003 - Unreadable workbook     Patterns: "unable to read excel file"
//	FILE004 - No file                 Patterns: "excel file is required"
//	FILE005 - No sheets               Patterns: "does not contain any sheets"
//	FILE006 - No header row           Patterns: "header row is missing"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid employee         Patterns: "invalid employee"
//	VAL002 - Missing columns          Patterns: "missing required columns"
//
// # Employee Errors (EMP001-EMP099)
//
//	EMP001 - Not found                Patterns: "employee not found"
//	EMP002 - Email taken              Patterns: "email already taken"
//	EMP003 - Phone taken              Patterns: "phone number already exists"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Unique violation          Patterns: "duplicate key", "duplicate entry", "unique constraint"
//	DB002 - Connection refused        Patterns: "connection refused"
//	DB003 - Connection reset          Patterns: "connection reset"
//	DB004 - Deadlock / busy           Patterns: "deadlock", "database is locked"
//
// # Import Errors (UPL001-UPL099)
//
//	UPL001 - System busy              Patterns: "too many concurrent imports"
//	UPL002 - Request cancelled        Patterns: "context canceled"
//	UPL003 - Request timeout          Patterns: "context deadline exceeded", "timeout"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited            Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// technical error, which is logged with the request id.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the sheet into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "only .xlsx or .xls",
		msg: UserMessage{
			Message: "Only .xlsx or .xls files are supported",
			Action:  "Save the sheet as an Excel workbook and upload it again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Only .xlsx or .xls files are supported",
			Action:  "Save the sheet as an Excel workbook and upload it again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unable to read excel file",
		msg: UserMessage{
			Message: "Unable to read Excel file",
			Action:  "Check that the file opens in Excel and is not password protected",
			Code:    "FILE003",
		},
	},
	{
		pattern: "excel file is required",
		msg: UserMessage{
			Message: "Excel file is required",
			Action:  "Please select a .xlsx or .xls file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "does not contain any sheets",
		msg: UserMessage{
			Message: "Excel file does not contain any sheets",
			Action:  "Add a worksheet with a header row and employee rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "header row is missing",
		msg: UserMessage{
			Message: "Header row is missing",
			Action:  "Put the column names in the first row of the first sheet",
			Code:    "FILE006",
		},
	},

	// Validation errors
	{
		pattern: "invalid employee",
		msg: UserMessage{
			Message: "Employee details are incomplete or invalid",
			Action:  "First name, last name and a valid email are required",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the sheet",
			Action:  "Include First Name, Last Name, Email, Phone and Department columns",
			Code:    "VAL002",
		},
	},

	// Employee errors
	{
		pattern: "employee not found",
		msg: UserMessage{
			Message: "Employee not found",
			Action:  "Refresh the list; the record may have been deleted",
			Code:    "EMP001",
		},
	},
	{
		pattern: "email already taken",
		msg: UserMessage{
			Message: "Email already taken",
			Action:  "Use a different email address",
			Code:    "EMP002",
		},
	},
	{
		pattern: "phone number already exists",
		msg: UserMessage{
			Message: "Phone number already exists",
			Action:  "Use a different phone number",
			Code:    "EMP003",
		},
	},

	// Database errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this value already exists",
			Action:  "Review the data for duplicate emails or phone numbers",
			Code:    "DB001",
		},
	},
	{
		pattern: "duplicate entry",
		msg: UserMessage{
			Message: "A record with this value already exists",
			Action:  "Review the data for duplicate emails or phone numbers",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A record with this value already exists",
			Action:  "Review the data for duplicate emails or phone numbers",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},

	// Import errors
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL003",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(employee.ErrEmailTaken)
//	// msg.Code == "EMP002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
