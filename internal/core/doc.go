// Package core provides the business logic for employee records and bulk
// spreadsheet imports.
//
// The package has no transport dependencies; the web server, the emsctl
// CLI and tests all drive it through [Service].
//
// # Bulk Import
//
// An import is one synchronous flow owned by [Importer.Process]:
//
//  1. Decode the first worksheet of the .xlsx/.xls upload
//  2. Resolve the five logical columns from the header row ([ResolveHeaders])
//  3. Classify every non-blank data row in file order
//  4. Persist the accepted rows with a single [employee.Store.SaveAll] call
//  5. Aggregate the [ImportReport]
//
// Row checks run in a fixed order and the first failure wins:
//
//   - All fields are required
//   - Duplicate email in file, then Duplicate phone number in file
//   - Email already exists, then Phone number already exists
//
// Failures that abort the whole upload (missing file, wrong extension,
// unreadable workbook, no sheets, no header row, unresolved columns) are
// returned as *[RequestError] or *[SchemaError] and nothing is persisted.
//
// If the bulk save loses a race with a concurrent writer, the store rejects
// the whole batch. The importer then saves the candidates one at a time and
// reports each conflicting row with the matching "already exists" message,
// so totalRows = successCount + failureCount still holds.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: File errors (size, format, sheets, headers)
//   - VAL000-VAL002: Validation errors (malformed request, required fields, columns)
//   - EMP001-EMP003: Employee errors (not found, duplicates)
//   - DB001-DB004: Database errors (constraints, connections)
//   - UPL001-UPL003: Import errors (busy, cancelled, timeout)
//   - RATE001: Too many requests; ERR000: anything unmapped
//
// # Audit Logging
//
// Every mutation is recorded in the audit log with a severity level:
//
//   - Medium: Single-record create/update
//   - High: Single-record delete, bulk import
//   - Critical: Delete all
//
// Audit and event failures are logged and never fail the operation.
package core
