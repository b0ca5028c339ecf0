package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/ems/internal/employee"
	"github.com/JonMunkholm/ems/internal/logging"
	"github.com/JonMunkholm/ems/internal/spreadsheet"
)

const tracerName = "github.com/JonMunkholm/ems/internal/core"

// RequestErrorKind classifies an upload rejected before any row is processed.
type RequestErrorKind string

const (
	KindMissingFile       RequestErrorKind = "missing_file"
	KindUnsupportedFormat RequestErrorKind = "unsupported_format"
	KindFileTooLarge      RequestErrorKind = "file_too_large"
	KindUnreadable        RequestErrorKind = "unreadable"
	KindNoSheets          RequestErrorKind = "no_sheets"
	KindMissingHeader     RequestErrorKind = "missing_header"
)

// RequestError aborts an import as a whole. Nothing is persisted and no
// partial report is produced.
type RequestError struct {
	Kind    RequestErrorKind
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

func requestError(kind RequestErrorKind, msg string, err error) *RequestError {
	return &RequestError{Kind: kind, Message: msg, Err: err}
}

// IsRequestError reports whether err rejects the upload as a whole.
func IsRequestError(err error) bool {
	var re *RequestError
	var se *SchemaError
	return errors.As(err, &re) || errors.As(err, &se)
}

// Importer runs the bulk import flow against a store.
// It does not coordinate concurrent imports; see ImportLimiter and the
// store's unique constraints for that.
type Importer struct {
	store    employee.Store
	maxBytes int64
	tracer   trace.Tracer
}

// NewImporter returns an importer that rejects uploads above maxBytes.
// A maxBytes of zero disables the limit.
func NewImporter(store employee.Store, maxBytes int64) *Importer {
	return &Importer{
		store:    store,
		maxBytes: maxBytes,
		tracer:   otel.Tracer(tracerName),
	}
}

// Process decodes the upload, classifies its rows, persists the accepted
// ones and reports the outcome. rc is closed on every path.
func (im *Importer) Process(ctx context.Context, fileName string, rc io.ReadCloser) (report *ImportReport, err error) {
	if rc == nil {
		return nil, requestError(KindMissingFile, "Excel file is required", nil)
	}
	defer rc.Close()

	ctx, span := im.tracer.Start(ctx, "employees.import",
		trace.WithAttributes(attribute.String("import.file_name", fileName)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := logging.WithFields(ctx, "file", fileName)

	sheet, err := im.decode(ctx, fileName, rc)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 || len(sheet.Rows[0]) == 0 {
		return nil, requestError(KindMissingHeader, "Header row is missing", nil)
	}

	cols, err := ResolveHeaders(sheet.Rows[0])
	if err != nil {
		return nil, err
	}

	total, batch, rowNumbers, rowErrs, err := im.classify(ctx, sheet.Rows, cols)
	if err != nil {
		return nil, err
	}

	saved, lateErrs, err := im.persist(ctx, batch, rowNumbers)
	if err != nil {
		return nil, err
	}

	report = newReport(total, saved, append(rowErrs, lateErrs...))
	report.FileName = fileName
	span.SetAttributes(
		attribute.Int("import.total_rows", report.TotalRows),
		attribute.Int("import.success_count", report.SuccessCount),
		attribute.Int("import.failure_count", report.FailureCount),
	)
	logger.Info("import processed",
		"total", report.TotalRows,
		"saved", report.SuccessCount,
		"failed", report.FailureCount,
	)
	return report, nil
}

func (im *Importer) decode(ctx context.Context, fileName string, r io.Reader) (*spreadsheet.Sheet, error) {
	_, span := im.tracer.Start(ctx, "employees.import.decode")
	defer span.End()

	if fileName == "" {
		return nil, requestError(KindMissingFile, "Excel file is required", nil)
	}

	sheet, err := spreadsheet.ReadFirstSheet(r, fileName, im.maxBytes)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int("import.sheet_rows", len(sheet.Rows)))
		return sheet, nil
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		return nil, requestError(KindUnsupportedFormat, "Only .xlsx or .xls files are supported", err)
	case errors.Is(err, spreadsheet.ErrEmptyFile):
		return nil, requestError(KindMissingFile, "Excel file is required", err)
	case errors.Is(err, spreadsheet.ErrFileTooLarge):
		return nil, requestError(KindFileTooLarge, "File too large", err)
	case errors.Is(err, spreadsheet.ErrNoSheets):
		return nil, requestError(KindNoSheets, "Excel file does not contain any sheets", err)
	default:
		return nil, requestError(KindUnreadable, "Unable to read Excel file", err)
	}
}

// classify walks the data rows in file order. It returns the number of
// counted rows, the accepted candidates with their row numbers, and one
// error per rejected row. Only store failures abort classification.
func (im *Importer) classify(ctx context.Context, rows [][]string, cols ColumnMap) (int, []employee.Employee, []int, []ImportError, error) {
	ctx, span := im.tracer.Start(ctx, "employees.import.classify")
	defer span.End()

	var (
		total      int
		batch      []employee.Employee
		rowNumbers []int
		errs       []ImportError
		emails     = make(map[string]struct{})
		phones     = make(map[string]struct{})
	)

	for i := 1; i < len(rows); i++ {
		if spreadsheet.IsBlankRow(rows[i]) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, nil, nil, nil, err
		}
		total++

		row := ImportRow{
			RowNumber:   i + 1,
			FirstName:   cols.Cell(rows[i], FieldFirstName),
			LastName:    cols.Cell(rows[i], FieldLastName),
			Email:       cols.Cell(rows[i], FieldEmail),
			PhoneNumber: cols.Cell(rows[i], FieldPhoneNumber),
			Department:  cols.Cell(rows[i], FieldDepartment),
		}

		msg, err := im.check(ctx, row, emails, phones)
		if err != nil {
			return 0, nil, nil, nil, fmt.Errorf("row %d: %w", row.RowNumber, err)
		}
		if msg != "" {
			errs = append(errs, ImportError{RowNumber: row.RowNumber, Message: msg})
			continue
		}
		batch = append(batch, row.Candidate())
		rowNumbers = append(rowNumbers, row.RowNumber)
	}

	span.SetAttributes(attribute.Int("import.candidates", len(batch)))
	return total, batch, rowNumbers, errs, nil
}

// check applies the row rules in order: required fields, in-file
// duplicates, persisted duplicates. Email is checked before phone at each
// level. Keys are marked seen once both in-file checks pass.
func (im *Importer) check(ctx context.Context, row ImportRow, emails, phones map[string]struct{}) (string, error) {
	if row.Blank() {
		return MsgAllFieldsRequired, nil
	}

	email := employee.NormalizeEmail(row.Email)
	phone := employee.NormalizePhone(row.PhoneNumber)

	if _, seen := emails[email]; seen {
		return MsgDuplicateEmailFile, nil
	}
	if _, seen := phones[phone]; seen {
		return MsgDuplicatePhoneFile, nil
	}
	emails[email] = struct{}{}
	phones[phone] = struct{}{}

	if exists, err := found(im.store.FindByEmail(ctx, email)); err != nil {
		return "", err
	} else if exists {
		return MsgEmailExists, nil
	}
	if exists, err := found(im.store.FindByPhone(ctx, phone)); err != nil {
		return "", err
	} else if exists {
		return MsgPhoneExists, nil
	}
	return "", nil
}

func found(_ *employee.Employee, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, employee.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// persist saves the batch with one bulk call. When the store rejects the
// batch on a uniqueness conflict, nothing was committed; the candidates are
// then saved one by one and each conflict becomes a row error.
func (im *Importer) persist(ctx context.Context, batch []employee.Employee, rowNumbers []int) (int, []ImportError, error) {
	if len(batch) == 0 {
		return 0, nil, nil
	}

	ctx, span := im.tracer.Start(ctx, "employees.import.persist",
		trace.WithAttributes(attribute.Int("import.batch_size", len(batch))))
	defer span.End()

	saved, err := im.store.SaveAll(ctx, batch)
	if err == nil {
		return len(saved), nil, nil
	}
	if !employee.IsConflict(err) {
		return 0, nil, fmt.Errorf("save batch: %w", err)
	}

	logging.FromContext(ctx).Warn("bulk save hit a uniqueness conflict, saving rows individually",
		"batch_size", len(batch), "error", err)
	span.AddEvent("batch conflict fallback")

	var (
		count int
		errs  []ImportError
	)
	for i := range batch {
		e := batch[i]
		err := im.store.Save(ctx, &e)
		switch {
		case err == nil:
			count++
		case errors.Is(err, employee.ErrEmailTaken):
			errs = append(errs, ImportError{RowNumber: rowNumbers[i], Message: MsgEmailExists})
		case errors.Is(err, employee.ErrPhoneTaken):
			errs = append(errs, ImportError{RowNumber: rowNumbers[i], Message: MsgPhoneExists})
		default:
			return 0, nil, fmt.Errorf("save row %d: %w", rowNumbers[i], err)
		}
	}
	return count, errs, nil
}
