// Package spreadsheet decodes the first worksheet of an uploaded .xlsx or
// .xls workbook into rows of cell text.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnreadable        = errors.New("file could not be read as a spreadsheet")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

// Format identifies the workbook container.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// Sheet is the decoded first worksheet. Rows keep their position in the
// sheet; rows without any cell are empty slices.
type Sheet struct {
	Name   string
	Format Format
	Rows   [][]string
}

// DetectFormat returns the format implied by the file extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileName)
	}
}

// ReadFirstSheet reads at most maxBytes from r and decodes the first sheet.
// A maxBytes of zero or less disables the size limit. An empty upload is
// reported as ErrEmptyFile whatever its name.
func ReadFirstSheet(r io.Reader, fileName string, maxBytes int64) (*Sheet, error) {
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}

	var sheet *Sheet
	switch format {
	case FormatXLSX:
		sheet, err = decodeXLSX(data)
	case FormatXLS:
		sheet, err = decodeXLS(data)
	}
	if err != nil {
		return nil, err
	}
	sheet.Format = format
	for _, row := range sheet.Rows {
		for i, cell := range row {
			row[i] = SanitizeCell(cell)
		}
	}
	return sheet, nil
}

func decodeXLSX(data []byte) (sheet *Sheet, err error) {
	defer recoverDecoder(&err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	name := sheets[0]

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return &Sheet{Name: name, Rows: rows}, nil
}

func decodeXLS(data []byte) (sheet *Sheet, err error) {
	defer recoverDecoder(&err)

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheets
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, ErrNoSheets
	}

	// MaxRow is the highest populated row index; an empty sheet has no rows.
	if ws.MaxRow == 0 && sheetRow(ws, 0) == nil {
		return &Sheet{Name: ws.Name, Rows: [][]string{}}, nil
	}
	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := sheetRow(ws, i)
		if row == nil {
			rows = append(rows, []string{})
			continue
		}
		rows = append(rows, rowCells(row))
	}
	return &Sheet{Name: ws.Name, Rows: rows}, nil
}

// maxXLSCols is the column limit of a BIFF8 sheet.
const maxXLSCols = 256

// sheetRow returns row i, or nil when the sheet holds no record for it.
// WorkSheet.Row dereferences the missing row, so that panic stops here.
func sheetRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// rowCells reads a row's cells up to its last populated column. Rows built
// from cell records alone carry no width, so those are scanned to the sheet
// limit. Trailing blanks are dropped, as excelize does for .xlsx.
func rowCells(row *xls.Row) []string {
	width := row.LastCol()
	if width <= 0 || width > maxXLSCols {
		width = maxXLSCols
	}
	cells := make([]string, width)
	for c := range cells {
		cells[c] = row.Col(c)
	}
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

// recoverDecoder converts a panic inside a third-party decoder into ErrUnreadable.
func recoverDecoder(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: decoder panic: %v", ErrUnreadable, r)
	}
}
