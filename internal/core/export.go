package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/ems/internal/employee"
)

// ExportHeader is the header row of ExportEmployees. The data columns use
// import aliases and the importer ignores ID, so a converted export can be
// imported again.
var ExportHeader = []string{"ID", "First Name", "Last Name", "Email", "Phone Number", "Department"}

const exportPageSize = 500

// ExportEmployees writes every record as CSV in listing order (first name,
// then id) and returns how many records were written.
func (s *Service) ExportEmployees(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	for page := 0; ; page++ {
		result, err := s.store.List(ctx, employee.ListQuery{Page: page, Size: exportPageSize, SortDir: "asc"})
		if err != nil {
			return written, fmt.Errorf("export page %d: %w", page, err)
		}
		for _, e := range result.Items {
			record := []string{
				strconv.FormatInt(e.ID, 10),
				e.FirstName,
				e.LastName,
				e.Email,
				e.PhoneNumber,
				e.Department,
			}
			if err := cw.Write(record); err != nil {
				return written, fmt.Errorf("write row: %w", err)
			}
			written++
		}
		if len(result.Items) < exportPageSize {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("flush export: %w", err)
	}
	return written, nil
}
