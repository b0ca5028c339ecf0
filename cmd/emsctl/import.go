package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ems/internal/core"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import employees from an .xlsx or .xls file and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			return runImport(cmd, app.Service, args[0], cmd.OutOrStdout())
		},
	}
}

// runImport prints the report as indented JSON. A report with row errors is
// still a successful run.
func runImport(cmd *cobra.Command, svc *core.Service, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	// ImportEmployees closes f.
	report, err := svc.ImportEmployees(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
