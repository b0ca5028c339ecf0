package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ems/internal/admin"
	"github.com/JonMunkholm/ems/internal/core"
)

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every employee record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return admin.ErrNotConfirmed
			}
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			return runReset(cmd, app.Service, yes)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion of all employees")
	return cmd
}

func runReset(cmd *cobra.Command, svc *core.Service, confirmed bool) error {
	r := &admin.Resetter{Service: svc}
	n, err := r.ResetAll(cmd.Context(), confirmed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d employees\n", n)
	return nil
}
