// Command emsctl runs employee imports and administrative tasks against the
// configured store without going through the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ems/internal/application"
	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/logging"
)

// openApp builds the service from the environment. Tests replace it.
var openApp = func(ctx context.Context) (*application.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return application.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "emsctl",
		Short:         "Employee records administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(core.ContextWithClient(cmd.Context(), core.ClientInfo{Actor: "cli"}))
			if envFile == "" {
				return nil
			}
			if err := godotenv.Overload(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load (empty to skip)")

	root.AddCommand(newImportCmd(), newResetCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
