// Package main provides the escalator CLI for running escalation sweeps and
// checking working-day arithmetic against the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/bootstrap"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/observability"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "escalator",
	Short: "Run ticket escalation sweeps outside the API server",
	Long: `escalator runs the SLA escalation sweep once against the configured store
and answers working-day questions using the stored holiday calendar.

Examples:
  escalator sweep                                 # sweep now
  escalator sweep --at 2026-10-15T02:00:00Z       # sweep as of a given instant
  escalator working-days --from 2026-10-05 --to 2026-10-15`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(workingDaysCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		stop()
		os.Exit(1)
	}
}

// withContainer loads configuration, wires services and hands them to fn.
func withContainer(ctx context.Context, fn func(*bootstrap.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	container, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build services", zap.Error(err))
		return err
	}
	defer container.Close()
	return fn(container)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
