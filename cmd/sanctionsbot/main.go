package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sanctionsbot/internal/app"
)

var (
	configPath string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:           "sanctionsbot",
	Short:         "Announce additions and removals on a consolidated sanctions list",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the list once, publish any change and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), app.Options{ConfigPath: configPath, DryRun: dryRun})
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer a.Stop(context.Background(), app.StopRunOnce)

		if _, err := a.RunOnce(cmd.Context()); err != nil {
			return err
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run immediately, then on the configured schedule until terminated",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), app.Options{ConfigPath: configPath, DryRun: dryRun})
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		if err := a.Serve(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (JSON or YAML); empty uses defaults and environment")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log posts instead of publishing them")

	rootCmd.AddCommand(runCmd, serveCmd, newDiffCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
