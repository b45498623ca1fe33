package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-savings/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "savings",
		Short: "Savings ledger service",
		Long: `savings records USD savings deposits and withdrawals per user,
projects them into a balance snapshot and exposes transaction lifecycles
over HTTP.`,
		SilenceUsage: true,
	}

	// Global flags
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml if present)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(serveCmd())
	root.AddCommand(projectCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the default logger from flags alone, for commands
// that do not load the full service configuration.
func setupLogging() error {
	if err := logging.Setup(v.GetString("logging.level"), v.GetString("logging.format")); err != nil {
		return err
	}
	slog.Debug("Logger configured", "level", v.GetString("logging.level"))
	return nil
}
