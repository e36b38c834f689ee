package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"futurebank/internal/cli"
	"futurebank/internal/log"
)

var (
	cfgFile  string
	logLevel string
	backend  string

	rootCmd = &cobra.Command{
		Use:   "futurebank",
		Short: "🏦 ふたりの未来投資銀行 - a two-person point ledger",
		Long: `futurebank keeps an append-only passbook of good deeds for two people.
Savings and healthy habits earn points; points buy reward tickets.

Run "futurebank serve" for the web dashboard or use the subcommands to
record and inspect the ledger from the terminal.`,
		SilenceUsage:      true,
		PersistentPreRunE: applyFlags,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "data backend: memory, csv, sheets, sqlite (overrides DATA_BACKEND)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(earnCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(redeemCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(ticketsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// applyFlags exports explicit flags as the environment variables the config
// loader reads, so flags win over .env and config files.
func applyFlags(cmd *cobra.Command, _ []string) error {
	set := map[string]string{
		"config":    "CONFIG_FILE",
		"log-level": "LOG_LEVEL",
		"backend":   "DATA_BACKEND",
	}
	for flag, env := range set {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := os.Setenv(env, f.Value.String()); err != nil {
			return fmt.Errorf("set %s: %w", env, err)
		}
	}
	return nil
}

// openApp loads configuration and opens the ledger. Logs go to stderr so
// command output stays clean.
func openApp(cmd *cobra.Command, component string) (*cli.App, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if component == log.ComponentCLI && !cmd.Flags().Changed("log-level") {
		level = "warn"
	}
	logger := cli.SetupLogger(level, component, cmd.ErrOrStderr())
	return cli.NewApp(cmd.Context(), cfg, logger)
}
