package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	vberrors "github.com/vango-dev/bindery/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err, isTerminal(os.Stderr))
		os.Exit(1)
	}
}

// printError writes err for a person at a terminal, or as one line when
// stderr is redirected.
func printError(w io.Writer, err error, terminal bool) {
	var ve *vberrors.Error
	switch {
	case errors.As(err, &ve) && terminal:
		fmt.Fprint(w, ve.Format())
	case errors.As(err, &ve):
		fmt.Fprintln(w, ve.FormatCompact())
	case terminal:
		fmt.Fprintf(w, "\033[31mError:\033[0m %s\n", err)
	default:
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "bindery",
		Short: "Drive and inspect the reactive binding engine",
		Long: `bindery runs a synthetic binding workload on the reactive
dependency-tracking engine and reports what it cost.

  • run      execute a fixed number of frames and write a report
  • inspect  serve live frame statistics over HTTP and websocket
  • codes    list error codes and their hints`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "bindery.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Also write JSON logs to this file")

	rootCmd.AddCommand(
		runCmd(&flags),
		inspectCmd(&flags),
		codesCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
