// Package cli provides the attachd command-line interface: the serve
// command that runs the HTTP sidecar, plus one-shot upload, delete,
// and presign commands for scripting and smoke tests.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fincontrol/attachd/internal/config"
	"github.com/fincontrol/attachd/internal/httpx"
	"github.com/fincontrol/attachd/internal/logging"
	"github.com/fincontrol/attachd/internal/storage"
	"github.com/fincontrol/attachd/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	retries int

	logger zerolog.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "attachd",
		Short: "Signed-request attachment store for invoice and statement files",
		Long: `attachd ` + version.Version + ` - Built: ` + version.BuildTime + `
Uploads, deletes, and presigns attachment files against an
S3-compatible object store using locally computed SigV4 signatures.

Run "attachd serve" for the HTTP sidecar, or use the one-shot
commands (upload, delete, presign) directly from scripts.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(verbose)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (YAML, optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", -1, "Transport retries for storage calls (-1 = use config, 0 = none)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newPresignCmd())
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig reads configuration and applies the --retries override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if retries >= 0 {
		cfg.Retries = retries
	}
	return cfg, nil
}

// newStore builds the storage client from configuration: transport
// with proxy settings, optional retry wrapper, then the signed client.
func newStore(cfg config.Config) (*storage.Client, error) {
	httpClient, err := httpx.New(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}
	httpClient = httpx.WithRetries(httpClient, cfg.Retries, logger)

	return storage.NewClient(cfg.Storage,
		storage.WithHTTPClient(httpClient),
		storage.WithLogger(logger),
	)
}
