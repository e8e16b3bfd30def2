package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hivewatch/alerts/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "alerts-server",
	Short: "Alerts server - hive alert delivery and retry engine",
	Long: `Alerts server stores hive alerts, delivers them over email, SMS and
Telegram according to each user's channel preferences, and retries failed
deliveries.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, retry scheduler and Telegram linker",
	RunE:  runServe,
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Run one pass over failed deliveries and exit",
	RunE:  runRetry,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		b := config.GetBuildInfo()
		fmt.Printf("alerts-server %s\n", b.Version)
		fmt.Printf("  commit: %s\n", b.Commit)
		fmt.Printf("  built:  %s\n", b.BuildTime)
		fmt.Printf("  go:     %s %s/%s\n", b.GoVersion, b.OS, b.Arch)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	rootCmd.AddCommand(serveCmd, retryCmd, migrateCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies CLI flag overrides.
func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(cmd.Context())
}

func runRetry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.reconciler.RetryFailedDeliveries(cmd.Context(), cfg.Retry.MaxRetries)
	if err != nil {
		return fmt.Errorf("retry failed deliveries: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database migrated", "driver", store.Driver())
	return nil
}
