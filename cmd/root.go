package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/irradiance-cli/internal/config"
	"github.com/KaramelBytes/irradiance-cli/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	envFile   string
	debug     bool
	logLevel  string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Structured logger for pipeline progress (stderr)
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "irradiance",
	Short: "Irradiance CLI: profile, clean and explore solar station sensor exports",
	Long: `Irradiance loads a solar-station CSV/TSV/XLSX export, reports summary statistics,
missing values and z-score outliers, fills missing measurements with the column median,
drops the free-text annotation column, clips negative readings to zero and writes the
cleaned table to a new file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.irradiance/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with IRRADIANCE_* overrides (ignored if absent)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
}

func loadConfig() {
	// .env values never override variables already set in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read %s: %v\n", envFile, err)
		}
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal here: commands that need config report the error themselves
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

func initLogger() error {
	lc := logging.Config{Level: "warn", Format: "text"}
	if cfg != nil {
		lc.Level, lc.Format = cfg.LogLevel, cfg.LogFormat
	}
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	if debug {
		lc.Level = "debug"
	}
	l, err := logging.Init(lc, os.Stderr)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
