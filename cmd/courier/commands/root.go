package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulfikawr/courier/internal/config"
	"github.com/zulfikawr/courier/internal/errors"
	"github.com/zulfikawr/courier/internal/logging"
	"github.com/zulfikawr/courier/internal/ui"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags
var Version = "dev"

var (
	verbosity int
	logLevel  string
	logFile   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Asynchronous HTTP downloads to memory, JSON or file",
	Long: `Courier fetches HTTP resources with idle timeouts, cookies, basic
authentication, proxies and rate limiting.

Examples:
  courier get https://example.com/hello
  courier get --json https://api.example.com/items --query 0.name
  courier get -o archive.zip https://example.com/archive.zip`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return errors.ConfigError("Failed to load configuration", err)
		}
		cfg = loaded
		return setupLogging(cmd, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: COURIER_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotating file instead of stderr (env: COURIER_LOG_FILE)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging applies config first, then flags
func setupLogging(cmd *cobra.Command, c *config.Config) error {
	if err := logging.SetLevelName(c.LogLevel); err != nil {
		return errors.ConfigError("Invalid log level in configuration", err)
	}
	if cmd.Flags().Changed("verbose") {
		logging.SetLevel(verbosity)
	}
	if logLevel != "" {
		if err := logging.SetLevelName(logLevel); err != nil {
			return err
		}
	}

	path := c.LogFile
	if logFile != "" {
		path = logFile
	}
	if path != "" {
		logging.UseFile(logging.FileOptions{Path: path, MaxBackups: 3, MaxAgeDays: 28})
	}
	logging.Debug("Configuration loaded", zap.String("path", config.GetConfigPath()))
	return nil
}

// Execute runs the root command
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}

// FormatError renders err for the terminal. User errors already carry their
// own guidance and are printed as is.
func FormatError(err error) string {
	if errors.IsUserError(err) {
		return fmt.Sprintf("%s✗%s %v", ui.Colors.Red, ui.Colors.Reset, err)
	}
	return fmt.Sprintf("%sError:%s %v", ui.Colors.Red, ui.Colors.Reset, err)
}
