package commands

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/zulfikawr/courier/internal/config"
	"github.com/zulfikawr/courier/internal/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printConfig(cmd.OutOrStdout(), config.GetConfigPath(), cfg)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInit(cmd.OutOrStdout(), configForce)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
}

func configInit(w io.Writer, force bool) error {
	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(w, ui.Colors.Yellow+"Configuration file already exists at: %s\n"+ui.Colors.Reset, configPath)
		fmt.Fprintln(w, ui.Colors.Dim+"Use --force to overwrite it."+ui.Colors.Reset)
		return nil
	}

	if err := config.SaveConfig(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(w, ui.Colors.Green+"✓ Configuration saved to: "+ui.Colors.Reset+ui.Colors.Dim+configPath+ui.Colors.Reset)
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.Colors.Dim+"Show the effective settings with:"+ui.Colors.Reset)
	fmt.Fprintln(w, "  "+ui.Colors.Green+"courier config show"+ui.Colors.Reset)
	return nil
}

func printConfig(w io.Writer, path string, c *config.Config) {
	if c == nil {
		c = config.DefaultConfig()
	}
	fmt.Fprintln(w, ui.Colors.Bold+"Current Configuration:"+ui.Colors.Reset)
	fmt.Fprintf(w, "  Config file: %s\n", path)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-24s %s\n", "Timeout:", c.Timeout())
	fmt.Fprintf(w, "  %-24s %s\n", "User Agent:", c.UserAgent)
	fmt.Fprintf(w, "  %-24s %s\n", "Proxy:", orNone(c.ProxyURL))
	fmt.Fprintf(w, "  %-24s %v\n", "Disable Cookies:", c.DisableCookies)
	fmt.Fprintf(w, "  %-24s %v\n", "Continue in Background:", c.ContinueInBackground)
	if c.RateLimitKBps > 0 {
		fmt.Fprintf(w, "  %-24s %s/s\n", "Rate Limit:", ui.FormatBytes(c.RateLimitKBps*1024))
	} else {
		fmt.Fprintf(w, "  %-24s %s\n", "Rate Limit:", "none")
	}
	fmt.Fprintf(w, "  %-24s %v\n", "HTTP/3:", c.HTTP3)
	fmt.Fprintf(w, "  %-24s %v\n", "Trust All Certificates:", c.TrustAllCertificates)
	fmt.Fprintf(w, "  %-24s %s\n", "Log Level:", c.LogLevel)
	fmt.Fprintf(w, "  %-24s %s\n", "Log File:", orNone(c.LogFile))
	fmt.Fprintf(w, "  %-24s %s\n", "Activity Address:", orNone(c.ActivityAddr))

	if len(c.GlobalHeaders) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Global Headers:")
		names := make([]string, 0, len(c.GlobalHeaders))
		for name := range c.GlobalHeaders {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "    %s: %s\n", name, c.GlobalHeaders[name])
		}
	}

	if len(c.Credentials) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Credentials:")
		for _, cred := range c.Credentials {
			// passwords are never printed
			fmt.Fprintf(w, "    %s: %s\n", orValue(cred.Host, "all hosts"), cred.Username)
		}
	}
}

func orNone(s string) string {
	return orValue(s, "none")
}

func orValue(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
