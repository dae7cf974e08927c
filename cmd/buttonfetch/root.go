// cmd/buttonfetch/root.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tamzrod/buttonfetch/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "buttonfetch",
	Short: "Fetch a web page each time a button is pressed",
	Long: `buttonfetch joins the network it was built for, waits for a debounced
button press and prints the body of one HTTP GET per press.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML tuning file (defaults apply when omitted)")
}

// loadConfig returns a normalized, validated config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := &config.Config{}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
