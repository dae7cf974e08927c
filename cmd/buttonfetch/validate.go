// cmd/buttonfetch/validate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/buttonfetch/internal/config"
	"github.com/tamzrod/buttonfetch/internal/link"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the tuning file and the built-in link identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		creds, err := link.NewCredentials(config.SSID, config.Password)
		if err != nil {
			return fmt.Errorf("built-in credentials: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ssid:    %s (%s)\n", creds.SSID(), creds.Auth())
		fmt.Fprintf(out, "url:     %s\n", cfg.Fetch.URL)
		fmt.Fprintf(out, "link:    %s\n", cfg.Link.Backend)
		fmt.Fprintf(out, "button:  %s\n", cfg.Button.Backend)
		fmt.Fprintf(out, "sockets: %d stack / %d client\n", config.StackSockets, config.ClientSockets)
		fmt.Fprintln(out, "config is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
