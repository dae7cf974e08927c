// cmd/buttonfetch/version.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamzrod/buttonfetch/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of buttonfetch",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "buttonfetch version %s\n", strings.TrimSpace(config.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
