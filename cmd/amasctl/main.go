// Package main implements the amasctl CLI tool for AMAS administration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "amasctl",
		Short:   "AMAS CLI tool",
		Long:    `amasctl is a command-line tool for managing AMAS resources and access.`,
		Version: version,
	}

	// Add subcommands
	rootCmd.AddCommand(docsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// docsCmd returns the docs subcommand for managing documentation access.
func docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage protected documentation access",
		Long:  `Manage access to protected documentation via Cloudflare Access.`,
	}

	cmd.AddCommand(docsGrantCmd())
	cmd.AddCommand(docsRevokeCmd())
	cmd.AddCommand(docsListCmd())

	return cmd
}
