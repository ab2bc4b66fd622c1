// Package main provides the entry point for the shopscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for shopscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopscan",
		Short: "Discover product pages on e-commerce sites",
		Long: `shopscan crawls e-commerce sites and discovers their product detail pages.

Starting from a shop's home page it follows same-domain links up to a
configurable depth, classifies product URLs by their path shape, and writes
the discovered catalog as JSON documents. Every run is recorded in a local
history database so catalogs can be compared over time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewDiffCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
