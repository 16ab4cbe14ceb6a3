// Package cli defines the memgate command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// Root builds the root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "memgate",
		Short: "Scope-aware memory server over MCP",
		Long:  "memgate is a scope-aware access and translation layer over a memory backend, exposed as an MCP stdio server.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "memgate.yaml", "config file path")

	root.AddCommand(serveCmd())
	root.AddCommand(doctorCmd())
	return root
}
