// Package cmd implements the shopd command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shopd",
	Short: "shopd - 파스텔 감성 문구점 백엔드",
	Long: `shopd runs the backend for the pastel stationery storefront:
a conversational shopping assistant, the product catalog, order and
payment handling, and chat transcript storage.

Run "shopd serve" to start the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
