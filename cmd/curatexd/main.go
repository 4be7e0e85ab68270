package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbforge/curatex/internal/cli"
	"github.com/kbforge/curatex/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "curatexd",
		Short: "Curatex daemon and CLI",
		Long:  "Curatex daemon for running the curation API server and managing tenants, API keys, and background jobs",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.TenantCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.ScanCmd())
	rootCmd.AddCommand(admin.PromoteCmd())
	rootCmd.AddCommand(admin.ReapCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
