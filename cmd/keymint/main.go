package main

import (
	"io"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var VERSION = "0.0.0-dev.0"

var rootCmd = &cobra.Command{
	Use:               "keymint",
	Version:           VERSION,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	Long: `Command line client for the keymint license key service.
All commands are administrative; supply the admin token with --token
or the KEYMINT_ADMIN_TOKEN environment variable.`,
}

type rootFlags struct {
	server  string
	token   string
	timeout time.Duration
}

var rootArgs = rootFlags{
	timeout: 30 * time.Second,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootArgs.server, "server", envOr("KEYMINT_SERVER", "http://localhost:8080"),
		"Base URL of the keymint server.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.token, "token", os.Getenv("KEYMINT_ADMIN_TOKEN"),
		"Admin token for the keymint API.")
	rootCmd.PersistentFlags().DurationVar(&rootArgs.timeout, "timeout", rootArgs.timeout,
		"The length of time to wait before giving up on the current operation.")
	rootCmd.SetOut(os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrf("✗ %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printTable(writer io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
