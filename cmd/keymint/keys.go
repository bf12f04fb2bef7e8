package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/keymint/keymint/internal/domain"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate and inspect license keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate PRODUCT",
	Short: "Generate single-use keys for a product",
	Long: `Generate single-use keys for a product. The plaintext keys are printed
to stdout once and cannot be recovered afterward, so capture them now.`,
	Args: cobra.ExactArgs(1),
	RunE: keysGenerateCmdRun,
}

var keysStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-product key usage counts",
	Args:  cobra.NoArgs,
	RunE:  keysStatsCmdRun,
}

var keysLookupCmd = &cobra.Command{
	Use:   "lookup KEY",
	Short: "Show the status of a key, including who redeemed it",
	Args:  cobra.ExactArgs(1),
	RunE:  keysLookupCmdRun,
}

var keysGenerateArgs struct {
	amount int
}

func init() {
	keysGenerateCmd.Flags().IntVar(&keysGenerateArgs.amount, "amount", 1,
		"How many keys to generate, between 1 and 50.")

	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysStatsCmd)
	keysCmd.AddCommand(keysLookupCmd)
	rootCmd.AddCommand(keysCmd)
}

func keysGenerateCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	req := domain.GenerateKeysRequest{Product: args[0], Amount: keysGenerateArgs.amount}
	var resp domain.GenerateKeysResponse
	if err := client.do(ctx, http.MethodPost, "/api/v1/keys", req, &resp); err != nil {
		return err
	}

	// Keys go to stdout so they can be piped; the notice goes to stderr.
	for _, key := range resp.Keys {
		fmt.Fprintln(cmd.OutOrStdout(), key)
	}
	cmd.PrintErrf("✔ %d keys generated for %s; they will not be shown again\n", resp.Amount, resp.Product)
	return nil
}

func keysStatsCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var stats []*domain.ProductKeyStats
	if err := client.do(ctx, http.MethodGet, "/api/v1/keys/stats", nil, &stats); err != nil {
		return err
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.ProductID,
			fmt.Sprintf("%d", s.Used),
			fmt.Sprintf("%d", s.Unused),
			fmt.Sprintf("%d", s.Total),
		})
	}

	printTable(cmd.OutOrStdout(), []string{"Product", "Used", "Unused", "Total"}, rows)
	return nil
}

func keysLookupCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	req := domain.LookupKeyRequest{Key: args[0]}
	var status domain.KeyStatus
	if err := client.do(ctx, http.MethodPost, "/api/v1/keys/lookup", req, &status); err != nil {
		return err
	}

	if !status.Found {
		return fmt.Errorf("key not found")
	}

	cmd.Printf("product:\t%s\n", status.Key.ProductID)
	cmd.Printf("created:\t%s\n", status.Key.CreatedAt.Local().Format(time.DateTime))
	cmd.Printf("used:\t\t%t\n", status.Used)
	if status.Redemption != nil {
		cmd.Printf("redeemed at:\t%s\n", status.Redemption.RedeemedAt.Local().Format(time.DateTime))
		cmd.Printf("redeemer:\t%s\n", status.Redemption.RedeemerID)
		cmd.Printf("tenant:\t\t%s\n", status.Redemption.TenantID)
	}
	return nil
}
