package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push PRODUCT",
	Short: "Generate keys and upload them to the linked storefront variant",
	Long: `Generate keys and upload them to the storefront variant linked to the
product. The keys are committed locally before the upload, so a failed
push leaves them valid; they are printed for a manual retry.`,
	Args: cobra.ExactArgs(1),
	RunE: pushCmdRun,
}

var pushArgs struct {
	amount int
}

func init() {
	pushCmd.Flags().IntVar(&pushArgs.amount, "amount", 1,
		"How many keys to generate and push, between 1 and 50.")

	rootCmd.AddCommand(pushCmd)
}

func pushCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	result, err := client.pushKeys(ctx, args[0], pushArgs.amount)
	if err != nil {
		if result != nil && len(result.Keys) > 0 {
			cmd.PrintErrf("%d keys were generated before the push failed and remain valid:\n", len(result.Keys))
			for _, key := range result.Keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
		}
		return err
	}

	cmd.Printf("✔ pushed %d keys for %s to the storefront\n", result.Amount, result.Product)
	return nil
}
