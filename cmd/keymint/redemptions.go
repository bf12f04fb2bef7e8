package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/keymint/keymint/internal/domain"
)

var redemptionsCmd = &cobra.Command{
	Use:   "redemptions",
	Short: "Show the most recent redemptions",
	Args:  cobra.NoArgs,
	RunE:  redemptionsCmdRun,
}

var redemptionsArgs struct {
	limit int
}

func init() {
	redemptionsCmd.Flags().IntVar(&redemptionsArgs.limit, "limit", 10,
		"How many entries to show, between 1 and 20.")

	rootCmd.AddCommand(redemptionsCmd)
}

func redemptionsCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/api/v1/redemptions?limit=%d", redemptionsArgs.limit)
	var entries []*domain.Redemption
	if err := client.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		hash := e.KeyHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		rows = append(rows, []string{
			e.RedeemedAt.Local().Format(time.DateTime),
			e.ProductID,
			e.RedeemerID,
			e.TenantID,
			hash,
		})
	}

	printTable(cmd.OutOrStdout(), []string{"Redeemed At", "Product", "Redeemer", "Tenant", "Key Hash"}, rows)
	return nil
}
