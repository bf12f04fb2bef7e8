package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/keymint/keymint/internal/domain"
)

var redeemCmd = &cobra.Command{
	Use:   "redeem KEY",
	Short: "Redeem a key on behalf of a user",
	Long: `Redeem a key on behalf of a user. This is what the gateway does in
production; from the CLI it is mostly useful for smoke testing.`,
	Args: cobra.ExactArgs(1),
	RunE: redeemCmdRun,
}

var redeemArgs struct {
	redeemer string
	tenant   string
}

func init() {
	redeemCmd.Flags().StringVar(&redeemArgs.redeemer, "redeemer", "",
		"Platform id of the redeeming user.")
	redeemCmd.Flags().StringVar(&redeemArgs.tenant, "tenant", "",
		"Platform id of the tenant the redemption happens in.")
	_ = redeemCmd.MarkFlagRequired("redeemer")
	_ = redeemCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(redeemCmd)
}

func redeemCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	req := domain.RedeemRequest{
		Key:        args[0],
		RedeemerID: redeemArgs.redeemer,
		TenantID:   redeemArgs.tenant,
	}

	var result domain.RedemptionResult
	if err := client.do(ctx, http.MethodPost, "/api/v1/redeem", req, &result); err != nil {
		return err
	}

	cmd.Printf("✔ key redeemed for product %s at %s\n", result.ProductID, result.RedeemedAt.Local().Format(time.DateTime))
	if result.EntitlementRef != nil {
		cmd.Printf("entitlement ref: %s\n", *result.EntitlementRef)
	}
	return nil
}
