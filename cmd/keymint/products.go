package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/keymint/keymint/internal/domain"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Manage the product registry",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all products",
	Args:  cobra.NoArgs,
	RunE:  productsListCmdRun,
}

var productsSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Create or update a product",
	Args:  cobra.ExactArgs(1),
	RunE:  productsSetCmdRun,
}

var productsRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a product (issued keys and the ledger are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  productsRmCmdRun,
}

var productsLinkCmd = &cobra.Command{
	Use:   "link NAME EXTERNAL_PRODUCT_ID EXTERNAL_VARIANT_ID",
	Short: "Link a product to a storefront variant for key delivery",
	Args:  cobra.ExactArgs(3),
	RunE:  productsLinkCmdRun,
}

var productsSetArgs struct {
	entitlementRef string
}

func init() {
	productsSetCmd.Flags().StringVar(&productsSetArgs.entitlementRef, "entitlement-ref", "",
		"Entitlement reference handed to the gateway on redemption (e.g. a role id).")

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsSetCmd)
	productsCmd.AddCommand(productsRmCmd)
	productsCmd.AddCommand(productsLinkCmd)
	rootCmd.AddCommand(productsCmd)
}

func productsListCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var products []*domain.Product
	if err := client.do(ctx, http.MethodGet, "/api/v1/products", nil, &products); err != nil {
		return err
	}

	rows := make([][]string, 0, len(products))
	for _, p := range products {
		entitlement := "-"
		if p.EntitlementRef != nil {
			entitlement = *p.EntitlementRef
		}
		rows = append(rows, []string{
			p.Name,
			entitlement,
			p.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	printTable(cmd.OutOrStdout(), []string{"Name", "Entitlement Ref", "Updated"}, rows)
	return nil
}

func productsSetCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	req := domain.UpsertProductRequest{}
	if productsSetArgs.entitlementRef != "" {
		req.EntitlementRef = &productsSetArgs.entitlementRef
	}

	var product domain.Product
	if err := client.do(ctx, http.MethodPut, productPath(args[0], ""), req, &product); err != nil {
		return err
	}

	cmd.Printf("✔ product %s saved\n", product.Name)
	return nil
}

func productsRmCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := client.do(ctx, http.MethodDelete, productPath(args[0], ""), nil, nil); err != nil {
		return err
	}

	cmd.Printf("✔ product %s removed\n", args[0])
	return nil
}

func productsLinkCmdRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	req := domain.LinkExternalDeliveryRequest{
		ExternalProductID: args[1],
		ExternalVariantID: args[2],
	}

	var link domain.ExternalDeliveryLink
	if err := client.do(ctx, http.MethodPut, productPath(args[0], "delivery"), req, &link); err != nil {
		return err
	}

	cmd.Printf("✔ product %s linked to storefront variant %s/%s\n", link.ProductID, link.ExternalProductID, link.ExternalVariantID)
	return nil
}
