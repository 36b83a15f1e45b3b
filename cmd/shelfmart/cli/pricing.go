package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shelfmart/shelfmart/internal/pricing"
)

// PricingCLI exposes in-process engine operations to the operator terminal.
type PricingCLI struct {
	service *pricing.Service
}

// NewPricingCLI constructs the helper.
func NewPricingCLI(service *pricing.Service) *PricingCLI {
	return &PricingCLI{service: service}
}

// Reprice recomputes and persists prices for one product and prints the
// batch report.
func (c *PricingCLI) Reprice(ctx context.Context, out io.Writer, productID string) error {
	report, err := c.service.RecomputeForProduct(ctx, productID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "product %s: %d sellers updated, %d failed\n", report.ProductID, report.Succeeded, report.Failed())
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "  seller %s: %s\n", failure.SellerID, failure.Reason)
	}
	return nil
}

// Preview prints calculated prices per seller without persisting.
func (c *PricingCLI) Preview(ctx context.Context, out io.Writer, productID string, basePrice float64) error {
	prices, err := c.service.CalculateForAllSellers(ctx, productID, basePrice)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SELLER\tPRICE")
	for sellerID, price := range prices {
		fmt.Fprintf(w, "%s\t%.2f\n", sellerID, price)
	}
	return w.Flush()
}

// Summary prints the per-seller inventory aggregates.
func (c *PricingCLI) Summary(ctx context.Context, out io.Writer) error {
	summaries, err := c.service.Summary(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SELLER\tTIER\tPRODUCTS\tAVG\tMIN\tMAX")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\n", s.SellerName, s.Tier, s.TotalProducts, s.AvgPrice, s.MinPrice, s.MaxPrice)
	}
	return w.Flush()
}
