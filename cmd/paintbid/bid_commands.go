package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paintbid/paintbid/internal/bids"
	"github.com/paintbid/paintbid/internal/estimate"
)

func newBidCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bid",
		Short: "Create and inspect saved bids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newBidNewCommand(ctx))
	cmd.AddCommand(newBidListCommand(ctx))
	cmd.AddCommand(newBidShowCommand(ctx))
	return cmd
}

func newBidNewCommand(ctx *commandContext) *cobra.Command {
	var (
		projectFlag string
		addressFlag string
		clientFlag  string
		userFlag    string
		lengthFlag  float64
		widthFlag   float64
		heightFlag  float64
		rateFlag    float64
		itemFlags   []string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a bid from room dimensions and manual line items",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			userID, err := ctx.userID(userFlag)
			if err != nil {
				return err
			}
			if strings.TrimSpace(projectFlag) == "" {
				return fmt.Errorf("--project is required")
			}

			rate := rateFlag
			if rate == 0 {
				rate = loaded.Config.Estimate.WallRate
			}

			assembler := estimate.NewAssembler()

			var dims *estimate.Dimensions
			if lengthFlag != 0 || widthFlag != 0 || heightFlag != 0 {
				d := estimate.Dimensions{Length: lengthFlag, Width: widthFlag, Height: heightFlag}
				wallItem, err := estimate.WallItem(d, rate)
				if err != nil {
					return err
				}
				if err := assembler.ReplaceComputed(estimate.WallItemKey, wallItem); err != nil {
					return err
				}
				dims = &d
			}

			for _, raw := range itemFlags {
				description, price, err := splitItemFlag(raw)
				if err != nil {
					return err
				}
				if _, err := assembler.AddManual(description, price); err != nil {
					return err
				}
			}

			if assembler.Len() == 0 {
				return fmt.Errorf("nothing to bid: pass room dimensions or at least one --item")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			bid, err := store.Save(cmd.Context(), bids.Draft{
				UserID:      userID,
				ClientID:    clientFlag,
				ProjectName: projectFlag,
				Address:     addressFlag,
				Dimensions:  dims,
				Items:       assembler.Items(),
				Status:      bids.StatusDraft,
			})
			if err != nil {
				return err
			}

			printBid(cmd, bid)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectFlag, "project", "", "Project name (required)")
	cmd.Flags().StringVar(&addressFlag, "address", "", "Project address")
	cmd.Flags().StringVar(&clientFlag, "client", "", "Client identifier")
	cmd.Flags().StringVar(&userFlag, "user", "", "Contractor account (defaults to user_id from config)")
	cmd.Flags().Float64Var(&lengthFlag, "length", 0, "Room length in feet")
	cmd.Flags().Float64Var(&widthFlag, "width", 0, "Room width in feet")
	cmd.Flags().Float64Var(&heightFlag, "height", 0, "Room height in feet")
	cmd.Flags().Float64Var(&rateFlag, "rate", 0, "Wall rate per square foot (defaults to estimate.wall_rate)")
	cmd.Flags().StringArrayVar(&itemFlags, "item", nil, "Manual line item as \"description=price\" (repeatable)")
	return cmd
}

// splitItemFlag parses one --item value of the form "description=price".
func splitItemFlag(raw string) (string, string, error) {
	description, price, found := strings.Cut(raw, "=")
	if !found || strings.TrimSpace(description) == "" {
		return "", "", fmt.Errorf("invalid --item %q: expected \"description=price\"", raw)
	}
	return strings.TrimSpace(description), strings.TrimSpace(price), nil
}

func newBidListCommand(ctx *commandContext) *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved bids, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := ctx.userID(userFlag)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.ListByUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no bids")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, bid := range list {
				fmt.Fprintf(out, "%s  %-10s  $%9.2f  %s  %s\n",
					bid.ID, bid.Status, bid.EstimatedCost, bid.CreatedAt.Format("2006-01-02"), bid.ProjectName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "Contractor account (defaults to user_id from config)")
	return cmd
}

func newBidShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <bid-id>",
		Short: "Show one bid with its line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			bid, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBid(cmd, bid)
			return nil
		},
	}
}

func printBid(cmd *cobra.Command, bid *bids.Bid) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "bid:      %s\n", bid.ID)
	fmt.Fprintf(out, "project:  %s\n", bid.ProjectName)
	if bid.Address != "" {
		fmt.Fprintf(out, "address:  %s\n", bid.Address)
	}
	fmt.Fprintf(out, "status:   %s\n", bid.Status)
	fmt.Fprintf(out, "created:  %s\n", bid.CreatedAt.Format("2006-01-02 15:04"))
	if bid.Dimensions != nil {
		fmt.Fprintf(out, "room:     %gx%gx%g ft (%.0f sq ft of wall)\n",
			bid.Dimensions.Length, bid.Dimensions.Width, bid.Dimensions.Height, bid.TotalSqFt)
	}

	fmt.Fprintln(out)
	for _, item := range bid.Items {
		fmt.Fprintf(out, "  %-40s %8.2f x $%.2f = $%.2f\n", item.Description, item.Quantity, item.UnitPrice, item.Total)
	}
	fmt.Fprintf(out, "\n  total: $%.2f\n", bid.EstimatedCost)
}
