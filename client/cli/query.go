package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/latticefi/pairbook/x/pairbook/keeper"
	"github.com/latticefi/pairbook/x/pairbook/types"
)

// GetQueryCmd returns the read-only commands for one pair's Keeper.
func GetQueryCmd(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "query",
		Short:                      "Pair read-only commands",
		DisableFlagParsing:         false,
		SuggestionsMinimumDistance: 2,
	}

	cmd.AddCommand(
		CmdQueryOrder(k),
		CmdQueryOrdersByOwner(k),
		CmdQueryOrdersBetween(k),
		CmdQueryPricePoint(k),
		CmdQueryFeeBalances(k),
		CmdQueryBook(k),
	)

	return cmd
}

// CmdQueryOrder returns the command to look up a single order by ID.
func CmdQueryOrder(k *keeper.Keeper) *cobra.Command {
	return &cobra.Command{
		Use:   "order [order-id]",
		Short: "Query a single order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id: %v", err)
			}
			o, ok := k.GetOrder(types.OrderID(id))
			if !ok {
				return fmt.Errorf("order %d not found", id)
			}
			return printJSON(cmd, o)
		},
	}
}

// CmdQueryOrdersByOwner returns the command to page through an owner's
// orders in ascending order-ID order.
func CmdQueryOrdersByOwner(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders [owner]",
		Short: "Query orders owned by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := cmd.Flags().GetUint64("from")
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			orders := k.OrdersByOwner(types.AccountID(args[0]), types.OrderID(from), limit)
			return printJSON(cmd, orders)
		},
	}
	cmd.Flags().Uint64("from", 0, "first order ID to include")
	cmd.Flags().Int("limit", 50, "maximum number of orders to return")
	return cmd
}

// CmdQueryOrdersBetween returns the command to page through orders by a
// closed ID range.
func CmdQueryOrdersBetween(k *keeper.Keeper) *cobra.Command {
	return &cobra.Command{
		Use:   "orders-between [from] [to]",
		Short: "Query orders with from <= ID <= to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid from id: %v", err)
			}
			to, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid to id: %v", err)
			}
			orders := k.OrdersBetween(types.OrderID(from), types.OrderID(to))
			return printJSON(cmd, orders)
		},
	}
}

// CmdQueryBook returns the command to inspect the best bid/ask and spread.
func CmdQueryBook(k *keeper.Keeper) *cobra.Command {
	return &cobra.Command{
		Use:   "book",
		Short: "Query the best bid, best ask, and spread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]string{}
			if bid, ok := k.BestBid(); ok {
				out["best_bid"] = bid.String()
			}
			if ask, ok := k.BestAsk(); ok {
				out["best_ask"] = ask.String()
			}
			if spread, ok := k.Spread(); ok {
				out["spread"] = spread.String()
			}
			return printJSON(cmd, out)
		},
	}
}

// CmdQueryPricePoint returns the command to inspect one price level.
func CmdQueryPricePoint(k *keeper.Keeper) *cobra.Command {
	return &cobra.Command{
		Use:   "price-point [price]",
		Short: "Query the liquidity state at a price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, ok := math.NewIntFromString(args[0])
			if !ok {
				return fmt.Errorf("invalid price: %q", args[0])
			}
			p, ok := k.PricePoint(price)
			if !ok {
				return fmt.Errorf("no price point in the book at price %s", price)
			}
			return printJSON(cmd, p)
		},
	}
}

// CmdQueryFeeBalances returns the command to inspect the un-swept fee
// accumulators.
func CmdQueryFeeBalances(k *keeper.Keeper) *cobra.Command {
	return &cobra.Command{
		Use:   "fee-balances",
		Short: "Query the current quote/base fee accumulators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			quote, base := k.FeeBalances()
			return printJSON(cmd, map[string]string{
				"quote_fee_balance": quote.String(),
				"base_fee_balance":  base.String(),
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
