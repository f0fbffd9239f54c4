package cli

import (
	"fmt"
	"strconv"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/latticefi/pairbook/x/pairbook/keeper"
	"github.com/latticefi/pairbook/x/pairbook/types"
)

// GetTxCmd returns the mutating commands for one pair's Keeper. These call
// k directly in-process: there is no chain to sign against (persistence/
// transport are out of scope).
func GetTxCmd(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "tx",
		Short:                      "Pair trading commands",
		DisableFlagParsing:         false,
		SuggestionsMinimumDistance: 2,
	}

	cmd.AddCommand(
		CmdInsertLimitOrder(k),
		CmdInsertMarketOrder(k),
		CmdClaimOrder(k),
		CmdCancelOrder(k),
		CmdCollectFees(k),
		CmdUpdateMarketPolicy(k),
	)

	return cmd
}

func parseSide(s string) (types.Side, error) {
	switch s {
	case "buy":
		return types.SideBuy, nil
	case "sell":
		return types.SideSell, nil
	default:
		return types.SideUnspecified, fmt.Errorf("invalid side: %s (use 'buy' or 'sell')", s)
	}
}

func parseInt(name, s string) (math.Int, error) {
	v, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, fmt.Errorf("invalid %s: %q", name, s)
	}
	return v, nil
}

// CmdInsertLimitOrder returns the command to place a resting limit order.
func CmdInsertLimitOrder(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert-limit-order [side] [price] [amount]",
		Short: "Insert a limit order",
		Long: `Insert a limit order.

Examples:
  pairbookctl tx insert-limit-order buy 2000000000000000000000 1000000000000000000 --from alice
  pairbookctl tx insert-limit-order sell 2000000000000000000000 500000000000000000 --from bob`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := cmd.Flags().GetString("from")
			if err != nil || caller == "" {
				return fmt.Errorf("--from is required")
			}
			side, err := parseSide(args[0])
			if err != nil {
				return err
			}
			price, err := parseInt("price", args[1])
			if err != nil {
				return err
			}
			amount, err := parseInt("amount", args[2])
			if err != nil {
				return err
			}

			id, err := k.InsertLimitOrder(types.AccountID(caller), side, price, amount)
			if err != nil {
				return err
			}
			cmd.Printf("order id: %d\n", id)
			return nil
		},
	}
	cmd.Flags().String("from", "", "caller account")
	return cmd
}

// CmdInsertMarketOrder returns the command to sweep the book at market.
func CmdInsertMarketOrder(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert-market-order [side] [amount] [worst-price]",
		Short: "Insert a market order bounded by a worst-acceptable price",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := cmd.Flags().GetString("from")
			if err != nil || caller == "" {
				return fmt.Errorf("--from is required")
			}
			side, err := parseSide(args[0])
			if err != nil {
				return err
			}
			amount, err := parseInt("amount", args[1])
			if err != nil {
				return err
			}
			worstPrice, err := parseInt("worst-price", args[2])
			if err != nil {
				return err
			}

			id, err := k.InsertMarketOrder(types.AccountID(caller), side, amount, worstPrice)
			if err != nil {
				return err
			}
			cmd.Printf("order id: %d\n", id)
			return nil
		},
	}
	cmd.Flags().String("from", "", "caller account")
	return cmd
}

// CmdClaimOrder returns the command to claim a fully-filled resting order.
func CmdClaimOrder(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim-order [order-id]",
		Short: "Claim a fully-filled resting order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := cmd.Flags().GetString("from")
			if err != nil || caller == "" {
				return fmt.Errorf("--from is required")
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id: %v", err)
			}
			return k.ClaimOrder(types.AccountID(caller), types.OrderID(id))
		},
	}
	cmd.Flags().String("from", "", "caller account")
	return cmd
}

// CmdCancelOrder returns the command to cancel a resting order.
func CmdCancelOrder(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel-order [order-id]",
		Short: "Cancel a resting order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := cmd.Flags().GetString("from")
			if err != nil || caller == "" {
				return fmt.Errorf("--from is required")
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id: %v", err)
			}
			return k.CancelOrder(types.AccountID(caller), types.OrderID(id))
		},
	}
	cmd.Flags().String("from", "", "caller account")
	return cmd
}

// CmdCollectFees returns the governance-gated fee-sweep command.
func CmdCollectFees(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect-fees",
		Short: "Sweep accumulated fees to the governance treasury",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := cmd.Flags().GetString("from")
			if err != nil || caller == "" {
				return fmt.Errorf("--from is required")
			}
			return k.CollectFees(types.AccountID(caller))
		},
	}
	cmd.Flags().String("from", "", "caller account")
	return cmd
}

// CmdUpdateMarketPolicy returns the governance-gated fee/precision update
// command.
func CmdUpdateMarketPolicy(k *keeper.Keeper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-market-policy [maker-fee] [taker-fee] [price-precision]",
		Short: "Update the fee rates and price precision (governance only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := cmd.Flags().GetString("from")
			if err != nil || caller == "" {
				return fmt.Errorf("--from is required")
			}
			makerFee, err := parseInt("maker-fee", args[0])
			if err != nil {
				return err
			}
			takerFee, err := parseInt("taker-fee", args[1])
			if err != nil {
				return err
			}
			precision, err := parseInt("price-precision", args[2])
			if err != nil {
				return err
			}
			return k.UpdateMarketPolicy(types.AccountID(caller), makerFee, takerFee, precision)
		},
	}
	cmd.Flags().String("from", "", "caller account")
	return cmd
}
