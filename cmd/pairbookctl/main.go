package main

import (
	"os"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/latticefi/pairbook/client/cli"
	"github.com/latticefi/pairbook/metrics"
	"github.com/latticefi/pairbook/x/pairbook/keeper"
	"github.com/latticefi/pairbook/x/pairbook/types"
)

// inMemoryLedger is a process-local AssetLedger for exercising a pair
// from the CLI without a real custody backend; balances start at zero and
// Debit fails on insufficient funds, matching the AssetLedger contract.
type inMemoryLedger struct {
	balances map[types.AccountID]map[types.AssetID]math.Int
}

func newInMemoryLedger() *inMemoryLedger {
	return &inMemoryLedger{balances: make(map[types.AccountID]map[types.AssetID]math.Int)}
}

func (l *inMemoryLedger) balanceOf(account types.AccountID, asset types.AssetID) math.Int {
	byAsset, ok := l.balances[account]
	if !ok {
		return math.ZeroInt()
	}
	v, ok := byAsset[asset]
	if !ok {
		return math.ZeroInt()
	}
	return v
}

func (l *inMemoryLedger) Debit(account types.AccountID, asset types.AssetID, amount math.Int) error {
	balance := l.balanceOf(account, asset)
	if balance.LT(amount) {
		return types.ErrLedger.Wrapf("account %s has insufficient %s balance", account, asset)
	}
	l.set(account, asset, balance.Sub(amount))
	return nil
}

func (l *inMemoryLedger) Credit(account types.AccountID, asset types.AssetID, amount math.Int) {
	l.set(account, asset, l.balanceOf(account, asset).Add(amount))
}

func (l *inMemoryLedger) set(account types.AccountID, asset types.AssetID, v math.Int) {
	byAsset, ok := l.balances[account]
	if !ok {
		byAsset = make(map[types.AssetID]math.Int)
		l.balances[account] = byAsset
	}
	byAsset[asset] = v
}

func newRootCmd() *cobra.Command {
	cfg := keeper.Config{
		BaseAsset:          types.AssetID("base"),
		QuoteAsset:         types.AssetID("quote"),
		PricePrecision:     types.DefaultPricePrecision,
		InitialMakerFee:    math.NewInt(10),
		InitialTakerFee:    math.NewInt(20),
		GovernanceTreasury: types.AccountID("governance"),
		ScalingQuantum:     types.DefaultScalingQuantum,
	}

	logger := log.NewLogger(os.Stdout)
	collector := metrics.NewCollector()
	collector.Register(nil)

	k := keeper.NewKeeper(cfg, newInMemoryLedger(), types.IdentityScalingPolicy{}, types.NewRecordingSink(), logger, collector)

	cmd := &cobra.Command{
		Use:   "pairbookctl",
		Short: "Drive a single trading pair's order book from the command line",
	}
	cmd.AddCommand(cli.GetTxCmd(k), cli.GetQueryCmd(k))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.NewLogger(os.Stderr).Error("pairbookctl failed", "err", err)
		os.Exit(1)
	}
}
