package cmd

import (
	"fmt"

	"github.com/rustyeddy/riskengine/dca"
	"github.com/rustyeddy/riskengine/pnl"
	"github.com/rustyeddy/riskengine/sizing"
	"github.com/rustyeddy/riskengine/tpsl"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size a position from balance and risk",
	Long: `Compute the position that loses risk-pct of the balance when price
moves loss-pct against it, capped at 95% of the balance.

Example:
  riskctl size --balance 1000 --risk-pct 2 --loss-pct 5 --entry 100 --initial-pct 25`,
	Args: cobra.NoArgs,
	RunE: runSize,
}

var tpslCmd = &cobra.Command{
	Use:   "tpsl",
	Short: "Compute take-profit and stop-loss prices",
	Long: `Place the stop sl-pct from entry on the loss side and the target either
tp-pct away or rrr times the stop distance (--use-rrr).

Example:
  riskctl tpsl --entry 100 --side sell --sl-pct 5 --rrr 2 --use-rrr`,
	Args: cobra.NoArgs,
	RunE: runTPSL,
}

var dcaCmd = &cobra.Command{
	Use:   "dca",
	Short: "Build a DCA entry ladder",
	Long: `Split the remaining amount over equally spaced averaging entries and
print the running average entry and per-level stop.

Example:
  riskctl dca --entry 100 --total 400 --initial 100 --levels 3 --drop-pct 2 --sl-pct 5`,
	Args: cobra.NoArgs,
	RunE: runDCA,
}

var pnlCmd = &cobra.Command{
	Use:   "pnl",
	Short: "Profit and loss of a trade",
	Long: `Compute the realized PnL of closing a trade at --exit, or the
mark-to-market PnL at --price.

Example:
  riskctl pnl --side buy --entry 1000 --qty 1 --exit 1100 --fees 7`,
	Args: cobra.NoArgs,
	RunE: runPnL,
}

var (
	calcJSON bool

	sizeParams sizing.Params

	tpslEntry float64
	tpslSide  string
	tpslOpts  = tpsl.DefaultOptions()

	dcaParams dca.Params
	dcaSide   string
	dcaMethod string

	pnlSide     string
	pnlMarket   string
	pnlTrade    trade.Trade
	pnlExit     float64
	pnlLast     float64
	pnlRealized float64
)

func init() {
	for _, c := range []*cobra.Command{sizeCmd, tpslCmd, dcaCmd, pnlCmd} {
		rootCmd.AddCommand(c)
		c.Flags().BoolVar(&calcJSON, "json", false, "print JSON instead of text")
	}

	f := sizeCmd.Flags()
	f.Float64Var(&sizeParams.Balance, "balance", 0, "account balance in USD (required)")
	f.Float64Var(&sizeParams.RiskPct, "risk-pct", 2, "percent of balance to risk")
	f.Float64Var(&sizeParams.LossPct, "loss-pct", 5, "stop distance in percent")
	f.Float64Var(&sizeParams.Leverage, "leverage", 1, "leverage (1 for spot)")
	f.Float64Var(&sizeParams.EntryPrice, "entry", 0, "entry price (required)")
	f.Float64Var(&sizeParams.InitialPct, "initial-pct", 100, "percent bought at the first entry")
	_ = sizeCmd.MarkFlagRequired("balance")
	_ = sizeCmd.MarkFlagRequired("entry")

	f = tpslCmd.Flags()
	f.Float64Var(&tpslEntry, "entry", 0, "entry price (required)")
	f.StringVar(&tpslSide, "side", "buy", "buy or sell")
	f.Float64Var(&tpslOpts.TPPct, "tp-pct", tpslOpts.TPPct, "take-profit distance in percent")
	f.Float64Var(&tpslOpts.SLPct, "sl-pct", tpslOpts.SLPct, "stop-loss distance in percent")
	f.Float64Var(&tpslOpts.RRR, "rrr", tpslOpts.RRR, "reward:risk ratio")
	f.BoolVar(&tpslOpts.UseRRR, "use-rrr", false, "derive the target from --rrr")
	_ = tpslCmd.MarkFlagRequired("entry")

	f = dcaCmd.Flags()
	f.StringVar(&dcaSide, "side", "buy", "buy or sell")
	f.Float64Var(&dcaParams.EntryPrice, "entry", 0, "initial entry price (required)")
	f.Float64Var(&dcaParams.TotalAmount, "total", 0, "total position amount in USD (required)")
	f.Float64Var(&dcaParams.InitialAmount, "initial", 0, "amount bought at the initial entry")
	f.IntVar(&dcaParams.Levels, "levels", 3, "number of averaging entries")
	f.Float64Var(&dcaParams.DropPct, "drop-pct", 2, "price step between entries in percent")
	f.StringVar(&dcaMethod, "sl-method", string(dca.StopLossAveragePosition), "average_position, initial_entry, or empty for no stops")
	f.Float64Var(&dcaParams.SLPct, "sl-pct", 5, "stop-loss percent used for the loss budget")
	f.Float64Var(&dcaParams.MaxAllowedLoss, "max-loss", 0, "loss budget in USD (default total*sl-pct/100)")
	_ = dcaCmd.MarkFlagRequired("entry")
	_ = dcaCmd.MarkFlagRequired("total")

	f = pnlCmd.Flags()
	f.StringVar(&pnlSide, "side", "buy", "buy or sell")
	f.StringVar(&pnlMarket, "market", "spot", "spot or futures")
	f.Float64Var(&pnlTrade.EntryPrice, "entry", 0, "average entry price (required)")
	f.Float64Var(&pnlTrade.Qty, "qty", 0, "quantity in base units (required)")
	f.Float64Var(&pnlTrade.Leverage, "leverage", 1, "leverage (futures only)")
	f.Float64Var(&pnlTrade.Fees, "fees", 0, "fees paid in USD")
	f.Float64Var(&pnlTrade.Commission, "commission", 0, "commission paid in USD")
	f.Float64Var(&pnlExit, "exit", 0, "exit price for realized PnL")
	f.Float64Var(&pnlLast, "price", 0, "last price for unrealized PnL")
	f.Float64Var(&pnlRealized, "realized", 0, "PnL already realized on the position")
	_ = pnlCmd.MarkFlagRequired("entry")
	_ = pnlCmd.MarkFlagRequired("qty")
}

func runSize(cmd *cobra.Command, args []string) error {
	r, err := sizing.Size(sizeParams)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}
	if calcJSON {
		return writeJSON(cmd.OutOrStdout(), r)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Max loss:       %s USD\n", usd(r.MaxLossAmount))
	fmt.Fprintf(out, "Position size:  %s USD\n", usd(r.PositionSize))
	fmt.Fprintf(out, "Margin used:    %s USD\n", usd(r.MarginUsed))
	fmt.Fprintf(out, "Initial entry:  %s USD\n", usd(r.InitialAmount))
	fmt.Fprintf(out, "Remaining:      %s USD\n", usd(r.RemainingAmount))
	fmt.Fprintf(out, "Quantity:       %s\n", num(r.Quantity))
	return nil
}

func runTPSL(cmd *cobra.Command, args []string) error {
	side, err := trade.ParseSide(tpslSide)
	if err != nil {
		return err
	}
	lv, err := tpsl.Compute(tpslEntry, side, tpslOpts)
	if err != nil {
		return fmt.Errorf("tpsl: %w", err)
	}
	if calcJSON {
		return writeJSON(cmd.OutOrStdout(), lv)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Take profit:  %s (%s%%)\n", num(lv.TakeProfitPrice), num(lv.TPPct))
	fmt.Fprintf(out, "Stop loss:    %s (%s%%)\n", num(lv.StopLossPrice), num(lv.SLPct))
	fmt.Fprintf(out, "Risk/unit:    %s\n", num(lv.RiskAmount))
	fmt.Fprintf(out, "Reward/unit:  %s\n", num(lv.RewardAmount))
	fmt.Fprintf(out, "R:R:          %s\n", num(lv.ActualRRR))
	return nil
}

func runDCA(cmd *cobra.Command, args []string) error {
	side, err := trade.ParseSide(dcaSide)
	if err != nil {
		return err
	}
	p := dcaParams
	p.Side = side
	p.StopLossMethod = dca.StopLossMethod(dcaMethod)

	ladder, err := dca.Levels(p)
	if err != nil {
		return fmt.Errorf("dca: %w", err)
	}
	if calcJSON {
		return writeJSON(cmd.OutOrStdout(), ladder)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-12s %-12s %-14s %-12s %s\n", "LEVEL", "PRICE", "AMOUNT", "INVESTED", "AVG ENTRY", "STOP")
	for _, l := range ladder.Levels {
		stop := "-"
		if l.StopLoss != nil {
			stop = num(*l.StopLoss)
		}
		fmt.Fprintf(out, "%-5d %-12s %-12s %-14s %-12s %s\n",
			l.Index, num(l.Price), usd(l.Amount), usd(l.CumulativeInvestment), num(l.AverageEntry), stop)
	}
	fmt.Fprintf(out, "\nTotal invested: %s USD, qty %s, final average %s\n",
		usd(ladder.TotalInvested), num(ladder.TotalQuantity), num(ladder.FinalAverageEntry))
	return nil
}

type pnlReport struct {
	Realized *float64    `json:"realized,omitempty"`
	Position *pnl.Result `json:"position,omitempty"`
}

func runPnL(cmd *cobra.Command, args []string) error {
	side, err := trade.ParseSide(pnlSide)
	if err != nil {
		return err
	}
	mt, err := trade.ParseMarketType(pnlMarket)
	if err != nil {
		return err
	}
	if pnlExit <= 0 && pnlLast <= 0 {
		return fmt.Errorf("pnl: one of --exit or --price is required")
	}

	t := pnlTrade
	t.Side = side
	t.MarketType = mt
	if mt != trade.MarketFutures {
		t.Leverage = 1
	}

	var rep pnlReport
	if pnlExit > 0 {
		v := pnl.RealizedFromTrade(t, pnlExit)
		rep.Realized = &v
	}
	if pnlLast > 0 {
		r := pnl.ForPosition(trade.Position{
			Side:           side,
			MarketType:     mt,
			AvgEntryPrice:  t.EntryPrice,
			Qty:            t.Qty,
			Leverage:       t.Leverage,
			RealizedPnlUSD: pnlRealized,
		}, pnlLast)
		rep.Position = &r
	}
	if calcJSON {
		return writeJSON(cmd.OutOrStdout(), rep)
	}

	out := cmd.OutOrStdout()
	if rep.Realized != nil {
		fmt.Fprintf(out, "Realized at %s:  %s USD\n", num(pnlExit), usd(*rep.Realized))
	}
	if r := rep.Position; r != nil {
		fmt.Fprintf(out, "Unrealized at %s:  %s USD\n", num(pnlLast), usd(r.Unrealized))
		fmt.Fprintf(out, "Total:  %s USD (%s%% of %s)\n", usd(r.Total), num(r.Pct), usd(r.EntryCost))
	}
	return nil
}
