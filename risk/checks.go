package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/riskengine/config"
	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
)

// violation is a failed blocking check.
type violation struct {
	flag   Flag
	level  trade.RiskLevel
	reason string
}

// check returns nil when the rule passes.
type check func(c *Context, l config.Limits) *violation

// chain holds the blocking checks in the order they run. The volatility
// guard sits between active trades and balance and is handled by Evaluate.
var (
	preGuard  = []check{checkKillSwitch, checkSignal, checkPortfolio, checkDailyLoss, checkDrawdown, checkExposure, checkActiveTrades}
	postGuard = []check{checkBalance}
)

func pctOfEquity(v, equity float64) float64 {
	if equity <= 0 || math.IsNaN(equity) {
		return 0
	}
	return v / equity * 100
}

func checkKillSwitch(c *Context, _ config.Limits) *violation {
	if c.Settings.KillSwitchEnabled && c.Portfolio.KillAlert() {
		return &violation{FlagKillSwitch, trade.RiskCritical, "kill switch is active"}
	}
	return nil
}

func checkSignal(c *Context, _ config.Limits) *violation {
	if err := c.Signal.Validate(); err != nil {
		return &violation{FlagInvalidSignal, trade.RiskHigh, err.Error()}
	}
	return nil
}

// checkPortfolio denies on non-finite account figures, which would
// otherwise compare false against every threshold and pass.
func checkPortfolio(c *Context, _ config.Limits) *violation {
	pf := c.Portfolio
	err := errs.First(
		errs.Finite("portfolio.equity", pf.Equity),
		errs.Finite("portfolio.total_exposure_usd", pf.TotalExposureUSD),
		errs.Finite("portfolio.daily_pnl", pf.DailyPnL),
		errs.Finite("portfolio.current_drawdown_pct", pf.CurrentDrawdownPct),
		errs.Finite("portfolio.peak_equity", pf.PeakEquity),
		errs.Finite("portfolio.max_drawdown_pct", pf.MaxDrawdownPct),
		errs.Finite("usd_balance", c.USDBalance),
	)
	for i := 0; err == nil && i < len(c.OpenTrades); i++ {
		err = errs.Finite(fmt.Sprintf("open_trades[%d].invested", i), c.OpenTrades[i].Invested)
	}
	if err != nil {
		return &violation{FlagInvalidPortfolio, trade.RiskCritical, err.Error()}
	}
	return nil
}

func checkDailyLoss(c *Context, l config.Limits) *violation {
	loss := math.Abs(math.Min(0, c.Portfolio.DailyPnL))
	if loss == 0 {
		return nil
	}
	if l.MaxDailyLossUSD > 0 && loss >= l.MaxDailyLossUSD {
		return &violation{FlagDailyLoss, trade.RiskHigh,
			fmt.Sprintf("daily loss %.2f >= limit %.2f USD", loss, l.MaxDailyLossUSD)}
	}
	if pct := pctOfEquity(loss, c.Portfolio.Equity); c.Portfolio.Equity > 0 && pct >= l.MaxDailyLossPct {
		return &violation{FlagDailyLoss, trade.RiskHigh,
			fmt.Sprintf("daily loss %.2f%% >= limit %.2f%%", pct, l.MaxDailyLossPct)}
	}
	return nil
}

func checkDrawdown(c *Context, l config.Limits) *violation {
	if dd := c.Portfolio.CurrentDrawdownPct; dd >= l.MaxDrawdownPct {
		return &violation{FlagMaxDrawdown, trade.RiskCritical,
			fmt.Sprintf("drawdown %.2f%% >= limit %.2f%%", dd, l.MaxDrawdownPct)}
	}
	return nil
}

func checkExposure(c *Context, l config.Limits) *violation {
	eq := c.Portfolio.Equity
	if eq <= 0 {
		return nil
	}
	sym := pctOfEquity(SymbolExposureUSD(c.OpenTrades, c.Signal.Symbol), eq)
	if sym >= l.MaxExposurePerSymbol {
		return &violation{FlagSymbolExposure, trade.RiskHigh,
			fmt.Sprintf("%s exposure %.2f%% >= limit %.2f%%", c.Signal.Symbol, sym, l.MaxExposurePerSymbol)}
	}
	total := pctOfEquity(c.Portfolio.TotalExposureUSD, eq)
	if total >= l.MaxExposureTotal {
		return &violation{FlagTotalExposure, trade.RiskHigh,
			fmt.Sprintf("total exposure %.2f%% >= limit %.2f%%", total, l.MaxExposureTotal)}
	}
	return nil
}

func checkActiveTrades(c *Context, l config.Limits) *violation {
	if n := c.Portfolio.ActiveTradesCount; n >= l.MaxActiveTrades {
		return &violation{FlagMaxActiveTrades, trade.RiskMedium,
			fmt.Sprintf("active trades %d >= max %d", n, l.MaxActiveTrades)}
	}
	return nil
}

// RequiredBalance is the free balance needed to open one trade.
func RequiredBalance(s config.BotSettings) float64 {
	return s.Capital * s.RiskPercentage / 100
}

func checkBalance(c *Context, l config.Limits) *violation {
	bal := c.USDBalance
	if bal < l.MinBalanceUSD {
		return &violation{FlagInsufficientBalance, trade.RiskHigh,
			fmt.Sprintf("balance %.2f USD below minimum %.2f", bal, l.MinBalanceUSD)}
	}
	if req := RequiredBalance(c.Settings); bal < req {
		return &violation{FlagInsufficientBalance, trade.RiskHigh,
			fmt.Sprintf("balance %.2f USD below required %.2f", bal, req)}
	}
	return nil
}
