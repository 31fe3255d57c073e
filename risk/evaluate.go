// Package risk gates a trade candidate against the bot's risk policy.
//
// Checks run in a fixed order and the first blocking failure ends the
// evaluation:
//
//	kill switch, signal, portfolio figures, daily loss, drawdown,
//	exposure, active trades, volatility guard (never blocks),
//	available balance
//
// Thresholds come from config.BotSettings.Limits.
package risk

import (
	"fmt"

	"github.com/rustyeddy/riskengine/sizing"
	"github.com/rustyeddy/riskengine/trade"
)

// Evaluate runs the check chain. It never fails; a denial is reported with
// Allowed=false and the flag of the rule that fired.
func Evaluate(c Context) Result {
	limits := c.Settings.Limits()
	res := Result{Allowed: true, Level: trade.RiskLow}

	deny := func(v *violation) Result {
		res.Allowed = false
		res.Reason = v.reason
		res.Flags = append(res.Flags, v.flag)
		res.Level = res.Level.Escalate(v.level)
		return res
	}

	for _, chk := range preGuard {
		if v := chk(&c, limits); v != nil {
			return deny(v)
		}
	}

	if ind := c.Indicators; c.Settings.VolatilityGuardEnabled && ind != nil && ind.Volatility.Elevated() {
		adj := c.Settings.Capital * sizing.VolatilityFactor(ind.Volatility)
		res.AdjustedCapital = &adj
		res.Flags = append(res.Flags, FlagHighVolatility)
		res.Level = res.Level.Escalate(trade.RiskMedium)
	}

	for _, chk := range postGuard {
		if v := chk(&c, limits); v != nil {
			return deny(v)
		}
	}

	if res.AdjustedCapital != nil {
		res.Reason = fmt.Sprintf("allowed with capital reduced to %.2f (%s volatility)",
			*res.AdjustedCapital, c.Indicators.Volatility)
	} else {
		res.Reason = "all risk checks passed"
	}
	return res
}
