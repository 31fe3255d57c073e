package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRiskUSD is the dollar loss if the stop is hit. Leverage multiplies
// the move for futures.
func PlannedRiskUSD(qty, entry, stop, leverage float64) float64 {
	if stop <= 0 || qty <= 0 {
		return 0
	}
	if leverage < 1 {
		leverage = 1
	}
	return qty * abs(entry-stop) * leverage
}

// RR is the reward-to-risk ratio of a stop/target pair, 0 without risk.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is plannedRiskUSD as a percentage of equity. Without equity there
// is nothing to measure against and the result is 0.
func RiskPct(plannedRiskUSD, equity float64) float64 {
	if equity <= 0 || math.IsNaN(plannedRiskUSD) {
		return 0
	}
	return plannedRiskUSD / equity * 100
}

// SymbolExposureUSD sums the invested amount of open trades on symbol.
func SymbolExposureUSD(trades []OpenTrade, symbol string) float64 {
	total := 0.0
	for _, t := range trades {
		if t.Symbol == symbol {
			total += t.Invested
		}
	}
	return total
}
