package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/riskengine/trade"
)

// FormatPositionOrg renders a position as an Org-mode block for a trading
// journal. Structured facts go in the PROPERTIES drawer so they stay
// searchable; the Thesis/Execution/Review headings are left for notes.
func FormatPositionOrg(p trade.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Position: %s %s (%s)\n", p.Symbol, p.Side, shortID(p.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", p.ID)
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", p.TradeID)
	if p.Exchange != "" {
		fmt.Fprintf(&b, ":EXCHANGE: %s\n", p.Exchange)
	}
	fmt.Fprintf(&b, ":MARKET_TYPE: %s\n", p.MarketType)
	fmt.Fprintf(&b, ":STATUS: %s\n", p.Status)
	fmt.Fprintf(&b, ":AVG_ENTRY_PRICE: %s\n", dec(p.AvgEntryPrice))
	fmt.Fprintf(&b, ":QTY: %s\n", dec(p.Qty))
	fmt.Fprintf(&b, ":LEVERAGE: %s\n", dec(p.Leverage))
	fmt.Fprintf(&b, ":STOP_LOSS: %s\n", dec(p.RiskState.StopLossPrice))
	if tp := p.RiskState.TakeProfitPrice; tp != nil {
		fmt.Fprintf(&b, ":TAKE_PROFIT: %s\n", dec(*tp))
	}
	fmt.Fprintf(&b, ":REALIZED_PNL_USD: %.2f\n", p.RealizedPnlUSD)
	fmt.Fprintf(&b, ":OPENED_AT: %s\n", p.OpenedAt.UTC().Format(time.RFC3339))
	if !p.ClosedAt.IsZero() {
		fmt.Fprintf(&b, ":CLOSED_AT: %s\n", p.ClosedAt.UTC().Format(time.RFC3339))
	}
	if p.FailureReason != "" {
		fmt.Fprintf(&b, ":FAILURE_REASON: %s\n", p.FailureReason)
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatPositionsOrg renders multiple positions separated by blank lines.
func FormatPositionsOrg(ps []trade.Position) string {
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatPositionOrg(p))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
