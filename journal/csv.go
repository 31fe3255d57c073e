package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/riskengine/risk"
)

var decisionHeader = []string{
	"id", "time", "symbol", "side", "allowed", "risk_level",
	"flags", "adjusted_capital", "position_size", "planned_risk_usd", "reason",
}

// WriteDecisionsCSV writes ds with a header row.
func WriteDecisionsCSV(w io.Writer, ds []DecisionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(decisionHeader); err != nil {
		return err
	}
	for _, d := range ds {
		adj := ""
		if d.AdjustedCapital != nil {
			adj = dec(*d.AdjustedCapital)
		}
		if err := cw.Write([]string{
			d.ID,
			d.Time.UTC().Format(time.RFC3339),
			d.Symbol,
			string(d.Side),
			strconv.FormatBool(d.Allowed),
			string(d.Level),
			joinFlags(d.Flags),
			adj,
			dec(d.PositionSize),
			dec(d.PlannedRiskUSD),
			d.Reason,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func joinFlags(fs []risk.Flag) string {
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = string(f)
	}
	return strings.Join(s, "|")
}
