package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/rustyeddy/riskengine/config"
	"github.com/rustyeddy/riskengine/indicators"
	"github.com/rustyeddy/riskengine/internal/gate"
	"github.com/rustyeddy/riskengine/internal/telemetry"
	"github.com/rustyeddy/riskengine/journal"
	"github.com/rustyeddy/riskengine/market"
	"github.com/rustyeddy/riskengine/plan"
	"github.com/rustyeddy/riskengine/risk"
	"github.com/rustyeddy/riskengine/sizing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a batch of signals against the risk limits",
	Long: `Run each signal in a batch file through the risk gate and print the
resulting plans as JSON, in input order.

The batch file is JSON:

  {
    "settings":    { ... },        optional, overrides --config
    "portfolio":   { "equity": 10000, "daily_pnl": -120, ... },
    "usd_balance": 1000,
    "open_trades": [ { "symbol": "ETHUSDT", "invested": 400 } ],
    "performance": { "total_trades": 30, "win_rate": 55, ... },
    "indicators":  { "BTCUSDT": { "volatility": "HIGH", ... } },
    "signals":     [ { "symbol": "BTCUSDT", "side": "buy", "entry_price": 64000 } ]
  }

Signals without an indicator snapshot get one computed from
<candles-dir>/<SYMBOL>_<timeframe>.csv when --candles-dir is set.
With --db every decision is written to the journal and the daily PnL is
read from positions closed since UTC midnight.

Examples:
  riskctl evaluate -c bot.yaml -i batch.json
  riskctl evaluate -i batch.json --candles-dir ./candles --timeframe 1h --db ./riskctl.sqlite`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

var (
	evalInput       string
	evalConfig      string
	evalUser        string
	evalCandlesDir  string
	evalTimeframe   string
	evalConcurrency int
	evalMetrics     bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	f := evaluateCmd.Flags()
	f.StringVarP(&evalInput, "input", "i", "-", "batch file, - for stdin")
	f.StringVarP(&evalConfig, "config", "c", "", "bot settings file (YAML or JSON)")
	f.StringVar(&evalUser, "user", "cli", "user the decisions are recorded for")
	f.StringVar(&evalCandlesDir, "candles-dir", "", "directory of <SYMBOL>_<timeframe>.csv candle files")
	f.StringVar(&evalTimeframe, "timeframe", "1h", "candle timeframe for indicators")
	f.IntVar(&evalConcurrency, "concurrency", 4, "signals evaluated in parallel")
	f.BoolVar(&evalMetrics, "metrics", false, "print Prometheus metrics to stderr when done")
}

type evalBatch struct {
	Settings    *config.BotSettings          `json:"settings,omitempty"`
	Portfolio   risk.PortfolioSnapshot       `json:"portfolio"`
	USDBalance  float64                      `json:"usd_balance"`
	OpenTrades  []risk.OpenTrade             `json:"open_trades,omitempty"`
	Performance *sizing.Performance          `json:"performance,omitempty"`
	Indicators  map[string]market.Indicators `json:"indicators,omitempty"`
	Signals     []market.Signal              `json:"signals"`
}

type evalResult struct {
	DecisionID string    `json:"decision_id"`
	Plan       plan.Plan `json:"plan"`
}

func readBatch(cmd *cobra.Command) (evalBatch, error) {
	var r io.Reader = cmd.InOrStdin()
	if evalInput != "-" {
		f, err := os.Open(evalInput)
		if err != nil {
			return evalBatch{}, fmt.Errorf("open batch: %w", err)
		}
		defer f.Close()
		r = f
	}

	var b evalBatch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return evalBatch{}, fmt.Errorf("decode batch: %w", err)
	}

	if b.Settings == nil {
		if evalConfig == "" {
			return evalBatch{}, fmt.Errorf("batch has no settings and --config is not set")
		}
		s, err := config.LoadFromFile(evalConfig)
		if err != nil {
			return evalBatch{}, fmt.Errorf("load settings: %w", err)
		}
		b.Settings = s
	} else if err := b.Settings.Validate(); err != nil {
		return evalBatch{}, fmt.Errorf("batch settings: %w", err)
	}
	return b, nil
}

// dirCandles reads candle files named <SYMBOL>_<timeframe>.csv.
type dirCandles struct {
	dir string
}

func (d dirCandles) Candles(_ context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	path := filepath.Join(d.dir, strings.ToUpper(symbol)+"_"+timeframe+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := market.ReadCandles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if limit > 0 && len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	return cs, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	batch, err := readBatch(cmd)
	if err != nil {
		return err
	}

	rec := telemetry.NewRecorder()
	opts := gate.Options{Logger: log, Recorder: rec}

	if evalCandlesDir != "" {
		if _, err := market.ParseTimeframe(evalTimeframe); err != nil {
			return err
		}
		src := indicators.FromCandles{Candles: dirCandles{dir: evalCandlesDir}}
		opts.Indicators = indicators.NewCachedSource(src, indicators.NewTTLCache(indicators.DefaultTTL, nil))
	}

	if dbPath != "" {
		j, err := journal.NewSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
		opts.Store = j
		opts.Ledger = j
	}

	svc := gate.New(opts)
	results := make([]evalResult, len(batch.Signals))

	g, ctx := errgroup.WithContext(cmd.Context())
	if evalConcurrency > 0 {
		g.SetLimit(evalConcurrency)
	}
	for i, sig := range batch.Signals {
		i, sig := i, sig
		g.Go(func() error {
			rc := risk.Context{
				Settings:   *batch.Settings,
				Signal:     sig,
				Portfolio:  batch.Portfolio,
				OpenTrades: batch.OpenTrades,
				USDBalance: batch.USDBalance,
			}
			if ind, ok := batch.Indicators[sig.Symbol]; ok {
				rc.Indicators = &ind
			}
			res, err := svc.Evaluate(ctx, gate.Request{
				UserID:      evalUser,
				Timeframe:   evalTimeframe,
				Risk:        rc,
				Performance: batch.Performance,
			})
			if err != nil {
				return fmt.Errorf("signal %d (%s): %w", i, sig.Symbol, err)
			}
			results[i] = evalResult{DecisionID: res.DecisionID, Plan: res.Plan}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	approved := 0
	for _, r := range results {
		if r.Plan.Approved() {
			approved++
		}
	}
	log.Debug("batch evaluated", zap.Int("signals", len(results)), zap.Int("approved", approved))

	if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if evalMetrics {
		return dumpMetrics(cmd.ErrOrStderr(), rec)
	}
	return nil
}

func dumpMetrics(w io.Writer, rec *telemetry.Recorder) error {
	mfs, err := rec.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
