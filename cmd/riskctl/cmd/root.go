package cmd

import (
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/rustyeddy/riskengine/internal/telemetry"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	envLogLevel = "RISKCTL_LOG_LEVEL"
	envDB       = "RISKCTL_DB"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	logLevel string
	dbPath   string

	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Risk gate and position math for crypto trading bots",
	Long: `riskctl runs the risk engine from the command line.

It provides tools for:
  - Position sizing, TP/SL and DCA ladder calculations
  - Profit and loss for trades and positions
  - Evaluating batches of signals against the portfolio risk limits
  - Reading the position and decision journal

Settings are YAML or JSON files (see "riskctl config init").
RISKCTL_LOG_LEVEL and RISKCTL_DB may be set in the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("log-level") {
			if v := os.Getenv(envLogLevel); v != "" {
				logLevel = v
			}
		}
		if !cmd.Flags().Changed("db") {
			if v := os.Getenv(envDB); v != "" {
				dbPath = v
			}
		}
		log = telemetry.NewLoggerTo(cmd.ErrOrStderr(), logLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = log.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// usd renders a dollar amount to the cent.
func usd(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

// num renders a price or quantity without float noise.
func num(v float64) string { return decimal.NewFromFloat(v).Round(8).String() }
