package cmd

import (
	"fmt"

	"github.com/rustyeddy/riskengine/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate bot settings files",
	Long: `Manage bot settings files.

Subcommands:
  init     - Generate a default settings file
  validate - Validate an existing settings file

Examples:
  riskctl config init -o bot.yaml
  riskctl config validate -f bot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default settings file",
	Long: `Create a new settings file with default values. The format follows
the file extension (.yaml or .yml for YAML, anything else for JSON).

Example:
  riskctl config init -o bot.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a settings file",
	Long: `Check that a settings file loads and passes validation, and print
the risk limits it resolves to.

Example:
  riskctl config validate -f bot.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "bot.yaml", "output settings file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to settings file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default settings: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and evaluate signals with:")
	fmt.Fprintf(out, "  riskctl evaluate -c %s -i signals.json\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	l := cfg.Limits()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Settings valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Capital: $%s (risk %s%% per trade, %s)\n", usd(cfg.Capital), num(cfg.RiskPercentage), cfg.MarketType)
	fmt.Fprintf(out, "  Entries: %d DCA levels every %s%%, initial %s%%\n", cfg.DCALevels, num(cfg.DCADropPct), num(cfg.InitialEntryPct))
	fmt.Fprintf(out, "  Exits: TP %s%%, SL %s%%\n", num(cfg.TakeProfitPct), num(cfg.StopLossPct))
	fmt.Fprintf(out, "  Limits: daily loss %s%%, drawdown %s%%, symbol %s%%, total %s%%, %d trades\n",
		num(l.MaxDailyLossPct), num(l.MaxDrawdownPct), num(l.MaxExposurePerSymbol), num(l.MaxExposureTotal), l.MaxActiveTrades)
	return nil
}
