// Package config holds the validated bot settings the engine consumes and the
// single table of default risk limits.
package config

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rustyeddy/riskengine/dca"
	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/sizing"
	"github.com/rustyeddy/riskengine/trade"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CurrentVersion is the settings schema version this build understands.
const CurrentVersion = 1

// BotSettings is the strategy configuration for one bot. It is built and
// validated once at the load boundary and treated as read-only afterwards.
type BotSettings struct {
	Version int `json:"version" yaml:"version"`

	Capital         float64          `json:"capital" yaml:"capital"`
	RiskPercentage  float64          `json:"risk_percentage" yaml:"risk_percentage"`
	DCALevels       int              `json:"dca_levels" yaml:"dca_levels"`
	DCADropPct      float64          `json:"dca_drop_pct" yaml:"dca_drop_pct"`
	InitialEntryPct float64          `json:"initial_entry_pct" yaml:"initial_entry_pct"`
	Leverage        float64          `json:"leverage" yaml:"leverage"`
	MarketType      trade.MarketType `json:"market_type" yaml:"market_type"`

	TakeProfitPct   float64            `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct     float64            `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	RiskRewardRatio float64            `json:"risk_reward_ratio" yaml:"risk_reward_ratio"`
	UseRiskReward   bool               `json:"use_risk_reward" yaml:"use_risk_reward"`
	StopLossMethod  dca.StopLossMethod `json:"stop_loss_method,omitempty" yaml:"stop_loss_method,omitempty"`
	TrailingStopPct float64            `json:"trailing_stop_pct,omitempty" yaml:"trailing_stop_pct,omitempty"`

	// Optional limits. Nil means "use DefaultLimits".
	MaxDailyLossUSD      *float64 `json:"max_daily_loss_usd,omitempty" yaml:"max_daily_loss_usd,omitempty"`
	MaxDailyLossPct      *float64 `json:"max_daily_loss_pct,omitempty" yaml:"max_daily_loss_pct,omitempty"`
	MaxDrawdownPct       *float64 `json:"max_drawdown_pct,omitempty" yaml:"max_drawdown_pct,omitempty"`
	MaxExposurePerSymbol *float64 `json:"max_exposure_per_symbol,omitempty" yaml:"max_exposure_per_symbol,omitempty"`
	MaxExposureTotal     *float64 `json:"max_exposure_total,omitempty" yaml:"max_exposure_total,omitempty"`
	MaxActiveTrades      *int     `json:"max_active_trades,omitempty" yaml:"max_active_trades,omitempty"`
	MinBalanceUSD        *float64 `json:"min_balance_usd,omitempty" yaml:"min_balance_usd,omitempty"`

	VolatilityGuardEnabled bool        `json:"volatility_guard_enabled" yaml:"volatility_guard_enabled"`
	KillSwitchEnabled      bool        `json:"kill_switch_enabled" yaml:"kill_switch_enabled"`
	SizingMode             sizing.Mode `json:"sizing_mode" yaml:"sizing_mode"`
}

// Limits are the risk thresholds with every default already applied.
type Limits struct {
	MaxDailyLossUSD      float64 // 0 disables the absolute check
	MaxDailyLossPct      float64
	MaxDrawdownPct       float64
	MaxExposurePerSymbol float64
	MaxExposureTotal     float64
	MaxActiveTrades      int
	MinBalanceUSD        float64
}

// DefaultLimits is the only place threshold defaults live.
var DefaultLimits = Limits{
	MaxDailyLossUSD:      0,
	MaxDailyLossPct:      5,
	MaxDrawdownPct:       20,
	MaxExposurePerSymbol: 30,
	MaxExposureTotal:     80,
	MaxActiveTrades:      5,
	MinBalanceUSD:        10,
}

// Limits resolves the optional thresholds against DefaultLimits.
func (s BotSettings) Limits() Limits {
	l := DefaultLimits
	if s.MaxDailyLossUSD != nil {
		l.MaxDailyLossUSD = *s.MaxDailyLossUSD
	}
	if s.MaxDailyLossPct != nil {
		l.MaxDailyLossPct = *s.MaxDailyLossPct
	}
	if s.MaxDrawdownPct != nil {
		l.MaxDrawdownPct = *s.MaxDrawdownPct
	}
	if s.MaxExposurePerSymbol != nil {
		l.MaxExposurePerSymbol = *s.MaxExposurePerSymbol
	}
	if s.MaxExposureTotal != nil {
		l.MaxExposureTotal = *s.MaxExposureTotal
	}
	if s.MaxActiveTrades != nil {
		l.MaxActiveTrades = *s.MaxActiveTrades
	}
	if s.MinBalanceUSD != nil {
		l.MinBalanceUSD = *s.MinBalanceUSD
	}
	return l
}

// LoadFromFile loads settings from a file (YAML first, JSON fallback),
// applies the schema version and validates the result.
func LoadFromFile(path string) (*BotSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings from YAML or JSON bytes and validates them.
func Parse(data []byte) (*BotSettings, error) {
	cfg := &BotSettings{}

	err := yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.MarketType == "" {
		cfg.MarketType = trade.MarketSpot
	}
	if cfg.SizingMode == "" {
		cfg.SizingMode = sizing.ModeFixed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (s *BotSettings) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks every field. Errors wrap errs.ErrInvalidParameter.
func (s *BotSettings) Validate() error {
	if s.Version < 1 || s.Version > CurrentVersion {
		return errs.Invalid("version", s.Version, fmt.Sprintf("unsupported (current %d)", CurrentVersion))
	}
	if err := errs.Positive("capital", s.Capital); err != nil {
		return err
	}
	if err := errs.Positive("risk_percentage", s.RiskPercentage); err != nil {
		return err
	}
	if s.RiskPercentage > 100 {
		return errs.Invalid("risk_percentage", s.RiskPercentage, "must be <= 100")
	}
	if s.DCALevels < 0 {
		return errs.Invalid("dca_levels", s.DCALevels, "must be >= 0")
	}
	if s.DCALevels > 0 {
		if err := errs.Positive("dca_drop_pct", s.DCADropPct); err != nil {
			return err
		}
	}
	if err := errs.NonNegative("initial_entry_pct", s.InitialEntryPct); err != nil {
		return err
	}
	if s.InitialEntryPct > 100 {
		return errs.Invalid("initial_entry_pct", s.InitialEntryPct, "must be <= 100")
	}
	if err := errs.Positive("leverage", s.Leverage); err != nil {
		return err
	}
	if _, err := trade.ParseMarketType(string(s.MarketType)); err != nil {
		return err
	}
	if err := errs.Positive("take_profit_pct", s.TakeProfitPct); err != nil {
		return err
	}
	if err := errs.Positive("stop_loss_pct", s.StopLossPct); err != nil {
		return err
	}
	if s.UseRiskReward {
		if err := errs.Positive("risk_reward_ratio", s.RiskRewardRatio); err != nil {
			return err
		}
	}
	if s.StopLossMethod != "" && !s.StopLossMethod.Valid() {
		return errs.Invalid("stop_loss_method", s.StopLossMethod, "must be average_position|initial_entry")
	}
	if err := errs.NonNegative("trailing_stop_pct", s.TrailingStopPct); err != nil {
		return err
	}
	if !s.SizingMode.Valid() {
		return errs.Invalid("sizing_mode", s.SizingMode, "must be fixed|risk_based|volatility_adjusted")
	}

	optional := []struct {
		name string
		v    *float64
	}{
		{"max_daily_loss_usd", s.MaxDailyLossUSD},
		{"max_daily_loss_pct", s.MaxDailyLossPct},
		{"max_drawdown_pct", s.MaxDrawdownPct},
		{"max_exposure_per_symbol", s.MaxExposurePerSymbol},
		{"max_exposure_total", s.MaxExposureTotal},
		{"min_balance_usd", s.MinBalanceUSD},
	}
	for _, o := range optional {
		if o.v == nil {
			continue
		}
		if err := errs.NonNegative(o.name, *o.v); err != nil {
			return err
		}
	}
	if s.MaxActiveTrades != nil && *s.MaxActiveTrades < 1 {
		return errs.Invalid("max_active_trades", *s.MaxActiveTrades, "must be >= 1")
	}
	return nil
}

// Default returns settings with sensible defaults.
func Default() *BotSettings {
	return &BotSettings{
		Version:                CurrentVersion,
		Capital:                1000,
		RiskPercentage:         2,
		DCALevels:              3,
		DCADropPct:             2,
		InitialEntryPct:        25,
		Leverage:               1,
		MarketType:             trade.MarketSpot,
		TakeProfitPct:          3,
		StopLossPct:            5,
		RiskRewardRatio:        2,
		StopLossMethod:         dca.StopLossAveragePosition,
		VolatilityGuardEnabled: true,
		KillSwitchEnabled:      true,
		SizingMode:             sizing.ModeFixed,
	}
}
