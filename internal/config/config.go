// Package config loads the engine tuning knobs with viper: defaults
// first, then an optional config file, then ENGINE_* environment
// overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full engine configuration tree
type Config struct {
	Engine     EngineConfig     `json:"engine" mapstructure:"engine"`
	Structure  StructureConfig  `json:"structure" mapstructure:"structure"`
	Generation GenerationConfig `json:"generation" mapstructure:"generation"`
	Trigger    TriggerConfig    `json:"trigger" mapstructure:"trigger"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// EngineConfig holds orchestration-level knobs
type EngineConfig struct {
	TopN      int `json:"top_n" mapstructure:"top_n"`           // published setups per tick
	ATRPeriod int `json:"atr_period" mapstructure:"atr_period"` // volatility proxy period
	Workers   int `json:"workers" mapstructure:"workers"`       // concurrent symbol evaluations
}

// StructureConfig holds detector and level-locator knobs
type StructureConfig struct {
	SwingHalfWindow int     `json:"swing_half_window" mapstructure:"swing_half_window"`
	LevelEpsilonBps float64 `json:"level_epsilon_bps" mapstructure:"level_epsilon_bps"`
	MaxLevels       int     `json:"max_levels" mapstructure:"max_levels"`
	LevelLookback   int     `json:"level_lookback" mapstructure:"level_lookback"`
}

// GenerationConfig holds the candidate-generation tunables
type GenerationConfig struct {
	BOSFreshnessMinutes int     `json:"bos_freshness_minutes" mapstructure:"bos_freshness_minutes"`
	SweepFreshnessBars  int     `json:"sweep_freshness_bars" mapstructure:"sweep_freshness_bars"`
	RetestBandLoBps     float64 `json:"retest_band_lo_bps" mapstructure:"retest_band_lo_bps"`
	RetestBandHiBps     float64 `json:"retest_band_hi_bps" mapstructure:"retest_band_hi_bps"`
	ZoneATR             float64 `json:"zone_atr" mapstructure:"zone_atr"`
	StopATR             float64 `json:"stop_atr" mapstructure:"stop_atr"`
	SqueezeWidthMax     float64 `json:"squeeze_width_max" mapstructure:"squeeze_width_max"`
	RangeEdgeATR        float64 `json:"range_edge_atr" mapstructure:"range_edge_atr"`
	NoiseFloorATR       float64 `json:"noise_floor_atr" mapstructure:"noise_floor_atr"`
	RiskCapATR          float64 `json:"risk_cap_atr" mapstructure:"risk_cap_atr"`
	TPFloorATR          float64 `json:"tp_floor_atr" mapstructure:"tp_floor_atr"`
	ScalpStopTolerance  float64 `json:"scalp_stop_tolerance" mapstructure:"scalp_stop_tolerance"`
}

// TriggerConfig holds the state-machine knobs
type TriggerConfig struct {
	TierHysteresisBps float64 `json:"tier_hysteresis_bps" mapstructure:"tier_hysteresis_bps"`
	StaleBars         float64 `json:"stale_bars" mapstructure:"stale_bars"`
	StaleGraceSeconds int     `json:"stale_grace_seconds" mapstructure:"stale_grace_seconds"`
	PriceStaleScale   float64 `json:"price_stale_scale" mapstructure:"price_stale_scale"`
	CacheTTLMinutes   int     `json:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// LoggingConfig controls log construction
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	Console bool   `json:"console" mapstructure:"console"`
	Output  string `json:"output" mapstructure:"output"`
}

// StaleGrace returns the grace window as a duration
func (t TriggerConfig) StaleGrace() time.Duration {
	return time.Duration(t.StaleGraceSeconds) * time.Second
}

// CacheTTL returns the runtime-cache TTL as a duration
func (t TriggerConfig) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLMinutes) * time.Minute
}

// BOSFreshness returns the breakout freshness window as a duration
func (g GenerationConfig) BOSFreshness() time.Duration {
	return time.Duration(g.BOSFreshnessMinutes) * time.Minute
}

// Load reads configuration in precedence order; path may be empty to
// run on defaults and environment alone
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every knob at its default
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; an unmarshal failure is a programming error
		panic(fmt.Sprintf("default config unmarshal: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.top_n", 3)
	v.SetDefault("engine.atr_period", 14)
	v.SetDefault("engine.workers", 4)

	v.SetDefault("structure.swing_half_window", 2)
	v.SetDefault("structure.level_epsilon_bps", 12)
	v.SetDefault("structure.max_levels", 8)
	v.SetDefault("structure.level_lookback", 120)

	v.SetDefault("generation.bos_freshness_minutes", 90)
	v.SetDefault("generation.sweep_freshness_bars", 6)
	v.SetDefault("generation.retest_band_lo_bps", 8)
	v.SetDefault("generation.retest_band_hi_bps", 6)
	v.SetDefault("generation.zone_atr", 0.25)
	v.SetDefault("generation.stop_atr", 0.8)
	v.SetDefault("generation.squeeze_width_max", 0.02)
	v.SetDefault("generation.range_edge_atr", 0.75)
	v.SetDefault("generation.noise_floor_atr", 0.15)
	v.SetDefault("generation.risk_cap_atr", 3.0)
	v.SetDefault("generation.tp_floor_atr", 0.5)
	v.SetDefault("generation.scalp_stop_tolerance", 0.1)

	v.SetDefault("trigger.tier_hysteresis_bps", 5)
	v.SetDefault("trigger.stale_bars", 2)
	v.SetDefault("trigger.stale_grace_seconds", 90)
	v.SetDefault("trigger.price_stale_scale", 1)
	v.SetDefault("trigger.cache_ttl_minutes", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.output", "stdout")
}

// Validate rejects configurations that cannot run
func (c *Config) Validate() error {
	if c.Engine.TopN <= 0 {
		return fmt.Errorf("engine.top_n must be positive, got %d", c.Engine.TopN)
	}
	if c.Engine.ATRPeriod <= 0 {
		return fmt.Errorf("engine.atr_period must be positive, got %d", c.Engine.ATRPeriod)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Structure.SwingHalfWindow < 1 {
		return fmt.Errorf("structure.swing_half_window must be at least 1, got %d", c.Structure.SwingHalfWindow)
	}
	if c.Structure.LevelEpsilonBps <= 0 {
		return fmt.Errorf("structure.level_epsilon_bps must be positive, got %g", c.Structure.LevelEpsilonBps)
	}
	if c.Generation.RiskCapATR <= c.Generation.NoiseFloorATR {
		return fmt.Errorf("generation.risk_cap_atr %g must exceed noise_floor_atr %g",
			c.Generation.RiskCapATR, c.Generation.NoiseFloorATR)
	}
	return nil
}
