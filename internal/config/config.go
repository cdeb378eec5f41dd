package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"

	defaultMaxAccountsPerAgent       = 85
	defaultMinAccountsForEligibility = 5
	defaultMaxRetries                = 2
	defaultAlternatesK               = 5
)

// ScoringWeights weight the post-placement variance components in the
// single-account scorer.
type ScoringWeights struct {
	CountVariance     float64 `toml:"count_variance"`
	NeedinessVariance float64 `toml:"neediness_variance"`
	RevenueVariance   float64 `toml:"revenue_variance"`
	PriorityVariance  float64 `toml:"priority_variance"`
}

// BatchWeights weight the linearized deviation terms and recency penalties in
// the batch objective.
type BatchWeights struct {
	Count     float64 `toml:"count"`
	Neediness float64 `toml:"neediness"`
	Revenue   float64 `toml:"revenue"`
	Priority  float64 `toml:"priority"`
	Recency   float64 `toml:"recency"`
}

// SegmentLimits caps an agent's book for accounts in one segment/level bucket.
type SegmentLimits struct {
	MaxAccountsPerAgent       int `toml:"max_accounts_per_agent"`
	MinAccountsForEligibility int `toml:"min_accounts_for_eligibility"`
}

// ExclusionTier maps a batch-size range to a lookback window and the number
// of recent assignments an agent may have before being excluded.
type ExclusionTier struct {
	MaxBatchSize int           `toml:"max_batch_size" mapstructure:"max_batch_size"` // 0 means no upper bound
	Lookback     time.Duration `toml:"lookback" mapstructure:"lookback"`
	MaxRecent    int           `toml:"max_recent" mapstructure:"max_recent"`
}

type Config struct {
	DatabaseURL   string
	ReviewerURL   string
	ReviewTimeout time.Duration
	RunInterval   time.Duration

	MaxRetries  int
	AlternatesK int

	Weights      ScoringWeights
	Batch        BatchWeights
	Tiers        []ExclusionTier
	Limits       map[string]SegmentLimits
	DefaultLimit SegmentLimits
}

// Load reads configuration from the viper instance, falling back to defaults
// when no config file exists. A limits file referenced by limits.path
// overrides per-segment capacity ceilings.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(homeDir + "/.csmrouter")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		DatabaseURL:   v.GetString("warehouse.url"),
		ReviewerURL:   v.GetString("reviewer.url"),
		ReviewTimeout: v.GetDuration("reviewer.timeout"),
		RunInterval:   v.GetDuration("run.interval"),
		MaxRetries:    v.GetInt("assignment.max_retries"),
		AlternatesK:   v.GetInt("assignment.alternates_k"),
		Weights: ScoringWeights{
			CountVariance:     v.GetFloat64("weights.count_variance"),
			NeedinessVariance: v.GetFloat64("weights.neediness_variance"),
			RevenueVariance:   v.GetFloat64("weights.revenue_variance"),
			PriorityVariance:  v.GetFloat64("weights.priority_variance"),
		},
		Batch: BatchWeights{
			Count:     v.GetFloat64("batch.count"),
			Neediness: v.GetFloat64("batch.neediness"),
			Revenue:   v.GetFloat64("batch.revenue"),
			Priority:  v.GetFloat64("batch.priority"),
			Recency:   v.GetFloat64("batch.recency"),
		},
		Tiers:  defaultTiers(),
		Limits: map[string]SegmentLimits{},
		DefaultLimit: SegmentLimits{
			MaxAccountsPerAgent:       v.GetInt("limits.default_max_accounts"),
			MinAccountsForEligibility: v.GetInt("limits.default_min_accounts"),
		},
	}

	if v.IsSet("exclusion.tiers") {
		var tiers []ExclusionTier
		if err := v.UnmarshalKey("exclusion.tiers", &tiers); err != nil {
			return Config{}, fmt.Errorf("decode exclusion tiers: %w", err)
		}
		cfg.Tiers = tiers
	}

	if limitsPath := v.GetString("limits.path"); limitsPath != "" {
		limits, err := loadLimitsFile(limitsPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Limits = limits
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reviewer.timeout", "60s")
	v.SetDefault("run.interval", "0s")
	v.SetDefault("assignment.max_retries", defaultMaxRetries)
	v.SetDefault("assignment.alternates_k", defaultAlternatesK)
	v.SetDefault("weights.count_variance", 0.20)
	v.SetDefault("weights.neediness_variance", 0.25)
	v.SetDefault("weights.revenue_variance", 0.15)
	v.SetDefault("weights.priority_variance", 0.20)
	v.SetDefault("batch.count", 0.25)
	v.SetDefault("batch.neediness", 0.25)
	v.SetDefault("batch.revenue", 0.20)
	v.SetDefault("batch.priority", 0.20)
	v.SetDefault("batch.recency", 0.10)
	v.SetDefault("limits.default_max_accounts", defaultMaxAccountsPerAgent)
	v.SetDefault("limits.default_min_accounts", defaultMinAccountsForEligibility)
}

// defaultTiers is the batch-size keyed exclusion table: small batches tolerate
// no recent activity at all, large batches allow a few assignments inside a
// wider window.
func defaultTiers() []ExclusionTier {
	return []ExclusionTier{
		{MaxBatchSize: 5, Lookback: 2 * time.Hour, MaxRecent: 0},
		{MaxBatchSize: 20, Lookback: time.Hour, MaxRecent: 2},
		{MaxBatchSize: 0, Lookback: 4 * time.Hour, MaxRecent: 5},
	}
}

// TierFor returns the exclusion tier matching a batch size.
func (c Config) TierFor(batchSize int) ExclusionTier {
	for _, tier := range c.Tiers {
		if tier.MaxBatchSize == 0 || batchSize <= tier.MaxBatchSize {
			return tier
		}
	}
	return ExclusionTier{}
}

// CapacityFor returns the book ceiling for a segment key, falling back to the
// default ceiling when the key is unmapped.
func (c Config) CapacityFor(segmentKey string) int {
	if limits, ok := c.Limits[segmentKey]; ok && limits.MaxAccountsPerAgent > 0 {
		return limits.MaxAccountsPerAgent
	}
	return c.DefaultLimit.MaxAccountsPerAgent
}

// MinAccountsFor returns the eligibility floor for a segment key.
func (c Config) MinAccountsFor(segmentKey string) int {
	if limits, ok := c.Limits[segmentKey]; ok && limits.MinAccountsForEligibility > 0 {
		return limits.MinAccountsForEligibility
	}
	return c.DefaultLimit.MinAccountsForEligibility
}

func loadLimitsFile(path string) (map[string]SegmentLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limits file: %w", err)
	}

	limits := map[string]SegmentLimits{}
	if err := toml.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("decode limits file: %w", err)
	}
	return limits, nil
}
