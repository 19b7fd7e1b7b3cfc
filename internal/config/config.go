// Package config loads the pipeline's JSON configuration file
// (db path, grid precision, candidate caps, scoring weights and
// decision thresholds, parser settings) through viper, with
// environment-variable overrides for secrets and deployment-specific
// values that should never live in the checked-in config file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ParserConfig holds the settings for whichever Parser backend is
// configured (libpostal vs. LLM, model name, timeout).
type ParserConfig struct {
	Backend        string `mapstructure:"backend" json:"backend"`
	LLMModel       string `mapstructure:"llm_model" json:"llm_model"`
	LLMBaseURL     string `mapstructure:"llm_base_url" json:"llm_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the fully resolved pipeline configuration, matching the
// db_path/grid_precision/candidate_max/candidate_topn_for_llm/
// weights/thresholds/parser keys.
type Config struct {
	DBPath              string             `mapstructure:"db_path" json:"db_path"`
	GridPrecision       int                `mapstructure:"grid_precision" json:"grid_precision"`
	CandidateMax        int                `mapstructure:"candidate_max" json:"candidate_max"`
	CandidateTopNForLLM int                `mapstructure:"candidate_topn_for_llm" json:"candidate_topn_for_llm"`
	Weights             map[string]float64 `mapstructure:"weights" json:"weights"`
	Thresholds          map[string]float64 `mapstructure:"thresholds" json:"thresholds"`
	Parser              ParserConfig       `mapstructure:"parser" json:"parser"`

	MongoURL  string `mapstructure:"mongo_url" json:"mongo_url"`
	RedisURL  string `mapstructure:"redis_url" json:"redis_url"`
	MeiliURL  string `mapstructure:"meili_url" json:"meili_url"`
	MeiliKey  string `mapstructure:"meili_key" json:"meili_key"`
	L1CacheSize int  `mapstructure:"l1_cache_size" json:"l1_cache_size"`
	DataDir   string `mapstructure:"data_dir" json:"data_dir"`
}

// Load reads the JSON config file at path, applying environment
// overrides (ADDRAUDIT_*) on top, and validates the required keys are
// present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("grid_precision", 3)
	v.SetDefault("candidate_max", 50)
	v.SetDefault("candidate_topn_for_llm", 5)
	v.SetDefault("thresholds", map[string]interface{}{"same": 0.78, "unsure": 0.55})
	v.SetDefault("parser.backend", "libpostal")
	v.SetDefault("parser.timeout_seconds", 30)
	v.SetDefault("l1_cache_size", 10000)
	v.SetDefault("mongo_url", "mongodb://localhost:27017/address_audit")
	v.SetDefault("redis_url", "redis://localhost:6379")

	v.SetEnvPrefix("ADDRAUDIT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that have no sane zero-value default.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if len(c.Weights) == 0 {
		return fmt.Errorf("config: weights must not be empty")
	}
	if c.GridPrecision <= 0 {
		return fmt.Errorf("config: grid_precision must be positive")
	}
	if c.CandidateMax <= 0 {
		return fmt.Errorf("config: candidate_max must be positive")
	}
	return nil
}
