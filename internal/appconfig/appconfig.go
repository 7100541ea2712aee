// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. GROUNDEDGEO_SPLIT.
	EnvPrefix = "GROUNDEDGEO"
	// DefaultSplit is evaluated when no split is configured.
	DefaultSplit = "dev"
	// DefaultPredicate names the correctness predicate used by default.
	DefaultPredicate = "lexical"
	// DefaultOutputDir receives the per-run JSON snapshots.
	DefaultOutputDir = "results"
	// defaultLogFile is used when logFile is not configured.
	defaultLogFile = "groundedgeo.log"
	// defaultLLMModel is the chat model of the llm baseline.
	defaultLLMModel = "gpt-4o-mini"
	// defaultLLMTimeout bounds a single llm request.
	defaultLLMTimeout = 120 * time.Second
	// defaultLLMRetries is the retry count used when the config omits it.
	defaultLLMRetries = 2
)

// Config represents the top-level application configuration.
type Config struct {
	Dataset        string    `mapstructure:"dataset" json:"dataset"`
	Split          string    `mapstructure:"split" json:"split"`
	Systems        []string  `mapstructure:"systems" json:"systems"`
	Predicate      string    `mapstructure:"predicate" json:"predicate"`
	OutputDir      string    `mapstructure:"outputDir" json:"outputDir"`
	HistoryFile    string    `mapstructure:"history" json:"history,omitempty"`
	MetricsFile    string    `mapstructure:"metricsFile" json:"metricsFile,omitempty"`
	LogFile        string    `mapstructure:"logFile" json:"logFile,omitempty"`
	Debug          bool      `mapstructure:"debug" json:"debug"`
	Verbose        bool      `mapstructure:"verbose" json:"verbose"`
	FaultIsolation bool      `mapstructure:"faultIsolation" json:"faultIsolation"`
	Parallel       bool      `mapstructure:"parallel" json:"parallel"`
	LLM            LLMConfig `mapstructure:"llm" json:"llm"`
	ConfigPath     string    `mapstructure:"-" json:"-"`
}

// LLMConfig configures the llm baseline against an OpenAI-compatible
// endpoint.
type LLMConfig struct {
	BaseURL        string         `mapstructure:"baseURL" json:"baseURL,omitempty"`
	APIKey         string         `mapstructure:"apiKey" json:"-"`
	Model          string         `mapstructure:"model" json:"model"`
	Profile        string         `mapstructure:"profile" json:"profile,omitempty"`
	Sampling       SamplingParams `mapstructure:"sampling" json:"sampling"`
	TimeoutSeconds int            `mapstructure:"timeout" json:"timeout,omitempty"`
	MaxRetries     int            `mapstructure:"maxRetries" json:"maxRetries,omitempty"`
	ClosedBook     bool           `mapstructure:"closedBook" json:"closedBook"`
}

// RequestTimeout returns the per-request timeout, falling back to the default.
func (l LLMConfig) RequestTimeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return defaultLLMTimeout
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// RetryAttempts returns the configured retry count. Negative values disable
// retries.
func (l LLMConfig) RetryAttempts() int {
	if l.MaxRetries < 0 {
		return 0
	}
	if l.MaxRetries == 0 {
		return defaultLLMRetries
	}
	return l.MaxRetries
}

// ModelName returns the configured model or the default one.
func (l LLMConfig) ModelName() string {
	if m := strings.TrimSpace(l.Model); m != "" {
		return m
	}
	return defaultLLMModel
}

// ResolvedAPIKey prefers the configured key and falls back to OPENAI_API_KEY.
func (l LLMConfig) ResolvedAPIKey() string {
	if k := strings.TrimSpace(l.APIKey); k != "" {
		return k
	}
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

// ResolvedSampling merges the explicit sampling settings over the profile.
func (l LLMConfig) ResolvedSampling() SamplingParams {
	return mergeSampling(SamplingForProfile(l.Profile), l.Sampling)
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return defaultLogFile
}

// HistoryPath returns the JSONL history file, defaulting to
// <outputDir>/history.jsonl.
func (c Config) HistoryPath() string {
	if path := strings.TrimSpace(c.HistoryFile); path != "" {
		return path
	}
	return strings.TrimRight(c.OutputDir, "/") + "/history.jsonl"
}

// Validate checks the settings every evaluation run relies on.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Dataset) == "" {
		problems = append(problems, "dataset is required")
	}
	if strings.TrimSpace(c.Split) == "" {
		problems = append(problems, "split is required")
	}
	if len(c.Systems) == 0 {
		problems = append(problems, "at least one system is required")
	}
	seen := make(map[string]struct{}, len(c.Systems))
	for _, s := range c.Systems {
		if _, dup := seen[s]; dup {
			problems = append(problems, fmt.Sprintf("system %q listed twice", s))
		}
		seen[s] = struct{}{}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SetDefaults registers the default value of every key on v. Registering
// every key also lets AutomaticEnv overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dataset", "")
	v.SetDefault("split", DefaultSplit)
	v.SetDefault("systems", []string{"evidence"})
	v.SetDefault("predicate", DefaultPredicate)
	v.SetDefault("outputDir", DefaultOutputDir)
	v.SetDefault("history", "")
	v.SetDefault("metricsFile", "")
	v.SetDefault("logFile", defaultLogFile)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("faultIsolation", false)
	v.SetDefault("parallel", false)
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.model", defaultLLMModel)
	v.SetDefault("llm.profile", string(ProfileDeterministic))
	v.SetDefault("llm.timeout", int(defaultLLMTimeout.Seconds()))
	v.SetDefault("llm.maxRetries", defaultLLMRetries)
	v.SetDefault("llm.closedBook", false)
}

// BindEnv enables GROUNDEDGEO_* overrides, with "." in keys mapped to "_"
// (GROUNDEDGEO_LLM_MODEL).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper materializes the merged viper state into a Config.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if strings.TrimSpace(cfg.Split) == "" {
		cfg.Split = DefaultSplit
	}
	if strings.TrimSpace(cfg.Predicate) == "" {
		cfg.Predicate = DefaultPredicate
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	return cfg, nil
}

// Load reads the configuration file at path (JSON, YAML or TOML), applies
// defaults and environment overrides. An empty path loads defaults only.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found at %q", path)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
		}
	}
	return FromViper(v)
}
