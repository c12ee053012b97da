// Package config loads pipeline tuning and host settings with a fixed
// precedence: built-in defaults, then an optional config file, then
// CADENCE_* environment variables, then caller overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cadence/internal/textutil"
)

// ValueSource records where a configuration value came from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "env"
	SourceCaller  ValueSource = "caller"
)

// LLMConfig holds settings for the external text-completion capability.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	TimeoutSecs int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	// PromptTokenBudget caps the user payload embedded in extraction
	// prompts; longer payloads are truncated, never rejected.
	PromptTokenBudget int `mapstructure:"prompt_token_budget" yaml:"prompt_token_budget"`
	CacheSize         int `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTLSecs      int `mapstructure:"cache_ttl_secs" yaml:"cache_ttl_secs"`
}

// PipelineConfig holds the tunable thresholds of the draft pipeline.
type PipelineConfig struct {
	FocusThreshold      float64 `mapstructure:"focus_threshold" yaml:"focus_threshold"`
	MergeWindowMinutes  int     `mapstructure:"merge_window_minutes" yaml:"merge_window_minutes"`
	MinGapMinutes       int     `mapstructure:"min_gap_minutes" yaml:"min_gap_minutes"`
	DefaultDurationMins int     `mapstructure:"default_duration_mins" yaml:"default_duration_mins"`
	DefaultTimezone     string  `mapstructure:"default_timezone" yaml:"default_timezone"`
	MaxParallelExtract  int     `mapstructure:"max_parallel_extract" yaml:"max_parallel_extract"`
	// ImportanceRescue keeps a signal below the focus threshold when
	// its importance score reaches this level.
	ImportanceRescue float64 `mapstructure:"importance_rescue" yaml:"importance_rescue"`
	// ImportantContacts lists senders and participants the importance
	// scorer treats as known contacts.
	ImportantContacts []string `mapstructure:"important_contacts" yaml:"important_contacts"`
	// ScheduleBias, when true, steers genuinely ambiguous utterances
	// toward schedule_request instead of the conversational default.
	ScheduleBias bool `mapstructure:"schedule_bias" yaml:"schedule_bias"`
}

// AnswersConfig holds thresholds for answer-relevance scoring.
type AnswersConfig struct {
	// Similarity selects the string measure: "jaccard" or "diffratio".
	Similarity          string  `mapstructure:"similarity" yaml:"similarity"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	RelevanceFloor      float64 `mapstructure:"relevance_floor" yaml:"relevance_floor"`
	ImplicitCoverScore  float64 `mapstructure:"implicit_cover_score" yaml:"implicit_cover_score"`
	MaxSubQuestions     int     `mapstructure:"max_sub_questions" yaml:"max_sub_questions"`
}

// ServerConfig holds the HTTP facade settings.
type ServerConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	EnableCORS   bool   `mapstructure:"enable_cors" yaml:"enable_cors"`
	Debug        bool   `mapstructure:"debug" yaml:"debug"`
	ReadTimeout  int    `mapstructure:"read_timeout_secs" yaml:"read_timeout_secs"`
	WriteTimeout int    `mapstructure:"write_timeout_secs" yaml:"write_timeout_secs"`
}

// MetricsConfig controls the observability collector.
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled" yaml:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port" yaml:"prometheus_port"`
}

// Config is the root configuration record.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Answers  AnswersConfig  `mapstructure:"answers" yaml:"answers"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// Metadata tracks per-section provenance for diagnostics output.
type Metadata struct {
	Sources  map[string]ValueSource
	LoadedAt time.Time
	FileUsed string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			BaseURL:           "https://api.openai.com/v1",
			TimeoutSecs:       30,
			Temperature:       0.2,
			MaxTokens:         1024,
			PromptTokenBudget: 2048,
			CacheSize:         256,
			CacheTTLSecs:      300,
		},
		Pipeline: PipelineConfig{
			FocusThreshold:      0.6,
			MergeWindowMinutes:  45,
			MinGapMinutes:       10,
			DefaultDurationMins: 30,
			DefaultTimezone:     "UTC",
			MaxParallelExtract:  4,
			ImportanceRescue:    0.75,
		},
		Answers: AnswersConfig{
			Similarity:          "jaccard",
			SimilarityThreshold: 0.85,
			RelevanceFloor:      0.6,
			ImplicitCoverScore:  0.65,
			MaxSubQuestions:     8,
		},
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8321,
			EnableCORS:   true,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Metrics: MetricsConfig{
			Enabled:        false,
			PrometheusPort: 9464,
		},
	}
}

// Option customizes a Load call.
type Option func(*loadOptions)

type loadOptions struct {
	configFile string
	overrides  []func(*Config)
}

// WithConfigFile forces a specific config file path instead of the
// default search locations.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// WithOverride applies a caller override after file and env layers.
func WithOverride(fn func(*Config)) Option {
	return func(o *loadOptions) { o.overrides = append(o.overrides, fn) }
}

// Load builds a Config with the standard precedence. A missing config
// file is not an error; a malformed one is.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Default()
	meta := Metadata{Sources: map[string]ValueSource{}, LoadedAt: time.Now()}
	for _, section := range []string{"llm", "pipeline", "answers", "server", "metrics"} {
		meta.Sources[section] = SourceDefault
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if options.configFile != "" {
		v.SetConfigFile(options.configFile)
	} else {
		v.SetConfigName("cadence")
		v.AddConfigPath("$HOME/.config/cadence")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("CADENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file in the default search path is fine; an
		// explicitly requested file must exist and parse.
		var notFound viper.ConfigFileNotFoundError
		if options.configFile != "" {
			return Config{}, Metadata{}, fmt.Errorf("read config file: %w", err)
		}
		if !errors.As(err, &notFound) {
			return Config{}, Metadata{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		meta.FileUsed = v.ConfigFileUsed()
		for section := range meta.Sources {
			if v.InConfig(section) {
				meta.Sources[section] = SourceFile
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, Metadata{}, fmt.Errorf("decode config: %w", err)
	}

	for _, override := range options.overrides {
		override(&cfg)
	}
	if len(options.overrides) > 0 {
		meta.Sources["caller"] = SourceCaller
	}

	if err := cfg.validate(); err != nil {
		return Config{}, Metadata{}, err
	}
	return cfg, meta, nil
}

func (c Config) validate() error {
	if c.Pipeline.MergeWindowMinutes <= 0 {
		return fmt.Errorf("pipeline.merge_window_minutes must be positive, got %d", c.Pipeline.MergeWindowMinutes)
	}
	if c.Pipeline.MinGapMinutes < 0 {
		return fmt.Errorf("pipeline.min_gap_minutes must be non-negative, got %d", c.Pipeline.MinGapMinutes)
	}
	if c.Pipeline.FocusThreshold < 0 || c.Pipeline.FocusThreshold > 1 {
		return fmt.Errorf("pipeline.focus_threshold must be in [0,1], got %v", c.Pipeline.FocusThreshold)
	}
	if c.Pipeline.ImportanceRescue < 0 || c.Pipeline.ImportanceRescue > 1 {
		return fmt.Errorf("pipeline.importance_rescue must be in [0,1], got %v", c.Pipeline.ImportanceRescue)
	}
	if c.Answers.MaxSubQuestions <= 0 {
		return fmt.Errorf("answers.max_sub_questions must be positive, got %d", c.Answers.MaxSubQuestions)
	}
	if _, err := textutil.ForName(c.Answers.Similarity); err != nil {
		return fmt.Errorf("answers.similarity: %w", err)
	}
	return nil
}

// LLMTimeout returns the completion timeout as a duration.
func (c LLMConfig) LLMTimeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns the interpreter cache TTL as a duration.
func (c LLMConfig) CacheTTL() time.Duration {
	if c.CacheTTLSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSecs) * time.Second
}
