// Package config loads optional, layered taskpilot configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	jsonmerge "github.com/RaveNoX/go-jsonmerge"
	"gopkg.in/yaml.v3"
	"k8s.io/kube-openapi/pkg/validation/strfmt"

	"github.com/voluzi/taskpilot/pkg/anomaly"
	"github.com/voluzi/taskpilot/pkg/effect"
	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

const ErrInvalidConfig = errors.Sentinel("invalid configuration")

// Duration accepts Go durations plus day and week units in both YAML and
// TOML files.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := strfmt.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Format     string           `yaml:"format"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Collection CollectionConfig `yaml:"collection"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Detection  DetectionConfig  `yaml:"detection"`
	Comparison ComparisonConfig `yaml:"comparison"`
}

type SamplerConfig struct {
	Window       Duration `yaml:"window"`
	RetryDelay   Duration `yaml:"retry_delay"`
	NameCacheTTL Duration `yaml:"name_cache_ttl"`
	Mock         bool     `yaml:"mock"`
}

type CollectionConfig struct {
	Capacity int      `yaml:"capacity"`
	Interval Duration `yaml:"interval"`
}

type RankingConfig struct {
	TopK int    `yaml:"top_k"`
	By   string `yaml:"by"`
}

type DetectionConfig struct {
	Contamination float64 `yaml:"contamination"`
	Seed          *uint64 `yaml:"seed"`
	Synthetic     bool    `yaml:"synthetic"`
}

type ComparisonConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Wait       Duration `yaml:"wait"`
	ActionFifo string   `yaml:"action_fifo"`
	CreateFifo bool     `yaml:"create_fifo"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads one or more YAML or TOML files, chosen by extension. Each file
// is merged in order over the defaults, so later files override earlier
// ones, and the result is validated.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return Default(), nil
	}

	merged, err := defaultDocument()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		doc, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		out, info := jsonmerge.Merge(merged, doc)
		if len(info.Errors) > 0 {
			return nil, fmt.Errorf("%w: merging %s: %w", ErrInvalidConfig, path, info.Errors[0])
		}
		merged = out
	}

	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, errors.WrapIf(err, "encoding merged config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultDocument renders Default as a generic document holding every key,
// which jsonmerge needs to accept them from the files merged over it.
func defaultDocument() (interface{}, error) {
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return nil, errors.WrapIf(err, "encoding default config")
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WrapIf(err, "decoding default config")
	}
	return doc, nil
}

func decodeFile(path string) (interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIf(err, "reading config file")
	}

	var doc map[string]interface{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(raw), &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	default:
		return nil, errors.WithDetails(ErrInvalidConfig, "path", path, "reason", "unsupported extension "+ext)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return doc, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Format == "" {
		c.Format = "auto"
	}
	if c.Sampler.Window == 0 {
		c.Sampler.Window = Duration(sampler.DefaultWindow)
	}
	if c.Sampler.RetryDelay == 0 {
		c.Sampler.RetryDelay = Duration(sampler.DefaultRetryDelay)
	}
	if c.Sampler.NameCacheTTL == 0 {
		c.Sampler.NameCacheTTL = Duration(sampler.DefaultNameCacheTTL)
	}
	if c.Collection.Capacity == 0 {
		c.Collection.Capacity = timeseries.DefaultCapacity
	}
	if c.Ranking.TopK == 0 {
		c.Ranking.TopK = types.DefaultTopK
	}
	if c.Ranking.By == "" {
		c.Ranking.By = "cpu"
	}
	if c.Detection.Contamination == 0 {
		c.Detection.Contamination = anomaly.DefaultContamination
	}
	if c.Comparison.Wait == 0 {
		c.Comparison.Wait = Duration(effect.DefaultWait)
	}
}

func invalid(field string, value interface{}) error {
	return errors.WithDetails(ErrInvalidConfig, "field", field, "value", value)
}

func (c *Config) validate() error {
	if c.Collection.Capacity < 1 {
		return invalid("collection.capacity", c.Collection.Capacity)
	}
	if c.Collection.Interval < 0 {
		return invalid("collection.interval", c.Collection.Interval.Std())
	}
	if c.Sampler.Window < 0 {
		return invalid("sampler.window", c.Sampler.Window.Std())
	}
	if c.Ranking.TopK < 0 {
		return invalid("ranking.top_k", c.Ranking.TopK)
	}
	switch c.Ranking.By {
	case "cpu", "memory", "mem":
	default:
		return invalid("ranking.by", c.Ranking.By)
	}
	if !(c.Detection.Contamination > 0 && c.Detection.Contamination < 1) {
		return invalid("detection.contamination", c.Detection.Contamination)
	}
	if c.Comparison.Wait < 0 {
		return invalid("comparison.wait", c.Comparison.Wait.Std())
	}
	return nil
}
