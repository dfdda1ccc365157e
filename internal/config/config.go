package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScoutConfig represents the top-level scout.yml configuration
type ScoutConfig struct {
	Version  string          `yaml:"version"`
	Instance string          `yaml:"instance,omitempty"` // Namespace for Redis keys (default: "scout")
	Redis    *RedisConfig    `yaml:"redis,omitempty"`
	Planner  *PlannerConfig  `yaml:"planner,omitempty"`
	Selector *SelectorConfig `yaml:"selector,omitempty"`
	Watcher  *WatcherConfig  `yaml:"watcher,omitempty"`
	Checker  *CheckerConfig  `yaml:"checker,omitempty"`
	Search   *SearchConfig   `yaml:"search,omitempty"`
	Batch    *BatchConfig    `yaml:"batch,omitempty"`
}

// RedisConfig specifies the checkpoint store backend. An empty URL selects
// the in-memory store, which does not survive process restarts.
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`
}

// PlannerConfig specifies planner stage behavior
type PlannerConfig struct {
	MaxQueries *int `yaml:"max_queries,omitempty"` // Search queries per planning round (default: 3)
}

// SelectorConfig specifies selector stage behavior
type SelectorConfig struct {
	TopK *int `yaml:"top_k,omitempty"` // Candidates admitted per round (default: 4)
}

// WatcherConfig specifies watcher stage behavior
type WatcherConfig struct {
	NumFrames *int `yaml:"num_frames,omitempty"` // Frames sampled per video (default: 5)
}

// CheckerConfig specifies the loop termination policy
type CheckerConfig struct {
	MaxLoopSteps *int `yaml:"max_loop_steps,omitempty"` // Hard cap on research iterations (default: 3)
}

// SearchConfig names the search providers to wire in. Empty values leave the
// offline collaborator in place.
type SearchConfig struct {
	VideoProvider string `yaml:"video_provider,omitempty"`
	TextProvider  string `yaml:"text_provider,omitempty"`
}

// BatchConfig specifies the batch runner
type BatchConfig struct {
	Concurrency *int `yaml:"concurrency,omitempty"` // Parallel sessions (default: 2)
}

// Default returns a configuration with every default applied, suitable for
// running without a scout.yml at all.
func Default() *ScoutConfig {
	c := &ScoutConfig{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(err) // defaults must validate
	}
	return c
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted sections.
func (c *ScoutConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = "scout"
	}
	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}

	if c.Planner == nil {
		c.Planner = &PlannerConfig{}
	}
	if c.Planner.MaxQueries == nil {
		defaultQueries := 3
		c.Planner.MaxQueries = &defaultQueries
	}
	if *c.Planner.MaxQueries < 1 {
		return fmt.Errorf("planner.max_queries must be >= 1, got %d", *c.Planner.MaxQueries)
	}

	if c.Selector == nil {
		c.Selector = &SelectorConfig{}
	}
	if c.Selector.TopK == nil {
		defaultTopK := 4
		c.Selector.TopK = &defaultTopK
	}
	if *c.Selector.TopK < 1 {
		return fmt.Errorf("selector.top_k must be >= 1, got %d", *c.Selector.TopK)
	}

	if c.Watcher == nil {
		c.Watcher = &WatcherConfig{}
	}
	if c.Watcher.NumFrames == nil {
		defaultFrames := 5
		c.Watcher.NumFrames = &defaultFrames
	}
	if *c.Watcher.NumFrames < 0 {
		return fmt.Errorf("watcher.num_frames must be >= 0, got %d", *c.Watcher.NumFrames)
	}

	if c.Checker == nil {
		c.Checker = &CheckerConfig{}
	}
	if c.Checker.MaxLoopSteps == nil {
		defaultLoops := 3
		c.Checker.MaxLoopSteps = &defaultLoops
	}
	if *c.Checker.MaxLoopSteps < 1 {
		return fmt.Errorf("checker.max_loop_steps must be >= 1, got %d", *c.Checker.MaxLoopSteps)
	}

	if c.Search == nil {
		c.Search = &SearchConfig{}
	}

	if c.Batch == nil {
		c.Batch = &BatchConfig{}
	}
	if c.Batch.Concurrency == nil {
		defaultConcurrency := 2
		c.Batch.Concurrency = &defaultConcurrency
	}
	if *c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be >= 1, got %d", *c.Batch.Concurrency)
	}

	return nil
}

// Load reads and validates scout.yml from the specified path
func Load(path string) (*ScoutConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config ScoutConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
