package config

import "time"

// Config is the root configuration structure
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Parser    ParserConfig    `yaml:"parser"`
	Stream    StreamConfig    `yaml:"stream"`
	Detectors DetectorsConfig `yaml:"detectors"`
	Database  DatabaseConfig  `yaml:"database"`
	Retry     RetryConfig     `yaml:"retry"`
	State     StateConfig     `yaml:"state"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AgentConfig contains tool metadata
type AgentConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// ScannerConfig contains file scanner settings
type ScannerConfig struct {
	IncludePatterns  []string `yaml:"include_patterns"`
	ExcludePatterns  []string `yaml:"exclude_patterns"`
	IncludeTests     bool     `yaml:"include_tests"`
	IncludeDocs      bool     `yaml:"include_docs"`
	MaxFiles         int      `yaml:"max_files"`
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
}

// ParserConfig contains source parser settings
type ParserConfig struct {
	MinModuleSize   int `yaml:"min_module_size"`
	MaxDigestLength int `yaml:"max_digest_length"`
	CacheMaxEntries int `yaml:"cache_max_entries"` // 0 = unbounded for the run
}

// StreamConfig contains streaming processor settings
type StreamConfig struct {
	MaxConcurrency     int           `yaml:"max_concurrency"`
	BatchSize          int           `yaml:"batch_size"`
	MemoryThresholdMB  int           `yaml:"memory_threshold_mb"`
	MemoryWaitTimeout  time.Duration `yaml:"memory_wait_timeout"`
	MemoryPollInterval time.Duration `yaml:"memory_poll_interval"`
	AdaptiveBatching   bool          `yaml:"adaptive_batching"`
}

// DetectorsConfig contains settings for all detectors
type DetectorsConfig struct {
	FailFast     bool                     `yaml:"fail_fast"`
	MaxParallel  int                      `yaml:"max_parallel"`
	Similarity   SimilarityDetectorConfig `yaml:"similarity"`
	DeadCode     DeadCodeDetectorConfig   `yaml:"dead_code"`
	Tables       TableDetectorConfig      `yaml:"tables"`
	APIPathGlobs []string                 `yaml:"api_path_globs"`
}

// SimilarityDetectorConfig contains duplicate detection settings
type SimilarityDetectorConfig struct {
	Enabled             bool    `yaml:"enabled"`
	Threshold           float64 `yaml:"threshold"`
	IgnoreWhitespace    bool    `yaml:"ignore_whitespace"`
	IgnoreComments      bool    `yaml:"ignore_comments"`
	IgnoreVariableNames bool    `yaml:"ignore_variable_names"`
	MaxModulesToCheck   int     `yaml:"max_modules_to_check"` // 0 compares every module
}

// DeadCodeDetectorConfig contains unused code detector settings
type DeadCodeDetectorConfig struct {
	Enabled            bool     `yaml:"enabled"`
	IncludeExported    bool     `yaml:"include_exported"`
	EntryPoints        []string `yaml:"entry_points"`
	EntryPointPatterns []string `yaml:"entry_point_patterns"`
}

// TableDetectorConfig contains abandoned table detector settings
type TableDetectorConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DatabaseConfig describes the optional schema introspection source
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // sqlite, rest, static or empty
	DSN              string        `yaml:"dsn"`
	URL              string        `yaml:"url"`
	APIKey           string        `yaml:"api_key"`
	Schema           string        `yaml:"schema"`
	Timeout          time.Duration `yaml:"timeout"`
	Tables           []string      `yaml:"tables"`
	SampleSize       int           `yaml:"sample_size"`
	SampleSeed       int64         `yaml:"sample_seed"`
	AbandonmentFloor int           `yaml:"abandonment_floor"`
	RetryOnStatus    []int         `yaml:"retry_on_status"`
}

// RetryConfig contains retry settings for recoverable errors
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
}

// StateConfig contains checkpoint persistence settings
type StateConfig struct {
	Dir              string        `yaml:"dir"`
	WaitTimeout      time.Duration `yaml:"wait_timeout"`
	CleanupAfterDays int           `yaml:"cleanup_after_days"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	Formats                []string `yaml:"formats"`
	OutputDir              string   `yaml:"output_dir"`
	IncludeRecommendations bool     `yaml:"include_recommendations"`
	IncludeDetailed        bool     `yaml:"include_detailed"`
	MaxDetailedFindings    int      `yaml:"max_detailed_findings"`
	TopOffenders           int      `yaml:"top_offenders"`
	TopDomains             int      `yaml:"top_domains"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"` // text, json
	File             string `yaml:"file"`
	IncludeTimestamp bool   `yaml:"include_timestamp"`
	IncludeCaller    bool   `yaml:"include_caller"`
}
