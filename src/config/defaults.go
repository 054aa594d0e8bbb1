package config

import "time"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:        "redundancy-analyzer",
			Version:     "1.0.0",
			Description: "Duplicate code and abandoned table detection",
		},
		Scanner: ScannerConfig{
			ExcludePatterns: []string{
				"**/*.min.js", "**/*.d.ts", "**/generated/**", "**/__generated__/**",
			},
			IncludeTests:     false,
			IncludeDocs:      false,
			MaxFiles:         0,
			MaxFileSizeBytes: 1 << 20,
			RespectGitignore: true,
		},
		Parser: ParserConfig{
			MinModuleSize:   10,
			MaxDigestLength: 2000,
			CacheMaxEntries: 0,
		},
		Stream: StreamConfig{
			MaxConcurrency:     5,
			BatchSize:          50,
			MemoryThresholdMB:  512,
			MemoryWaitTimeout:  30 * time.Second,
			MemoryPollInterval: 250 * time.Millisecond,
			AdaptiveBatching:   true,
		},
		Detectors: DetectorsConfig{
			FailFast:    false,
			MaxParallel: 3,
			Similarity: SimilarityDetectorConfig{
				Enabled:             true,
				Threshold:           70,
				IgnoreWhitespace:    true,
				IgnoreComments:      true,
				IgnoreVariableNames: false,
				MaxModulesToCheck:   0,
			},
			DeadCode: DeadCodeDetectorConfig{
				Enabled:         true,
				IncludeExported: false,
				EntryPoints: []string{
					"main", "init", "default", "handler", "middleware",
					"GET", "POST", "PUT", "PATCH", "DELETE",
				},
				EntryPointPatterns: []string{
					"^Test", "^Benchmark", "^Example", "^test_", "^use[A-Z]", "^__",
				},
			},
			Tables: TableDetectorConfig{
				Enabled: true,
			},
			APIPathGlobs: []string{
				"**/api/**", "**/routes/**", "**/handlers/**", "**/controllers/**",
			},
		},
		Database: DatabaseConfig{
			Driver:           "",
			Schema:           "public",
			Timeout:          10 * time.Second,
			SampleSize:       200,
			SampleSeed:       42,
			AbandonmentFloor: 3,
			RetryOnStatus:    []int{502, 503, 504},
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			BackoffFactor: 2,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      5 * time.Second,
		},
		State: StateConfig{
			Dir:              ".redundancy-analyzer",
			WaitTimeout:      300 * time.Second,
			CleanupAfterDays: 7,
		},
		Output: OutputConfig{
			Formats:                []string{"markdown"},
			OutputDir:              "./reports",
			IncludeRecommendations: true,
			IncludeDetailed:        true,
			MaxDetailedFindings:    20,
			TopOffenders:           5,
			TopDomains:             5,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			IncludeTimestamp: true,
			IncludeCaller:    false,
		},
	}
}
