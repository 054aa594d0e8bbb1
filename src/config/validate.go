package config

import (
	"redundancy-analyzer/src/model"
)

var knownFormats = map[string]bool{"markdown": true, "md": true, "json": true, "sarif": true}

var knownDrivers = map[string]bool{"": true, "none": true, "sqlite": true, "rest": true, "static": true}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	sim := c.Detectors.Similarity
	if sim.Threshold < 0 || sim.Threshold > 100 {
		return invalid("detectors.similarity.threshold must be within 0-100, got %.1f", sim.Threshold)
	}
	if c.Parser.MinModuleSize < 1 {
		return invalid("parser.min_module_size must be at least 1, got %d", c.Parser.MinModuleSize)
	}
	if c.Stream.MaxConcurrency < 1 {
		return invalid("stream.max_concurrency must be at least 1, got %d", c.Stream.MaxConcurrency)
	}
	if c.Stream.BatchSize < 1 {
		return invalid("stream.batch_size must be at least 1, got %d", c.Stream.BatchSize)
	}
	if c.Stream.MemoryThresholdMB < 1 {
		return invalid("stream.memory_threshold_mb must be positive, got %d", c.Stream.MemoryThresholdMB)
	}
	if c.Scanner.MaxFileSizeBytes < 0 || c.Scanner.MaxFiles < 0 {
		return invalid("scanner limits must be non-negative")
	}
	if !knownDrivers[c.Database.Driver] {
		return invalid("database.driver %q is not one of sqlite, rest, static", c.Database.Driver)
	}
	if c.Database.AbandonmentFloor < 0 || c.Database.SampleSize < 0 {
		return invalid("database sampling values must be non-negative")
	}
	if c.Retry.MaxAttempts < 0 {
		return invalid("retry.max_attempts must be non-negative, got %d", c.Retry.MaxAttempts)
	}
	for _, f := range c.Output.Formats {
		if !knownFormats[f] {
			return invalid("output format %q is not supported", f)
		}
	}
	return nil
}

// ValidateOptions checks user supplied analysis options
func ValidateOptions(opts model.AnalysisOptions) error {
	if opts.ProjectRoot == "" {
		return invalid("project root is required")
	}
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return invalid("threshold must be within 0-100, got %.1f", opts.Threshold)
	}
	if opts.MinModuleSize < 1 {
		return invalid("min size must be at least 1, got %d", opts.MinModuleSize)
	}
	if opts.Focus != "" && !opts.Focus.Valid() {
		return invalid("focus %q is not one of all, code, database, api", opts.Focus)
	}
	if opts.Format != "" && !knownFormats[opts.Format] {
		return invalid("format %q is not one of markdown, json, sarif", opts.Format)
	}
	return nil
}

// ApplyOptions overlays analysis options onto the configuration
func (c *Config) ApplyOptions(opts model.AnalysisOptions) {
	if len(opts.IncludePatterns) > 0 {
		c.Scanner.IncludePatterns = opts.IncludePatterns
	}
	c.Scanner.ExcludePatterns = append(c.Scanner.ExcludePatterns, opts.ExcludePatterns...)
	c.Scanner.IncludeTests = c.Scanner.IncludeTests || opts.IncludeTests
	c.Scanner.IncludeDocs = c.Scanner.IncludeDocs || opts.IncludeDocs
	if opts.Threshold > 0 {
		c.Detectors.Similarity.Threshold = opts.Threshold
	}
	if opts.MinModuleSize > 0 {
		c.Parser.MinModuleSize = opts.MinModuleSize
	}
	if opts.OutputDir != "" {
		c.Output.OutputDir = opts.OutputDir
	}
	if opts.Format != "" {
		c.Output.Formats = []string{opts.Format}
	}
	if opts.Verbose {
		c.Logging.Level = "debug"
	}
}

func invalid(msg string, args ...any) error {
	return model.NewError(model.ErrInvalidOptions, msg, args...).WithRecoverable(false)
}
