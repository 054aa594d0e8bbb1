package model

import (
	"errors"
	"fmt"
	"time"
)

// Severity represents the severity level of a finding
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; higher is more severe
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// FindingType represents the kind of redundancy detected
type FindingType string

const (
	FindingExactDuplicate     FindingType = "exact_duplicate"
	FindingSimilarLogic       FindingType = "similar_logic"
	FindingOverlappingFeature FindingType = "overlapping_feature"
	FindingUnusedCode         FindingType = "unused_code"
	FindingAbandonedTable     FindingType = "abandoned_table"
	FindingDuplicateAPI       FindingType = "duplicate_api"
)

// FindingTypes lists all finding types in report order
var FindingTypes = []FindingType{
	FindingExactDuplicate,
	FindingSimilarLogic,
	FindingOverlappingFeature,
	FindingDuplicateAPI,
	FindingUnusedCode,
	FindingAbandonedTable,
}

// Valid reports whether t is a known finding type
func (t FindingType) Valid() bool {
	for _, ft := range FindingTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// CodeLocation points at a range of lines in a file
type CodeLocation struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Snippet   string `json:"snippet"`
}

// Key identifies the location for grouping
func (l CodeLocation) Key() string {
	return fmt.Sprintf("%s:%d-%d", l.FilePath, l.StartLine, l.EndLine)
}

// ImpactScore quantifies the size, dependency risk and quality cost of a finding
type ImpactScore struct {
	Scale   float64 `json:"scale"`
	Risk    float64 `json:"risk"`
	Quality float64 `json:"quality"`
}

// RedundancyFinding is a single detected redundancy or abandonment issue
type RedundancyFinding struct {
	ID                 string         `json:"id"`
	Type               FindingType    `json:"type"`
	Severity           Severity       `json:"severity"`
	ModuleName         string         `json:"module_name,omitempty"`
	PrimaryLocation    CodeLocation   `json:"primary_location"`
	DuplicateLocations []CodeLocation `json:"duplicate_locations"`
	SimilarityScore    float64        `json:"similarity_score,omitempty"`
	ImpactScore        ImpactScore    `json:"impact_score"`
	Recommendation     string         `json:"recommendation"`
	EstimatedSavings   int            `json:"estimated_savings"`
	CreatedAt          time.Time      `json:"created_at"`
}

var (
	ErrMissingDuplicates     = errors.New("finding requires at least one duplicate location")
	ErrMissingRecommendation = errors.New("high severity finding requires a recommendation")
)

// Validate checks the finding invariants
func (f RedundancyFinding) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("invalid finding type %q", f.Type)
	}
	if f.Severity.Rank() == 0 {
		return fmt.Errorf("invalid severity %q", f.Severity)
	}
	if f.Type != FindingUnusedCode && len(f.DuplicateLocations) == 0 {
		return fmt.Errorf("%s: %w", f.Type, ErrMissingDuplicates)
	}
	if f.Severity == SeverityHigh && f.Recommendation == "" {
		return ErrMissingRecommendation
	}
	if f.ImpactScore.Scale < 0 || f.ImpactScore.Risk < 0 {
		return fmt.Errorf("impact scale and risk must be non-negative")
	}
	if f.ImpactScore.Quality < 0 || f.ImpactScore.Quality > 100 {
		return fmt.Errorf("impact quality %.1f out of range 0-100", f.ImpactScore.Quality)
	}
	if f.EstimatedSavings < 0 {
		return fmt.Errorf("estimated savings must be non-negative")
	}
	return nil
}

// DeriveSeverity maps an impact score onto a severity level
func DeriveSeverity(impact ImpactScore) Severity {
	switch {
	case impact.Scale > 500 || impact.Risk > 10 || impact.Quality < 30:
		return SeverityHigh
	case impact.Scale < 100 && impact.Risk < 3 && impact.Quality > 70:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Locations returns the primary location followed by all duplicates
func (f RedundancyFinding) Locations() []CodeLocation {
	locs := make([]CodeLocation, 0, len(f.DuplicateLocations)+1)
	locs = append(locs, f.PrimaryLocation)
	return append(locs, f.DuplicateLocations...)
}
