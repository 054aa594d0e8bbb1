package model

import "time"

// AnalysisReport is the complete output of a run
type AnalysisReport struct {
	ID              string                 `json:"id"`
	ProjectName     string                 `json:"project_name"`
	AnalysisDate    time.Time              `json:"analysis_date"`
	TotalFiles      int                    `json:"total_files"`
	TotalModules    int                    `json:"total_modules"`
	TotalTables     int                    `json:"total_tables"`
	Findings        []RedundancyFinding    `json:"findings"`
	Tables          []DatabaseTableMapping `json:"tables,omitempty"`
	Summary         ReportSummary          `json:"summary"`
	Metrics         AggregateMetrics       `json:"metrics"`
	Recommendations []Recommendation       `json:"recommendations"`
	Warnings        []string               `json:"warnings,omitempty"` // detector failures tolerated by the run
}

// ReportSummary contains aggregated statistics
type ReportSummary struct {
	TotalRedundancy      int           `json:"total_redundancy"` // estimated removable lines
	CriticalFindings     int           `json:"critical_findings"`
	TablesWithoutCRUD    int           `json:"tables_without_crud"`
	UnusedCodePercentage float64       `json:"unused_code_percentage"`
	TopRedundantDomains  []DomainCount `json:"top_redundant_domains"`
}

// DomainCount is a top-level directory with its finding count
type DomainCount struct {
	Domain   string `json:"domain"`
	Findings int    `json:"findings"`
	Savings  int    `json:"savings"`
}

// AggregateMetrics summarizes impact across findings
type AggregateMetrics struct {
	TotalFindings  int                 `json:"total_findings"`
	BySeverity     map[Severity]int    `json:"by_severity"`
	ByType         map[FindingType]int `json:"by_type"`
	TotalScale     float64             `json:"total_scale"`
	AverageRisk    float64             `json:"average_risk"`
	AverageQuality float64             `json:"average_quality"`
	TotalSavings   int                 `json:"total_savings"`
	ModuleQuality  float64             `json:"module_quality"` // mean QualityScore of analyzed modules
}

// Priority of a recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is an actionable cleanup step
type Recommendation struct {
	Priority    Priority    `json:"priority"`
	Type        FindingType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Findings    int         `json:"findings"`
	Effort      string      `json:"effort"`
}
