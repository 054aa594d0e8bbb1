package model

import (
	"fmt"
	"time"
)

// AnalysisStatus is the lifecycle status of an analysis run
type AnalysisStatus string

const (
	StatusInitializing     AnalysisStatus = "initializing"
	StatusScanning         AnalysisStatus = "scanning"
	StatusAnalyzing        AnalysisStatus = "analyzing"
	StatusGeneratingReport AnalysisStatus = "generating_report"
	StatusCompleted        AnalysisStatus = "completed"
	StatusFailed           AnalysisStatus = "failed"
)

// Valid reports whether s is a known status
func (s AnalysisStatus) Valid() bool {
	switch s {
	case StatusInitializing, StatusScanning, StatusAnalyzing, StatusGeneratingReport, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the run has finished
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Focus restricts which parts of the analysis run
type Focus string

const (
	FocusAll      Focus = "all"
	FocusCode     Focus = "code"
	FocusDatabase Focus = "database"
	FocusAPI      Focus = "api"
)

// Valid reports whether f is a known focus
func (f Focus) Valid() bool {
	switch f {
	case FocusAll, FocusCode, FocusDatabase, FocusAPI:
		return true
	}
	return false
}

// IncludesCode reports whether code detectors run under this focus
func (f Focus) IncludesCode() bool {
	return f != FocusDatabase
}

// IncludesDatabase reports whether the schema mapper runs under this focus
func (f Focus) IncludesDatabase() bool {
	return f == FocusAll || f == FocusDatabase
}

// AnalysisOptions are the user supplied options of a run
type AnalysisOptions struct {
	ProjectRoot     string   `json:"project_root"`
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	Threshold       float64  `json:"threshold"`
	MinModuleSize   int      `json:"min_module_size"`
	IncludeTests    bool     `json:"include_tests"`
	IncludeDocs     bool     `json:"include_docs"`
	Focus           Focus    `json:"focus"`
	OutputDir       string   `json:"output_dir"`
	Format          string   `json:"format"`
	Verbose         bool     `json:"verbose"`
}

// AnalysisState is the mutable progress record of a run
type AnalysisState struct {
	ID              string              `json:"id"`
	Status          AnalysisStatus      `json:"status"`
	Progress        float64             `json:"progress"`
	CurrentPhase    string              `json:"current_phase"`
	FilesScanned    int                 `json:"files_scanned"`
	TotalFiles      int                 `json:"total_files"`
	FindingsCount   int                 `json:"findings_count"`
	Error           string              `json:"error,omitempty"`
	StartTime       time.Time           `json:"start_time"`
	EndTime         *time.Time          `json:"end_time,omitempty"`
	ProjectPath     string              `json:"project_path"`
	Options         AnalysisOptions     `json:"options"`
	PartialFindings []RedundancyFinding `json:"partial_findings,omitempty"`
	ProcessedFiles  []string            `json:"processed_files,omitempty"`
}

// Validate rejects states missing required fields or carrying invalid values
func (s AnalysisState) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("analysis state: id is required")
	}
	if s.ProjectPath == "" {
		return fmt.Errorf("analysis state %s: project path is required", s.ID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("analysis state %s: unknown status %q", s.ID, s.Status)
	}
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("analysis state %s: progress %.1f out of range 0-100", s.ID, s.Progress)
	}
	if s.StartTime.IsZero() {
		return fmt.Errorf("analysis state %s: start time is required", s.ID)
	}
	return nil
}

// Checkpoint is a durable snapshot of in-progress analysis
type Checkpoint struct {
	AnalysisID      string              `json:"analysis_id"`
	Phase           string              `json:"phase"`
	ProcessedFiles  []string            `json:"processed_files"`
	PartialFindings []RedundancyFinding `json:"partial_findings,omitempty"`
	Progress        float64             `json:"progress"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PartialReport holds the intermediate results of an unfinished run
type PartialReport struct {
	AnalysisID string                 `json:"analysis_id"`
	Modules    []CodeModule           `json:"modules"`
	Findings   []RedundancyFinding    `json:"findings,omitempty"`
	Tables     []DatabaseTableMapping `json:"tables,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// ResumeData bundles everything needed to continue an interrupted run
type ResumeData struct {
	State      *AnalysisState `json:"state"`
	Checkpoint *Checkpoint    `json:"checkpoint,omitempty"`
	Partial    *PartialReport `json:"partial,omitempty"`
}
