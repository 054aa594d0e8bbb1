package model

// ProgressEvent is emitted by the orchestrator while a run advances
type ProgressEvent struct {
	AnalysisID    string  `json:"analysis_id"`
	Phase         string  `json:"phase"`
	Progress      float64 `json:"progress"`
	FilesScanned  int     `json:"files_scanned,omitempty"`
	TotalFiles    int     `json:"total_files,omitempty"`
	FindingsCount int     `json:"findings_count,omitempty"`
	CurrentFile   string  `json:"current_file,omitempty"`
	Message       string  `json:"message,omitempty"`
}
