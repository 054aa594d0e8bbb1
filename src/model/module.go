package model

import "time"

// ModuleType classifies a parsed code module
type ModuleType string

const (
	ModuleClass      ModuleType = "class"
	ModuleFunction   ModuleType = "function"
	ModuleComponent  ModuleType = "component"
	ModuleService    ModuleType = "service"
	ModuleRepository ModuleType = "repository"
)

// Valid reports whether t is a known module type
func (t ModuleType) Valid() bool {
	switch t {
	case ModuleClass, ModuleFunction, ModuleComponent, ModuleService, ModuleRepository:
		return true
	}
	return false
}

// FileDescriptor describes a single source file yielded by the scanner
type FileDescriptor struct {
	Path         string    `json:"path"` // relative to the project root, slash separated
	Size         int64     `json:"size"`
	Extension    string    `json:"extension"`
	IsTest       bool      `json:"is_test"`
	IsDoc        bool      `json:"is_doc"`
	LastModified time.Time `json:"last_modified"`
}

// ModuleMetrics contains size and complexity metrics for a code module
type ModuleMetrics struct {
	LinesOfCode          int       `json:"lines_of_code"`
	CyclomaticComplexity int       `json:"cyclomatic_complexity"`
	DependencyCount      int       `json:"dependency_count"`
	LastModified         time.Time `json:"last_modified"`
}

// CodeModule is a named, typed, located unit of source that can be compared
// against other modules
type CodeModule struct {
	ID            string        `json:"id"`
	FilePath      string        `json:"file_path"`
	ModuleName    string        `json:"module_name"`
	Type          ModuleType    `json:"type"`
	Language      string        `json:"language"`
	Exported      bool          `json:"exported"`
	StartLine     int           `json:"start_line"`
	EndLine       int           `json:"end_line"`
	Dependencies  []string      `json:"dependencies"`
	SimplifiedAST string        `json:"simplified_ast"`
	DigestHash    uint64        `json:"digest_hash"`
	Metrics       ModuleMetrics `json:"metrics"`
}

// Location returns the code location covered by the module
func (m CodeModule) Location() CodeLocation {
	return CodeLocation{
		FilePath:  m.FilePath,
		StartLine: m.StartLine,
		EndLine:   m.EndLine,
		Snippet:   string(m.Type) + " " + m.ModuleName,
	}
}

// Overlaps reports whether both modules live in the same file and share lines
func (m CodeModule) Overlaps(other CodeModule) bool {
	return m.FilePath == other.FilePath && m.StartLine <= other.EndLine && other.StartLine <= m.EndLine
}
