package model

import (
	"fmt"
	"time"
)

// DefaultAbandonmentFloor is the usage count below which a table without a
// repository or CRUD usage counts as abandoned
const DefaultAbandonmentFloor = 3

// CRUDOperations records which data-access verbs were detected for a table
type CRUDOperations struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Any reports whether at least one operation was detected
func (c CRUDOperations) Any() bool {
	return c.Create || c.Read || c.Update || c.Delete
}

// Missing returns the names of operations that were not detected
func (c CRUDOperations) Missing() []string {
	var missing []string
	if !c.Create {
		missing = append(missing, "create")
	}
	if !c.Read {
		missing = append(missing, "read")
	}
	if !c.Update {
		missing = append(missing, "update")
	}
	if !c.Delete {
		missing = append(missing, "delete")
	}
	return missing
}

// ForeignKey is a relationship reported by the schema source
type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// DatabaseTableMapping cross-references a schema table with the source tree
type DatabaseTableMapping struct {
	TableName      string         `json:"table_name"`
	Columns        []string       `json:"columns,omitempty"`
	RowCount       int64          `json:"row_count"` // -1 when unknown
	ForeignKeys    []ForeignKey   `json:"foreign_keys,omitempty"`
	HasRepository  bool           `json:"has_repository"`
	RepositoryPath string         `json:"repository_path,omitempty"`
	CRUDOperations CRUDOperations `json:"crud_operations"`
	UsageCount     int            `json:"usage_count"`
	References     []CodeLocation `json:"references,omitempty"`
	LastModified   time.Time      `json:"last_modified"`
	IsAbandoned    bool           `json:"is_abandoned"`
}

// Classify derives IsAbandoned from the repository, CRUD and usage facts
func (m *DatabaseTableMapping) Classify(floor int) {
	m.IsAbandoned = !m.HasRepository && !m.CRUDOperations.Any() && m.UsageCount < floor
}

// Validate checks the mapping invariants
func (m DatabaseTableMapping) Validate() error {
	if m.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	if m.HasRepository && m.RepositoryPath == "" {
		return fmt.Errorf("table %s: repository path required when has_repository is set", m.TableName)
	}
	if m.UsageCount < 0 {
		return fmt.Errorf("table %s: usage count must be non-negative", m.TableName)
	}
	return nil
}
