package state

import (
	"sort"
	"time"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

const (
	kindState      = "state"
	kindCheckpoint = "checkpoint"
	kindPartial    = "partial"
	kindReport     = "report"
)

// Manager saves and restores analysis progress
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a manager over store
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewFileManager creates a manager persisting under dir
func NewFileManager(dir string) *Manager {
	return NewManager(NewFileStore(dir))
}

// SaveState validates and persists s
func (m *Manager) SaveState(s *model.AnalysisState) error {
	if err := s.Validate(); err != nil {
		return model.WrapError(model.ErrInvalidOptions, err, "rejecting analysis state").WithRecoverable(false)
	}
	return m.store.Put(s.ID, kindState, s)
}

// LoadState returns the stored state of id, or nil when there is none
func (m *Manager) LoadState(id string) (*model.AnalysisState, error) {
	var s model.AnalysisState
	ok, err := m.store.Get(id, kindState, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// SaveCheckpoint persists the latest checkpoint of a run
func (m *Manager) SaveCheckpoint(cp *model.Checkpoint) error {
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.now()
	}
	return m.store.Put(cp.AnalysisID, kindCheckpoint, cp)
}

// LoadCheckpoint returns the latest checkpoint of id, or nil
func (m *Manager) LoadCheckpoint(id string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	ok, err := m.store.Get(id, kindCheckpoint, &cp)
	if err != nil || !ok {
		return nil, err
	}
	return &cp, nil
}

// SavePartialReport persists intermediate results of a run
func (m *Manager) SavePartialReport(p *model.PartialReport) error {
	p.UpdatedAt = m.now()
	return m.store.Put(p.AnalysisID, kindPartial, p)
}

// LoadPartialReport returns the intermediate results of id, or nil
func (m *Manager) LoadPartialReport(id string) (*model.PartialReport, error) {
	var p model.PartialReport
	ok, err := m.store.Get(id, kindPartial, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SaveReport persists the final report of a completed run
func (m *Manager) SaveReport(r *model.AnalysisReport) error {
	return m.store.Put(r.ID, kindReport, r)
}

// LoadReport returns the final report of id, or nil
func (m *Manager) LoadReport(id string) (*model.AnalysisReport, error) {
	var r model.AnalysisReport
	ok, err := m.store.Get(id, kindReport, &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// ResumeAnalysis loads state, checkpoint and partial report together. It
// returns nil when the analysis is unknown.
func (m *Manager) ResumeAnalysis(id string) (*model.ResumeData, error) {
	s, err := m.LoadState(id)
	if err != nil || s == nil {
		return nil, err
	}
	cp, err := m.LoadCheckpoint(id)
	if err != nil {
		return nil, err
	}
	partial, err := m.LoadPartialReport(id)
	if err != nil {
		return nil, err
	}
	return &model.ResumeData{State: s, Checkpoint: cp, Partial: partial}, nil
}

// ListActiveAnalyses returns non-terminal analyses ordered by start time
func (m *Manager) ListActiveAnalyses() ([]model.AnalysisState, error) {
	all, err := m.ListAnalyses()
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, s := range all {
		if !s.Status.Terminal() {
			active = append(active, s)
		}
	}
	return active, nil
}

// ListAnalyses returns every stored analysis ordered by start time.
// Unreadable entries are skipped with a warning.
func (m *Manager) ListAnalyses() ([]model.AnalysisState, error) {
	ids, err := m.store.List()
	if err != nil {
		return nil, err
	}
	states := make([]model.AnalysisState, 0, len(ids))
	for _, id := range ids {
		s, err := m.LoadState(id)
		if err != nil {
			util.Warn("Skipping unreadable analysis %s: %v", id, err)
			continue
		}
		if s != nil {
			states = append(states, *s)
		}
	}
	sort.SliceStable(states, func(i, j int) bool {
		return states[i].StartTime.Before(states[j].StartTime)
	})
	return states, nil
}

// CleanupCompletedAnalyses deletes terminal analyses that ended more than
// olderThanDays days ago and returns how many were removed
func (m *Manager) CleanupCompletedAnalyses(olderThanDays int) (int, error) {
	all, err := m.ListAnalyses()
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)

	removed := 0
	for _, s := range all {
		if !s.Status.Terminal() {
			continue
		}
		ended := s.StartTime
		if s.EndTime != nil {
			ended = *s.EndTime
		}
		if ended.After(cutoff) {
			continue
		}
		if err := m.store.Delete(s.ID); err != nil {
			return removed, err
		}
		removed++
	}
	util.Info("Removed %d completed analyses older than %d days", removed, olderThanDays)
	return removed, nil
}
