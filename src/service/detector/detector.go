package detector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/metrics"
	"redundancy-analyzer/src/util"
)

// Input is the analysis state shared by all detectors
type Input struct {
	Modules []model.CodeModule
	Tables  []model.DatabaseTableMapping
	Focus   model.Focus

	// Quality scores module source; nil scores from metrics alone
	Quality metrics.QualityScorer
}

// Detector is the interface for all redundancy detectors
type Detector interface {
	// Name returns the detector name
	Name() string

	// IsEnabled returns whether the detector is enabled
	IsEnabled() bool

	// Covers reports whether the detector runs under the given focus
	Covers(focus model.Focus) bool

	// Detect runs the detection and returns found redundancies
	Detect(ctx context.Context, in Input) ([]model.RedundancyFinding, error)
}

// BaseDetector provides common functionality for detectors
type BaseDetector struct {
	Cfg      *config.Config
	APIPaths *util.GlobSet
	Now      func() time.Time
}

// NewBaseDetector creates a new base detector
func NewBaseDetector(cfg *config.Config) BaseDetector {
	return BaseDetector{
		Cfg:      cfg,
		APIPaths: util.NewGlobSet(cfg.Detectors.APIPathGlobs),
		Now:      time.Now,
	}
}

// IsAPIModule reports whether a module lives under an API path
func (b *BaseDetector) IsAPIModule(m model.CodeModule) bool {
	return !b.APIPaths.Empty() && b.APIPaths.Match(m.FilePath)
}

// NewFinding fills in the identity fields every finding shares
func (b *BaseDetector) NewFinding(t model.FindingType, primary model.CodeLocation) model.RedundancyFinding {
	return model.RedundancyFinding{
		ID:                 uuid.NewString(),
		Type:               t,
		PrimaryLocation:    primary,
		DuplicateLocations: []model.CodeLocation{},
		CreatedAt:          b.Now(),
	}
}

// Recommendation returns the default advice for a finding type
func Recommendation(t model.FindingType, name string) string {
	switch t {
	case model.FindingExactDuplicate:
		return "Extract " + name + " into a shared module and replace the copies with calls to it"
	case model.FindingSimilarLogic:
		return "Review " + name + " and its near copies; merge them behind one parameterized implementation"
	case model.FindingOverlappingFeature:
		return "Consolidate the overlapping implementations of " + name + " into one feature"
	case model.FindingDuplicateAPI:
		return "Merge the duplicated endpoint logic of " + name + " into a shared handler"
	case model.FindingUnusedCode:
		return "Remove " + name + " or document why it must be kept"
	case model.FindingAbandonedTable:
		return "Confirm table " + name + " is unused, archive its data and drop it"
	}
	return ""
}

// FilterValid drops findings that break the finding invariants
func FilterValid(detector string, findings []model.RedundancyFinding) []model.RedundancyFinding {
	valid := findings[:0]
	for _, f := range findings {
		if err := f.Validate(); err != nil {
			util.Warn("Detector %s produced an invalid finding for %s: %v", detector, f.PrimaryLocation.Key(), err)
			continue
		}
		valid = append(valid, f)
	}
	return valid
}
