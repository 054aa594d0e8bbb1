package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/metrics"
)

var typeTitles = map[model.FindingType]string{
	model.FindingExactDuplicate:     "Exact Duplicates",
	model.FindingSimilarLogic:       "Similar Logic",
	model.FindingOverlappingFeature: "Overlapping Features",
	model.FindingDuplicateAPI:       "Duplicate API Handlers",
	model.FindingUnusedCode:         "Unused Code",
	model.FindingAbandonedTable:     "Abandoned Tables",
}

var typeDescriptions = map[model.FindingType]string{
	model.FindingExactDuplicate:     "Structurally identical modules in several places",
	model.FindingSimilarLogic:       "Modules implementing near-identical logic",
	model.FindingOverlappingFeature: "Different module kinds covering the same feature",
	model.FindingDuplicateAPI:       "Route handlers or API modules with duplicated logic",
	model.FindingUnusedCode:         "Modules nothing else in the project references",
	model.FindingAbandonedTable:     "Database tables without data-access code",
}

func typeTitle(t model.FindingType) string {
	if s, ok := typeTitles[t]; ok {
		return s
	}
	return string(t)
}

func typeDescription(t model.FindingType) string {
	return typeDescriptions[t]
}

// BuildSummary computes report statistics. totalModules is the number of
// modules analyzed and topDomains bounds the redundant area listing.
func BuildSummary(findings []model.RedundancyFinding, tables []model.DatabaseTableMapping, totalModules, topDomains int) model.ReportSummary {
	s := model.ReportSummary{TopRedundantDomains: []model.DomainCount{}}

	unused := 0
	domains := make(map[string]*model.DomainCount)
	for _, f := range findings {
		s.TotalRedundancy += f.EstimatedSavings
		if f.Severity == model.SeverityHigh {
			s.CriticalFindings++
		}
		if f.Type == model.FindingUnusedCode {
			unused++
		}
		if f.Type == model.FindingAbandonedTable {
			continue
		}
		name := domainOf(f.PrimaryLocation.FilePath)
		d, ok := domains[name]
		if !ok {
			d = &model.DomainCount{Domain: name}
			domains[name] = d
		}
		d.Findings++
		d.Savings += f.EstimatedSavings
	}

	for _, t := range tables {
		if !t.CRUDOperations.Any() {
			s.TablesWithoutCRUD++
		}
	}

	if totalModules > 0 {
		s.UnusedCodePercentage = math.Round(float64(unused)/float64(totalModules)*10000) / 100
	}

	for _, d := range domains {
		s.TopRedundantDomains = append(s.TopRedundantDomains, *d)
	}
	sort.Slice(s.TopRedundantDomains, func(i, j int) bool {
		a, b := s.TopRedundantDomains[i], s.TopRedundantDomains[j]
		if a.Savings != b.Savings {
			return a.Savings > b.Savings
		}
		if a.Findings != b.Findings {
			return a.Findings > b.Findings
		}
		return a.Domain < b.Domain
	})
	if topDomains > 0 && len(s.TopRedundantDomains) > topDomains {
		s.TopRedundantDomains = s.TopRedundantDomains[:topDomains]
	}
	return s
}

// domainOf returns the top-level directory of a relative path, or "." for
// files at the project root
func domainOf(p string) string {
	if i := strings.IndexByte(p, '/'); i > 0 {
		return p[:i]
	}
	return "."
}

// DeriveRecommendations produces one recommendation per finding type present,
// ordered by priority. Priority follows the most severe finding of the type.
func DeriveRecommendations(findings []model.RedundancyFinding) []model.Recommendation {
	type group struct {
		count    int
		savings  int
		severity model.Severity
		effort   metrics.Effort
	}
	groups := make(map[model.FindingType]*group)
	for _, f := range findings {
		g, ok := groups[f.Type]
		if !ok {
			g = &group{severity: model.SeverityLow, effort: metrics.EffortSmall}
			groups[f.Type] = g
		}
		g.count++
		g.savings += f.EstimatedSavings
		if f.Severity.Rank() > g.severity.Rank() {
			g.severity = f.Severity
		}
		if e := metrics.EstimateEffort(f); effortRank(e) > effortRank(g.effort) {
			g.effort = e
		}
	}

	recs := []model.Recommendation{}
	for _, t := range model.FindingTypes {
		g, ok := groups[t]
		if !ok {
			continue
		}
		recs = append(recs, model.Recommendation{
			Priority:    model.Priority(g.severity),
			Type:        t,
			Title:       recommendationTitle(t),
			Description: recommendationText(t, g.count, g.savings),
			Findings:    g.count,
			Effort:      string(g.effort),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return model.Severity(recs[i].Priority).Rank() > model.Severity(recs[j].Priority).Rank()
	})
	return recs
}

func effortRank(e metrics.Effort) int {
	switch e {
	case metrics.EffortLarge:
		return 3
	case metrics.EffortMedium:
		return 2
	}
	return 1
}

func recommendationTitle(t model.FindingType) string {
	switch t {
	case model.FindingExactDuplicate:
		return "Remove exact duplicates"
	case model.FindingSimilarLogic:
		return "Consolidate similar logic"
	case model.FindingOverlappingFeature:
		return "Merge overlapping features"
	case model.FindingDuplicateAPI:
		return "Unify duplicated API handlers"
	case model.FindingUnusedCode:
		return "Delete unused code"
	case model.FindingAbandonedTable:
		return "Retire abandoned tables"
	}
	return "Review " + string(t)
}

func recommendationText(t model.FindingType, count, savings int) string {
	switch t {
	case model.FindingExactDuplicate:
		return fmt.Sprintf("Keep one copy of each of the %d duplicated modules and import it elsewhere, removing about %d lines.", count, savings)
	case model.FindingSimilarLogic:
		return fmt.Sprintf("Extract the shared logic of %d module groups into parameterized helpers, saving about %d lines.", count, savings)
	case model.FindingOverlappingFeature:
		return fmt.Sprintf("Decide on one owner for each of the %d overlapping features.", count)
	case model.FindingDuplicateAPI:
		return fmt.Sprintf("Route %d duplicated handlers through shared middleware or a common service, saving about %d lines.", count, savings)
	case model.FindingUnusedCode:
		return fmt.Sprintf("Confirm the %d unreferenced modules are not loaded dynamically, then delete them (%d lines).", count, savings)
	case model.FindingAbandonedTable:
		return fmt.Sprintf("Verify %d tables hold no live data, archive them and drop them in a migration.", count)
	}
	return fmt.Sprintf("%d findings to review.", count)
}
