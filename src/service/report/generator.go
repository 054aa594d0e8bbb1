package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/metrics"
	"redundancy-analyzer/src/util"
)

// Generator generates reports in various formats
type Generator struct {
	cfg   config.OutputConfig
	agent config.AgentConfig
	now   func() time.Time
}

// NewGenerator creates a new report generator
func NewGenerator(cfg config.OutputConfig, agent config.AgentConfig) *Generator {
	return &Generator{cfg: cfg, agent: agent, now: time.Now}
}

// Extension returns the artifact file extension of a format
func Extension(format string) (string, error) {
	switch format {
	case "json":
		return "json", nil
	case "markdown", "md":
		return "md", nil
	case "sarif":
		return "sarif", nil
	}
	return "", model.NewError(model.ErrInvalidOptions, "unsupported format: %s", format).WithRecoverable(false)
}

// Generate generates a report in the specified format
func (g *Generator) Generate(report *model.AnalysisReport, format string) (string, error) {
	util.Debug("Generating report in %s format (%d findings)", format, len(report.Findings))
	switch format {
	case "json":
		return g.generateJSON(report)
	case "markdown", "md":
		return g.generateMarkdown(report), nil
	case "sarif":
		return g.generateSARIF(report)
	default:
		util.Warn("Unsupported report format requested: %s", format)
		_, err := Extension(format)
		return "", err
	}
}

func (g *Generator) generateJSON(report *model.AnalysisReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CleanupDays estimates cleanup effort from removable lines, 100 lines a day
func CleanupDays(totalRedundancy int) int {
	return int(math.Ceil(float64(totalRedundancy) / 100))
}

func (g *Generator) generateMarkdown(report *model.AnalysisReport) string {
	var sb strings.Builder
	s := report.Summary
	m := report.Metrics

	// Header
	sb.WriteString("# Redundancy Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("**Project:** %s\n", report.ProjectName))
	sb.WriteString(fmt.Sprintf("**Analysis ID:** %s\n", report.ID))
	sb.WriteString(fmt.Sprintf("**Analyzed:** %s\n", report.AnalysisDate.UTC().Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(fmt.Sprintf("**Scope:** %d files, %d modules, %d tables\n\n", report.TotalFiles, report.TotalModules, report.TotalTables))

	// Summary
	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total Findings:** %d\n", len(report.Findings)))
	sb.WriteString(fmt.Sprintf("- **Critical Findings:** %d\n", s.CriticalFindings))
	sb.WriteString(fmt.Sprintf("- **Removable Lines:** %d\n", s.TotalRedundancy))
	sb.WriteString(fmt.Sprintf("- **Estimated Cleanup Effort:** %d days\n", CleanupDays(s.TotalRedundancy)))
	sb.WriteString(fmt.Sprintf("- **Unused Code:** %.1f%% of modules\n", s.UnusedCodePercentage))
	sb.WriteString(fmt.Sprintf("- **Tables Without CRUD:** %d\n", s.TablesWithoutCRUD))
	if report.TotalModules > 0 {
		sb.WriteString(fmt.Sprintf("- **Average Module Quality:** %.1f/100\n", m.ModuleQuality))
	}
	sb.WriteString("\n")

	if len(s.TopRedundantDomains) > 0 {
		sb.WriteString("### Most Redundant Areas\n\n")
		sb.WriteString("| Area | Findings | Removable Lines |\n")
		sb.WriteString("|------|----------|-----------------|\n")
		for _, d := range s.TopRedundantDomains {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", d.Domain, d.Findings, d.Savings))
		}
		sb.WriteString("\n")
	}

	// Metrics
	sb.WriteString("## Impact Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total scale (LOC) | %.0f |\n", m.TotalScale))
	sb.WriteString(fmt.Sprintf("| Average risk | %.2f |\n", m.AverageRisk))
	sb.WriteString(fmt.Sprintf("| Average quality | %.2f |\n", m.AverageQuality))
	sb.WriteString(fmt.Sprintf("| Estimated savings (LOC) | %d |\n", m.TotalSavings))
	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		sb.WriteString(fmt.Sprintf("| %s severity | %d |\n", titleCase(string(sev)), m.BySeverity[sev]))
	}
	sb.WriteString("\n")

	prioritized := metrics.PrioritizeFindings(report.Findings)

	// Critical
	var critical []model.RedundancyFinding
	for _, f := range prioritized {
		if f.Severity == model.SeverityHigh {
			critical = append(critical, f)
		}
	}
	if len(critical) > 0 {
		sb.WriteString("## Critical Findings\n\n")
		limit := g.cfg.TopOffenders
		if limit <= 0 || limit > len(critical) {
			limit = len(critical)
		}
		for _, f := range critical[:limit] {
			sb.WriteString(fmt.Sprintf("### %s `%s`\n\n", severityLabel(f.Severity), findingName(f)))
			sb.WriteString(fmt.Sprintf("- **Type:** %s\n", typeTitle(f.Type)))
			sb.WriteString(fmt.Sprintf("- **Location:** `%s`\n", locationText(f.PrimaryLocation)))
			sb.WriteString(fmt.Sprintf("- **Copies:** %d\n", len(f.DuplicateLocations)))
			sb.WriteString(fmt.Sprintf("- **Removable Lines:** %d\n", f.EstimatedSavings))
			sb.WriteString(fmt.Sprintf("- **Recommendation:** %s\n\n", f.Recommendation))
		}
		if len(critical) > limit {
			sb.WriteString(fmt.Sprintf("_%d more critical findings in the listing below._\n\n", len(critical)-limit))
		}
	}

	// Findings by category
	sb.WriteString("## All Findings by Category\n\n")
	byType := make(map[model.FindingType][]model.RedundancyFinding)
	for _, f := range prioritized {
		byType[f.Type] = append(byType[f.Type], f)
	}
	if len(report.Findings) == 0 {
		sb.WriteString("No redundancy detected.\n\n")
	}
	for _, t := range model.FindingTypes {
		findings := byType[t]
		if len(findings) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", typeTitle(t), len(findings)))
		sb.WriteString("| Severity | Name | Location | Copies | Score | Savings |\n")
		sb.WriteString("|----------|------|----------|--------|-------|---------|\n")
		for _, f := range findings {
			sb.WriteString(fmt.Sprintf("| %s | %s | `%s` | %d | %s | %d |\n",
				f.Severity, findingName(f), locationText(f.PrimaryLocation),
				len(f.DuplicateLocations), scoreText(f), f.EstimatedSavings))
		}
		sb.WriteString("\n")
	}

	g.writeDatabase(&sb, report.Tables)

	// Recommendations
	if g.cfg.IncludeRecommendations {
		recs := report.Recommendations
		if len(recs) == 0 {
			recs = DeriveRecommendations(report.Findings)
		}
		sb.WriteString("## Recommendations\n\n")
		if len(recs) == 0 {
			sb.WriteString("Nothing to clean up.\n\n")
		}
		for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
			var group []model.Recommendation
			for _, r := range recs {
				if r.Priority == p {
					group = append(group, r)
				}
			}
			if len(group) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("### %s Priority\n\n", titleCase(string(p))))
			for _, r := range group {
				sb.WriteString(fmt.Sprintf("- **%s** (%d findings, %s effort): %s\n", r.Title, r.Findings, r.Effort, r.Description))
			}
			sb.WriteString("\n")
		}
	}

	// Detailed listing
	if g.cfg.IncludeDetailed && len(prioritized) > 0 {
		limit := g.cfg.MaxDetailedFindings
		if limit <= 0 || limit > len(prioritized) {
			limit = len(prioritized)
		}
		sb.WriteString("## Detailed Findings\n\n")
		for i, f := range prioritized[:limit] {
			sb.WriteString(fmt.Sprintf("#### %d. %s %s `%s`\n\n", i+1, severityLabel(f.Severity), f.Type, findingName(f)))
			sb.WriteString(fmt.Sprintf("- **Location:** `%s`\n", locationText(f.PrimaryLocation)))
			for _, d := range f.DuplicateLocations {
				sb.WriteString(fmt.Sprintf("- **Also at:** `%s`\n", locationText(d)))
			}
			if f.SimilarityScore > 0 {
				sb.WriteString(fmt.Sprintf("- **Similarity:** %.2f%%\n", f.SimilarityScore))
			}
			sb.WriteString(fmt.Sprintf("- **Impact:** scale %.0f, risk %.2f, quality %.1f\n",
				f.ImpactScore.Scale, f.ImpactScore.Risk, f.ImpactScore.Quality))
			sb.WriteString(fmt.Sprintf("- **Effort:** %s\n", metrics.EstimateEffort(f)))
			if f.Recommendation != "" {
				sb.WriteString(fmt.Sprintf("- **Recommendation:** %s\n", f.Recommendation))
			}
			sb.WriteString("\n")
		}
		if rest := len(prioritized) - limit; rest > 0 {
			sb.WriteString(fmt.Sprintf("_%d more findings not shown._\n\n", rest))
		}
	}

	if len(report.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		sb.WriteString("Some detectors failed; their findings are missing from this report.\n\n")
		for _, w := range report.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("_Generated by %s %s on %s_\n", g.agent.Name, g.agent.Version, g.now().UTC().Format(time.RFC3339)))

	return sb.String()
}

func (g *Generator) writeDatabase(sb *strings.Builder, tables []model.DatabaseTableMapping) {
	sb.WriteString("## Database Analysis\n\n")
	if len(tables) == 0 {
		sb.WriteString("No database schema was analyzed.\n\n")
		return
	}

	sb.WriteString("| Table | Repository | CRUD | Usage | Rows | Status |\n")
	sb.WriteString("|-------|------------|------|-------|------|--------|\n")
	var incomplete []model.DatabaseTableMapping
	for _, t := range tables {
		repo := "-"
		if t.HasRepository {
			repo = "`" + t.RepositoryPath + "`"
		}
		rows := "?"
		if t.RowCount >= 0 {
			rows = fmt.Sprintf("%d", t.RowCount)
		}
		status := "in use"
		if t.IsAbandoned {
			status = "abandoned"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %s |\n",
			t.TableName, repo, crudText(t.CRUDOperations), t.UsageCount, rows, status))

		if t.HasRepository && len(t.CRUDOperations.Missing()) > 0 {
			incomplete = append(incomplete, t)
		}
	}
	sb.WriteString("\n")

	if len(incomplete) > 0 {
		sb.WriteString("### Incomplete Data Access\n\n")
		for _, t := range incomplete {
			sb.WriteString(fmt.Sprintf("- `%s` has a repository but no %s operations\n",
				t.TableName, strings.Join(t.CRUDOperations.Missing(), ", ")))
		}
		sb.WriteString("\n")
	}
}

func (g *Generator) generateSARIF(report *model.AnalysisReport) (string, error) {
	sarif := map[string]any{
		"$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		"version": "2.1.0",
		"runs": []map[string]any{
			{
				"tool": map[string]any{
					"driver": map[string]any{
						"name":    g.agent.Name,
						"version": g.agent.Version,
						"rules":   g.buildSARIFRules(report.Findings),
					},
				},
				"results": g.buildSARIFResults(report.Findings),
			},
		},
	}

	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (g *Generator) buildSARIFRules(findings []model.RedundancyFinding) []map[string]any {
	ruleMap := make(map[model.FindingType]bool)
	rules := []map[string]any{}

	for _, f := range findings {
		if ruleMap[f.Type] {
			continue
		}
		ruleMap[f.Type] = true

		rules = append(rules, map[string]any{
			"id":   string(f.Type),
			"name": typeTitle(f.Type),
			"shortDescription": map[string]any{
				"text": typeDescription(f.Type),
			},
		})
	}

	return rules
}

func (g *Generator) buildSARIFResults(findings []model.RedundancyFinding) []map[string]any {
	results := []map[string]any{}

	for _, f := range findings {
		result := map[string]any{
			"ruleId":    string(f.Type),
			"level":     sarifLevel(f.Severity),
			"message":   map[string]any{"text": fmt.Sprintf("%s: %s", typeTitle(f.Type), findingName(f))},
			"locations": []map[string]any{sarifLocation(f.PrimaryLocation)},
			"properties": map[string]any{
				"similarityScore":  f.SimilarityScore,
				"estimatedSavings": f.EstimatedSavings,
				"impact":           f.ImpactScore,
			},
		}

		if len(f.DuplicateLocations) > 0 {
			related := make([]map[string]any, 0, len(f.DuplicateLocations))
			for _, d := range f.DuplicateLocations {
				related = append(related, sarifLocation(d))
			}
			result["relatedLocations"] = related
		}

		if f.Recommendation != "" {
			result["fixes"] = []map[string]any{
				{
					"description": map[string]any{"text": f.Recommendation},
				},
			}
		}

		results = append(results, result)
	}

	return results
}

func sarifLocation(loc model.CodeLocation) map[string]any {
	region := map[string]any{}
	if loc.StartLine > 0 {
		region["startLine"] = loc.StartLine
		region["endLine"] = loc.EndLine
	}
	return map[string]any{
		"physicalLocation": map[string]any{
			"artifactLocation": map[string]any{
				"uri": loc.FilePath,
			},
			"region": region,
		},
	}
}

func severityLabel(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "[HIGH]"
	case model.SeverityMedium:
		return "[MEDIUM]"
	default:
		return "[LOW]"
	}
}

func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func findingName(f model.RedundancyFinding) string {
	if f.ModuleName != "" {
		return f.ModuleName
	}
	return f.PrimaryLocation.FilePath
}

func locationText(loc model.CodeLocation) string {
	if loc.StartLine == 0 {
		return loc.FilePath
	}
	return fmt.Sprintf("%s:%d-%d", loc.FilePath, loc.StartLine, loc.EndLine)
}

func scoreText(f model.RedundancyFinding) string {
	if f.SimilarityScore == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", f.SimilarityScore)
}

func crudText(ops model.CRUDOperations) string {
	var b strings.Builder
	for _, op := range []struct {
		on bool
		c  byte
	}{{ops.Create, 'C'}, {ops.Read, 'R'}, {ops.Update, 'U'}, {ops.Delete, 'D'}} {
		if op.on {
			b.WriteByte(op.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
