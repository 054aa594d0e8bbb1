package controller

import (
	"os"
	"path/filepath"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/report"
	"redundancy-analyzer/src/util"
)

// artifactTimeLayout is ISO 8601 basic format, safe in file names
const artifactTimeLayout = "20060102T150405Z"

// ReportController handles report generation
type ReportController struct {
	cfg *config.Config
}

// NewReportController creates a new report controller
func NewReportController(cfg *config.Config) *ReportController {
	return &ReportController{cfg: cfg}
}

// GenerateReports writes the report in every configured format and returns
// the written paths
func (c *ReportController) GenerateReports(analysisReport *model.AnalysisReport) ([]string, error) {
	util.Debug("Generating reports for %d formats: %v", len(c.cfg.Output.Formats), c.cfg.Output.Formats)
	reportGenerator := report.NewGenerator(c.cfg.Output, c.cfg.Agent)
	var outputPaths []string

	for _, format := range c.cfg.Output.Formats {
		output, err := reportGenerator.Generate(analysisReport, format)
		if err != nil {
			util.Error("Failed to generate %s report: %v", format, err)
			return nil, err
		}

		outputPath, err := c.getOutputPath(analysisReport, format)
		if err != nil {
			return nil, err
		}

		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			util.Error("Failed to create output directory: %v", err)
			return nil, model.WrapError(model.ErrFileAccess, err, "creating output directory").WithRecoverable(false)
		}

		if err := os.WriteFile(outputPath, []byte(output), 0644); err != nil {
			util.Error("Failed to write report to %s: %v", outputPath, err)
			return nil, model.WrapError(model.ErrFileAccess, err, "writing report %s", outputPath).WithRecoverable(false)
		}

		util.Info("Report written: %s", outputPath)
		outputPaths = append(outputPaths, outputPath)
	}

	return outputPaths, nil
}

// GenerateToString generates a report to a string
func (c *ReportController) GenerateToString(analysisReport *model.AnalysisReport, format string) (string, error) {
	reportGenerator := report.NewGenerator(c.cfg.Output, c.cfg.Agent)
	return reportGenerator.Generate(analysisReport, format)
}

func (c *ReportController) getOutputPath(analysisReport *model.AnalysisReport, format string) (string, error) {
	ext, err := report.Extension(format)
	if err != nil {
		return "", err
	}
	filename := "redundancy-report-" + analysisReport.AnalysisDate.UTC().Format(artifactTimeLayout) + "." + ext
	return filepath.Join(c.cfg.Output.OutputDir, filename), nil
}
