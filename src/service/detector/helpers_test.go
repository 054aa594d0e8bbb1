package detector

import (
	"fmt"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/parser"
)

func testModule(path, name string, start, loc int, digest string) model.CodeModule {
	return model.CodeModule{
		ID:            parser.ModuleID(path, name, start),
		FilePath:      path,
		ModuleName:    name,
		Type:          model.ModuleFunction,
		StartLine:     start,
		EndLine:       start + loc - 1,
		SimplifiedAST: digest,
		DigestHash:    parser.DigestHash(digest),
		Metrics: model.ModuleMetrics{
			LinesOfCode:          loc,
			CyclomaticComplexity: 2,
			DependencyCount:      1,
		},
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Detectors.Similarity.Threshold = 70
	return cfg
}

// identicalJS is a 20-line function
func identicalJS() string {
	src := "function formatTotal(items) {\n  let total = 0;\n"
	for i := 0; i < 16; i++ {
		src += fmt.Sprintf("  total = total + items[%d];\n", i)
	}
	return src + "  return total;\n}\n"
}
