package parser

import (
	"path/filepath"
	"strings"
	"unicode"

	"redundancy-analyzer/src/model"
)

var (
	repositoryMarkers = []string{"repository", "repo", "dao", "store"}
	serviceMarkers    = []string{"service", "manager", "provider", "client"}
	reactMarkers      = []string{"useState", "useEffect", "React.", "props"}
)

// Classify assigns a module type from name, path and structural markers.
// body is the module's source text and may be empty.
func Classify(c Candidate, filePath, body string) model.ModuleType {
	words := append(SplitWords(c.Name), SplitWords(strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)))...)

	if hasWord(words, repositoryMarkers) {
		return model.ModuleRepository
	}
	if hasWord(words, serviceMarkers) {
		return model.ModuleService
	}
	if isComponent(c, filePath, body) {
		return model.ModuleComponent
	}
	if c.Kind == KindClass {
		return model.ModuleClass
	}
	return model.ModuleFunction
}

func isComponent(c Candidate, filePath, body string) bool {
	if c.HasJSX {
		return true
	}
	if c.Kind == KindClass || c.Name == "" || !unicode.IsUpper(rune(c.Name[0])) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".jsx" || ext == ".tsx" {
		return true
	}
	if ext == ".js" || ext == ".ts" {
		for _, m := range reactMarkers {
			if strings.Contains(body, m) {
				return true
			}
		}
	}
	return false
}

func hasWord(words, markers []string) bool {
	for _, w := range words {
		for _, m := range markers {
			if w == m {
				return true
			}
		}
	}
	return false
}

// SplitWords breaks an identifier or file name into lower-case words on
// case changes and separators: "UserRepository" and "user_repo.test" both split.
func SplitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && len(cur) > 0 &&
			(unicode.IsLower(cur[len(cur)-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}
