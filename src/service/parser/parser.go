package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

const (
	DefaultMinModuleSize   = 10
	DefaultMaxDigestLength = 2000
)

// Options configures module extraction
type Options struct {
	MinModuleSize   int
	Digest          DigestOptions
	CacheMaxEntries int
}

// DefaultOptions returns the parser defaults
func DefaultOptions() Options {
	return Options{
		MinModuleSize: DefaultMinModuleSize,
		Digest:        DigestOptions{MaxLength: DefaultMaxDigestLength},
	}
}

// Parser turns source files into code modules through per-dialect extractors
type Parser struct {
	opts       Options
	extractors map[string]Extractor
	cache      *Cache
}

// New creates a parser. Without extractors the default set is registered.
func New(opts Options, extractors ...Extractor) *Parser {
	if len(extractors) == 0 {
		extractors = DefaultExtractors()
	}
	if opts.Digest.MaxLength <= 0 {
		opts.Digest.MaxLength = DefaultMaxDigestLength
	}
	p := &Parser{
		opts:       opts,
		extractors: make(map[string]Extractor),
		cache:      NewCache(opts.CacheMaxEntries),
	}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			p.extractors[ext] = e
		}
	}
	return p
}

// SupportedExtensions lists every extension with a registered extractor
func (p *Parser) SupportedExtensions() []string {
	exts := make([]string, 0, len(p.extractors))
	for ext := range p.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered extractor
func (p *Parser) Supports(path string) bool {
	_, ok := p.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Cache exposes the run-scoped module cache
func (p *Parser) Cache() *Cache {
	return p.cache
}

// Reset drops the module cache at the end of a run
func (p *Parser) Reset() {
	p.cache.Reset()
}

// ParseFile parses one scanned file. Results are memoized per path. A file
// that fails to parse yields no modules and a recoverable PARSE_ERROR.
func (p *Parser) ParseFile(ctx context.Context, root string, fd model.FileDescriptor) ([]model.CodeModule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if modules, ok := p.cache.Get(fd.Path); ok {
		return modules, nil
	}
	if !p.Supports(fd.Path) {
		return nil, nil
	}

	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(fd.Path)))
	if err != nil {
		return nil, model.WrapError(model.ErrFileAccess, err, "failed to read %s", fd.Path).With("file", fd.Path)
	}

	modules, err := p.ParseSource(fd.Path, src, fd.LastModified)
	if err != nil {
		p.cache.Put(fd.Path, []model.CodeModule{})
		return []model.CodeModule{}, err
	}
	return p.cache.Put(fd.Path, modules), nil
}

// ParseSource extracts modules from src without touching the cache
func (p *Parser) ParseSource(path string, src []byte, modTime time.Time) (modules []model.CodeModule, err error) {
	ex, ok := p.extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, model.NewError(model.ErrParse, "no extractor for %s", path).With("file", path)
	}

	defer func() {
		if r := recover(); r != nil {
			modules = []model.CodeModule{}
			err = model.NewError(model.ErrParse, "%s extractor panicked on %s: %v", ex.Language(), path, r).With("file", path)
		}
	}()

	unit, err := ex.Extract(path, src, p.opts.Digest)
	if err != nil {
		return []model.CodeModule{}, model.WrapError(model.ErrParse, err, "failed to parse %s", path).With("file", path)
	}

	lines := bytes.Split(src, []byte("\n"))
	modules = make([]model.CodeModule, 0, len(unit.Candidates))
	for _, c := range unit.Candidates {
		loc := c.EndLine - c.StartLine + 1
		if loc < p.opts.MinModuleSize {
			continue
		}
		modules = append(modules, p.buildModule(path, unit.Language, c, body(lines, c.StartLine, c.EndLine), modTime))
	}

	util.Debug("Parsed %s: %d candidates, %d modules", path, len(unit.Candidates), len(modules))
	return modules, nil
}

func (p *Parser) buildModule(path, language string, c Candidate, text string, modTime time.Time) model.CodeModule {
	deps := make([]string, 0, len(c.Identifiers))
	for id := range c.Identifiers {
		deps = append(deps, id)
	}
	sort.Strings(deps)

	complexity := c.Complexity
	if complexity < 1 {
		complexity = 1
	}

	return model.CodeModule{
		ID:            ModuleID(path, c.Name, c.StartLine),
		FilePath:      path,
		ModuleName:    c.Name,
		Type:          Classify(c, path, text),
		Language:      language,
		Exported:      c.Exported,
		StartLine:     c.StartLine,
		EndLine:       c.EndLine,
		Dependencies:  deps,
		SimplifiedAST: c.Digest,
		DigestHash:    DigestHash(c.Digest),
		Metrics: model.ModuleMetrics{
			LinesOfCode:          c.EndLine - c.StartLine + 1,
			CyclomaticComplexity: complexity,
			DependencyCount:      len(deps),
			LastModified:         modTime,
		},
	}
}

// ModuleID is stable for a module name declared at a given file position
func ModuleID(path, name string, startLine int) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(fmt.Sprintf("%s:%s:%d", path, name, startLine)))
}

func body(lines [][]byte, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return string(bytes.Join(lines[start-1:end], []byte("\n")))
}
