// Package scanner walks a project tree and yields the source files worth
// parsing.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

// DefaultMaxFileSize is the size ceiling above which files are skipped as
// non-representative (bundles, fixtures, generated dumps)
const DefaultMaxFileSize int64 = 1 << 20

// IgnoredDirs are build, vendor and VCS directories that are never walked
var IgnoredDirs = map[string]bool{
	".git":                 true,
	".hg":                  true,
	".svn":                 true,
	"node_modules":         true,
	"vendor":               true,
	"bower_components":     true,
	"dist":                 true,
	"build":                true,
	"out":                  true,
	"target":               true,
	"coverage":             true,
	".next":                true,
	".nuxt":                true,
	".turbo":               true,
	".cache":               true,
	".venv":                true,
	"venv":                 true,
	"__pycache__":          true,
	".pytest_cache":        true,
	".idea":                true,
	".vscode":              true,
	".gradle":              true,
	".redundancy-analyzer": true,
}

var testDirs = map[string]bool{
	"__tests__": true,
	"__mocks__": true,
	"test":      true,
	"tests":     true,
	"e2e":       true,
	"testdata":  true,
}

var docExtensions = map[string]bool{
	".md":   true,
	".mdx":  true,
	".rst":  true,
	".txt":  true,
	".adoc": true,
}

// Options controls which files are yielded
type Options struct {
	IncludePatterns  []string
	ExcludePatterns  []string
	IncludeTests     bool
	IncludeDocs      bool
	MaxFiles         int   // 0 = unlimited
	MaxFileSize      int64 // 0 = DefaultMaxFileSize
	Extensions       []string
	RespectGitignore bool
	SkipFiles        map[string]bool // relative paths already processed
}

// Scanner walks project trees
type Scanner struct{}

// New creates a new scanner
func New() *Scanner {
	return &Scanner{}
}

// Scan returns every matching file under root, ordered by path
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]model.FileDescriptor, error) {
	var files []model.FileDescriptor
	_, err := s.Stream(ctx, root, opts, func(fd model.FileDescriptor) error {
		files = append(files, fd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// CountFiles returns how many files Stream would yield, for progress totals
func (s *Scanner) CountFiles(ctx context.Context, root string, opts Options) (int, error) {
	return s.Stream(ctx, root, opts, func(model.FileDescriptor) error { return nil })
}

// Stream walks root and invokes onFile for every matching file instead of
// materializing the list. It returns the number of files passed to onFile.
// An error returned by onFile stops the walk and is returned as is.
func (s *Scanner) Stream(ctx context.Context, root string, opts Options, onFile func(model.FileDescriptor) error) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, model.NewError(model.ErrProjectNotFound, "project path %s does not exist", root).WithRecoverable(false)
		}
		return 0, model.WrapError(model.ErrFileAccess, err, "stat project path %s", root).WithRecoverable(false)
	}
	if !info.IsDir() {
		return 0, model.NewError(model.ErrProjectNotFound, "project path %s is not a directory", root).WithRecoverable(false)
	}

	f := newFilter(root, opts)
	count := 0
	skipped := 0

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// unreadable entries are never fatal
			util.Warn("Skipping unreadable path %s: %v", p, err)
			skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if f.skipDir(rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			util.Warn("Skipping %s: %v", rel, err)
			skipped++
			return nil
		}

		fd, ok := f.describe(rel, fi)
		if !ok {
			return nil
		}

		if err := onFile(fd); err != nil {
			return err
		}
		count++
		if opts.MaxFiles > 0 && count >= opts.MaxFiles {
			util.Debug("Scanner reached max files limit (%d)", opts.MaxFiles)
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return count, walkErr
	}

	util.Debug("Scanner yielded %d files under %s (%d unreadable)", count, root, skipped)
	return count, nil
}

type filter struct {
	opts       Options
	include    *util.GlobSet
	exclude    *util.GlobSet
	gitignore  *ignore.GitIgnore
	extensions map[string]bool
	maxSize    int64
}

func newFilter(root string, opts Options) *filter {
	f := &filter{
		opts:    opts,
		include: util.NewGlobSet(opts.IncludePatterns),
		exclude: util.NewGlobSet(opts.ExcludePatterns),
		maxSize: opts.MaxFileSize,
	}
	if f.maxSize <= 0 {
		f.maxSize = DefaultMaxFileSize
	}
	if opts.RespectGitignore {
		f.gitignore = LoadGitignore(root)
	}
	if len(opts.Extensions) > 0 {
		f.extensions = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			f.extensions[strings.ToLower(ext)] = true
		}
	}
	return f
}

func (f *filter) skipDir(rel, name string) bool {
	if IgnoredDirs[name] {
		return true
	}
	if !f.opts.IncludeTests && testDirs[name] {
		return true
	}
	if f.gitignore != nil && f.gitignore.MatchesPath(rel+"/") {
		return true
	}
	return f.exclude.MatchDir(rel)
}

func (f *filter) describe(rel string, fi fs.FileInfo) (model.FileDescriptor, bool) {
	if f.opts.SkipFiles[rel] {
		return model.FileDescriptor{}, false
	}
	if fi.Size() > f.maxSize {
		util.Debug("Skipping %s: %d bytes exceeds size ceiling", rel, fi.Size())
		return model.FileDescriptor{}, false
	}
	if f.gitignore != nil && f.gitignore.MatchesPath(rel) {
		return model.FileDescriptor{}, false
	}
	if f.exclude.Match(rel) {
		return model.FileDescriptor{}, false
	}
	if !f.include.Empty() && !f.include.Match(rel) {
		return model.FileDescriptor{}, false
	}

	ext := strings.ToLower(path.Ext(rel))
	fd := model.FileDescriptor{
		Path:         rel,
		Size:         fi.Size(),
		Extension:    ext,
		IsTest:       IsTestFile(rel),
		IsDoc:        IsDocFile(rel),
		LastModified: fi.ModTime(),
	}

	if fd.IsTest && !f.opts.IncludeTests {
		return fd, false
	}
	if fd.IsDoc {
		return fd, f.opts.IncludeDocs
	}
	if f.extensions != nil && !f.extensions[ext] {
		return fd, false
	}
	return fd, true
}

// IsTestFile reports whether a relative path looks like a test file
func IsTestFile(rel string) bool {
	base := strings.ToLower(path.Base(rel))
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, "_test.py"),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.Contains(base, ".stories."):
		return true
	}
	for _, seg := range strings.Split(path.Dir(rel), "/") {
		if testDirs[seg] {
			return true
		}
	}
	return false
}

// IsDocFile reports whether a relative path looks like documentation
func IsDocFile(rel string) bool {
	if docExtensions[strings.ToLower(path.Ext(rel))] {
		return true
	}
	for _, seg := range strings.Split(path.Dir(rel), "/") {
		if seg == "docs" || seg == "doc" {
			return true
		}
	}
	return false
}

// LoadGitignore compiles the .gitignore at root, or returns nil
func LoadGitignore(root string) *ignore.GitIgnore {
	gitignorePath := filepath.Join(root, ".gitignore")

	if _, err := os.Stat(gitignorePath); err == nil {
		if gitignore, err := ignore.CompileIgnoreFile(gitignorePath); err == nil {
			return gitignore
		}
		util.Warn("Could not compile %s, ignoring it", gitignorePath)
	}

	return nil
}
