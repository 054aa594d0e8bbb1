package schema

import (
	"bufio"
	"bytes"
	"context"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/surgebase/porter2"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/retry"
	"redundancy-analyzer/src/service/scanner"
	"redundancy-analyzer/src/util"
)

const (
	// DefaultSampleSize is how many files the CRUD and usage search reads
	DefaultSampleSize = 200
	// DefaultSampleSeed seeds the file sample
	DefaultSampleSeed = 42

	maxReferences = 10
)

// dataAccessMarkers are base-name words that mark a data-access file
var dataAccessMarkers = []string{"repository", "repo", "dao", "store", "model", "service"}

// FileLister lists the files of a project
type FileLister interface {
	Scan(ctx context.Context, root string, opts scanner.Options) ([]model.FileDescriptor, error)
}

// Mapper cross-references schema tables with the source tree
type Mapper struct {
	cfg    config.DatabaseConfig
	source Source
	files  FileLister
	opts   scanner.Options
	retry  *retry.Handler

	mu       sync.Mutex
	contents map[string][]byte
}

// NewMapper creates a mapper. source may be nil, in which case no tables are
// mapped.
func NewMapper(cfg config.DatabaseConfig, source Source, files FileLister, opts scanner.Options, rh *retry.Handler) *Mapper {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.AbandonmentFloor <= 0 {
		cfg.AbandonmentFloor = model.DefaultAbandonmentFloor
	}
	return &Mapper{
		cfg:    cfg,
		source: source,
		files:  files,
		opts:   opts,
		retry:  rh,
	}
}

// AnalyzeTableUsage maps every schema table onto the source tree under root.
// A missing or failing schema source degrades to no mappings with a warning.
func (m *Mapper) AnalyzeTableUsage(ctx context.Context, root string) ([]model.DatabaseTableMapping, error) {
	mappings := []model.DatabaseTableMapping{}
	if m.source == nil {
		util.Warn("No database schema source configured, skipping table analysis")
		return mappings, nil
	}

	tables, err := m.loadTables(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		util.Warn("Schema source %s unavailable, skipping table analysis: %v", m.source.Name(), err)
		return mappings, nil
	}
	if len(tables) == 0 {
		util.Info("Schema source %s returned no tables", m.source.Name())
		return mappings, nil
	}

	files, err := m.files.Scan(ctx, root, m.opts)
	if err != nil {
		return nil, err
	}
	m.contents = make(map[string][]byte)
	defer func() { m.contents = nil }()

	sample := SampleFiles(files, m.cfg.SampleSize, m.cfg.SampleSeed)
	util.Info("Mapping %d tables against %d files (%d sampled)", len(tables), len(files), len(sample))

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mappings = append(mappings, m.mapTable(root, t, files, sample))
	}

	abandoned := 0
	for _, mp := range mappings {
		if mp.IsAbandoned {
			abandoned++
		}
	}
	util.Info("Table analysis complete: %d of %d tables abandoned", abandoned, len(mappings))
	return mappings, nil
}

func (m *Mapper) loadTables(ctx context.Context) ([]TableInfo, error) {
	var tables []TableInfo
	op := "schema." + m.source.Name()
	err := m.retry.Do(ctx, op, func(ctx context.Context) error {
		var err error
		tables, err = m.source.Tables(ctx)
		return err
	})
	return tables, err
}

func (m *Mapper) mapTable(root string, t TableInfo, files, sample []model.FileDescriptor) model.DatabaseTableMapping {
	mapping := model.DatabaseTableMapping{
		TableName:   t.Name,
		Columns:     t.Columns,
		RowCount:    t.RowCount,
		ForeignKeys: t.ForeignKeys,
	}
	p := newTablePatterns(t.Name)

	if repo, ok := m.findRepository(root, p, files); ok {
		mapping.HasRepository = true
		mapping.RepositoryPath = repo
	}

	var lastModified time.Time
	for _, fd := range sample {
		src := m.read(root, fd.Path)
		if src == nil {
			continue
		}
		p.detectCRUD(src, &mapping.CRUDOperations)

		refs := p.references(fd.Path, src)
		if len(refs) == 0 {
			continue
		}
		mapping.UsageCount += len(refs)
		for _, ref := range refs {
			if len(mapping.References) < maxReferences {
				mapping.References = append(mapping.References, ref)
			}
		}
		if fd.LastModified.After(lastModified) {
			lastModified = fd.LastModified
		}
	}
	mapping.LastModified = lastModified

	mapping.Classify(m.cfg.AbandonmentFloor)
	util.Debug("Table %s: repository=%v crud=%+v usage=%d abandoned=%v",
		t.Name, mapping.HasRepository, mapping.CRUDOperations, mapping.UsageCount, mapping.IsAbandoned)
	return mapping
}

// findRepository returns the first data-access file, by path, whose base name
// names the table and whose content references the table literal
func (m *Mapper) findRepository(root string, p *tablePatterns, files []model.FileDescriptor) (string, bool) {
	for _, fd := range files {
		base := normalizeName(strings.TrimSuffix(path.Base(fd.Path), path.Ext(fd.Path)))
		if !p.namedBy(base) || !hasDataAccessMarker(base) {
			continue
		}
		src := m.read(root, fd.Path)
		if src != nil && p.literal.Match(src) {
			return fd.Path, true
		}
	}
	return "", false
}

// read returns file content, cached for the duration of one analysis
func (m *Mapper) read(root, rel string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src, ok := m.contents[rel]; ok {
		return src
	}
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		util.Debug("Skipping unreadable file %s: %v", rel, err)
		src = nil
	}
	m.contents[rel] = src
	return src
}

// SampleFiles picks up to size files with a seeded generator, returned in
// path order. All files are returned when there are no more than size.
func SampleFiles(files []model.FileDescriptor, size int, seed int64) []model.FileDescriptor {
	if size <= 0 || len(files) <= size {
		out := append([]model.FileDescriptor(nil), files...)
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
		return out
	}

	sorted := append([]model.FileDescriptor(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	rng := rand.New(rand.NewSource(seed))
	out := make([]model.FileDescriptor, 0, size)
	for _, i := range rng.Perm(len(sorted))[:size] {
		out = append(out, sorted[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// tablePatterns holds the compiled searches for one table
type tablePatterns struct {
	names   []string // normalized name forms matched against file base names
	literal *regexp.Regexp
	word    *regexp.Regexp
	create  []*regexp.Regexp
	read    []*regexp.Regexp
	update  []*regexp.Regexp
	delete  []*regexp.Regexp
}

func newTablePatterns(table string) *tablePatterns {
	t := regexp.QuoteMeta(table)
	quote := "[`'\"]"
	from := `\.from\(\s*` + quote + t + quote + `\s*\)\s*\.`
	ident := `["` + "`" + `]?` + t + `["` + "`" + `]?`

	forms := nameForms(table)
	alts := make([]string, len(forms))
	for i, f := range forms {
		alts[i] = regexp.QuoteMeta(f)
	}
	prisma := `(?i)prisma\.(?:` + strings.Join(alts, "|") + `)\.`

	return &tablePatterns{
		names:   forms,
		literal: regexp.MustCompile(`(?i)\b` + t + `\b`),
		word:    regexp.MustCompile(`\b` + t + `\b`),
		create: []*regexp.Regexp{
			regexp.MustCompile(from + `(?:insert|upsert)\(`),
			regexp.MustCompile(prisma + `(?:create|createMany|upsert)\(`),
			regexp.MustCompile(`(?i)\binsert\s+into\s+` + ident + `(?:\s|\(|$)`),
		},
		read: []*regexp.Regexp{
			regexp.MustCompile(from + `select\(`),
			regexp.MustCompile(prisma + `(?:findMany|findFirst|findUnique|count|aggregate)\(`),
			regexp.MustCompile(`(?is)\bselect\b[^;]*?\bfrom\s+` + ident + `(?:\s|;|\)|$)`),
		},
		update: []*regexp.Regexp{
			regexp.MustCompile(from + `(?:update|upsert)\(`),
			regexp.MustCompile(prisma + `(?:update|updateMany|upsert)\(`),
			regexp.MustCompile(`(?i)\bupdate\s+` + ident + `\s+set\b`),
		},
		delete: []*regexp.Regexp{
			regexp.MustCompile(from + `delete\(`),
			regexp.MustCompile(prisma + `(?:delete|deleteMany)\(`),
			regexp.MustCompile(`(?i)\bdelete\s+from\s+` + ident + `(?:\s|;|$)`),
		},
	}
}

// namedBy reports whether a normalized base name contains a form of the table name
func (p *tablePatterns) namedBy(base string) bool {
	for _, form := range p.names {
		if strings.Contains(base, form) {
			return true
		}
	}
	return false
}

func (p *tablePatterns) detectCRUD(src []byte, ops *model.CRUDOperations) {
	ops.Create = ops.Create || anyMatch(p.create, src)
	ops.Read = ops.Read || anyMatch(p.read, src)
	ops.Update = ops.Update || anyMatch(p.update, src)
	ops.Delete = ops.Delete || anyMatch(p.delete, src)
}

// references returns one location per whole-word occurrence of the table name
func (p *tablePatterns) references(rel string, src []byte) []model.CodeLocation {
	var refs []model.CodeLocation
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Bytes()
		n := len(p.word.FindAllIndex(text, -1))
		for i := 0; i < n; i++ {
			refs = append(refs, model.CodeLocation{
				FilePath:  rel,
				StartLine: line,
				EndLine:   line,
				Snippet:   snippet(text),
			})
		}
	}
	return refs
}

func anyMatch(patterns []*regexp.Regexp, src []byte) bool {
	for _, re := range patterns {
		if re.Match(src) {
			return true
		}
	}
	return false
}

// nameForms returns the table name with its stemmed and singular forms,
// normalized for comparison with file names: "order_items" gives
// "orderitems" and "orderitem"
func nameForms(table string) []string {
	words := strings.FieldsFunc(strings.ToLower(table), func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(words) == 0 {
		return nil
	}
	head := strings.Join(words[:len(words)-1], "")
	last := words[len(words)-1]

	var forms []string
	seen := make(map[string]bool)
	for _, w := range []string{last, porter2.Stem(last), singular(last)} {
		form := head + w
		if w == "" || seen[form] {
			continue
		}
		seen[form] = true
		forms = append(forms, form)
	}
	return forms
}

func singular(w string) string {
	switch {
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("_", "", "-", "", ".", "").Replace(s)
}

func hasDataAccessMarker(base string) bool {
	for _, marker := range dataAccessMarkers {
		if strings.Contains(base, marker) {
			return true
		}
	}
	return false
}

func snippet(line []byte) string {
	s := strings.TrimSpace(string(line))
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
