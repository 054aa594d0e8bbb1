package parser

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// CandidateKind is the syntactic form a candidate module was declared with
type CandidateKind string

const (
	KindFunction CandidateKind = "function"
	KindClass    CandidateKind = "class"
	KindVariable CandidateKind = "variable" // variable bound function expression
	KindType     CandidateKind = "type"
)

// Import is an identifier brought into a file's scope from elsewhere
type Import struct {
	Name   string // local name used in the file
	Source string
}

// Candidate is a top-level declaration before size filtering and classification
type Candidate struct {
	Name        string
	Kind        CandidateKind
	StartLine   int
	EndLine     int
	Exported    bool
	Complexity  int
	Digest      string
	Identifiers map[string]bool
	HasJSX      bool
}

// FileUnit is everything an extractor found in one file
type FileUnit struct {
	Language   string
	Imports    []Import
	Candidates []Candidate
}

// DigestOptions controls what goes into the structural digest
type DigestOptions struct {
	MaxLength       int
	IncludeComments bool
	IncludeLayout   bool
}

// Extractor turns the source of one dialect into candidate modules.
// New dialects are supported by registering another Extractor.
type Extractor interface {
	Language() string
	Extensions() []string
	Extract(path string, src []byte, opts DigestOptions) (*FileUnit, error)
}

// DefaultExtractors returns the extractors for every supported dialect
func DefaultExtractors() []Extractor {
	return []Extractor{
		NewGoExtractor(),
		NewJavaScriptExtractor(),
		NewTypeScriptExtractor(),
		NewPythonExtractor(),
	}
}

// LayoutMarker separates source lines in a digest built with IncludeLayout
const LayoutMarker = '\n'

// CommentMarker is the digest rune of a comment node
var CommentMarker = kindRune("comment")

// digestBuilder accumulates node kinds as single runes so that edit distance
// over the digest is edit distance over the node sequence
type digestBuilder struct {
	opts     DigestOptions
	sb       strings.Builder
	n        int
	lastLine int
}

func newDigestBuilder(opts DigestOptions) *digestBuilder {
	return &digestBuilder{opts: opts}
}

func (d *digestBuilder) add(kind string, line int) {
	if d.opts.MaxLength > 0 && d.n >= d.opts.MaxLength {
		return
	}
	if d.opts.IncludeLayout && d.lastLine != 0 && line != d.lastLine {
		d.sb.WriteRune(LayoutMarker)
	}
	d.lastLine = line
	d.sb.WriteRune(kindRune(kind))
	d.n++
}

func (d *digestBuilder) String() string {
	return d.sb.String()
}

// kindRune maps a node kind onto the Unicode private use area. The mapping
// is stable across runs so persisted digests stay comparable.
func kindRune(kind string) rune {
	return rune(0xE000 + xxhash.Sum64String(kind)%0x1900)
}

// DigestHash is the hash used for the exact-digest fast path
func DigestHash(digest string) uint64 {
	return xxhash.Sum64String(digest)
}

func isExportedName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
