package parser

import (
	"errors"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var errNoTree = errors.New("tree-sitter returned no syntax tree")

// grammar pools parsers for one tree-sitter language. Parsers are not safe
// for concurrent use, the pool hands each parse its own.
type grammar struct {
	language *tree_sitter.Language
	pool     sync.Pool
}

func newGrammar(language *tree_sitter.Language) *grammar {
	g := &grammar{language: language}
	g.pool.New = func() any {
		p := tree_sitter.NewParser()
		_ = p.SetLanguage(language)
		return p
	}
	return g
}

func (g *grammar) parse(src []byte) (*tree_sitter.Tree, error) {
	p := g.pool.Get().(*tree_sitter.Parser)
	defer g.pool.Put(p)

	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, errNoTree
	}
	return tree, nil
}

// qualifier describes a member access node (obj.prop) by its field names
type qualifier struct {
	object   string
	property string
}

// tsRules tells measure which node kinds matter for a dialect
type tsRules struct {
	branches    map[string]bool
	logical     map[string]bool
	logicalOps  map[string]bool // nil counts every logical node
	identifiers map[string]bool
	qualified   map[string]qualifier
	jsx         map[string]bool
}

type measurement struct {
	complexity  int
	digest      string
	identifiers map[string]bool
	hasJSX      bool
}

type measurer struct {
	src    []byte
	rules  *tsRules
	opts   DigestOptions
	digest *digestBuilder
	result measurement
}

// measure computes complexity, digest and referenced identifiers of a subtree
func measure(node *tree_sitter.Node, src []byte, rules *tsRules, opts DigestOptions) measurement {
	m := &measurer{
		src:    src,
		rules:  rules,
		opts:   opts,
		digest: newDigestBuilder(opts),
		result: measurement{complexity: 1, identifiers: make(map[string]bool)},
	}
	m.visit(node, true)
	m.result.digest = m.digest.String()
	return m.result
}

func (m *measurer) visit(n *tree_sitter.Node, ref bool) {
	kind := n.Kind()
	if kind == "comment" {
		if m.opts.IncludeComments {
			m.digest.add(kind, startLine(n))
		}
		return
	}
	if n.IsNamed() {
		m.digest.add(kind, startLine(n))
	}

	if m.rules.branches[kind] {
		m.result.complexity++
	}
	if m.rules.logical[kind] {
		if m.rules.logicalOps == nil {
			m.result.complexity++
		} else if op := n.ChildByFieldName("operator"); op != nil && m.rules.logicalOps[op.Kind()] {
			m.result.complexity++
		}
	}
	if m.rules.jsx[kind] {
		m.result.hasJSX = true
	}
	if ref && m.rules.identifiers[kind] {
		m.result.identifiers[nodeText(n, m.src)] = true
	}

	var property *tree_sitter.Node
	if q, ok := m.rules.qualified[kind]; ok {
		obj := n.ChildByFieldName(q.object)
		property = n.ChildByFieldName(q.property)
		if ref && obj != nil && property != nil && m.rules.identifiers[obj.Kind()] {
			m.result.identifiers[nodeText(obj, m.src)+"."+nodeText(property, m.src)] = true
		}
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		m.visit(child, ref && !sameNode(child, property))
	}
}

func sameNode(a, b *tree_sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func nodeText(n *tree_sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

func startLine(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func endLine(n *tree_sitter.Node) int {
	return int(n.EndPosition().Row) + 1
}

func unquote(s string) string {
	return strings.Trim(s, "'\"`")
}

// moduleScope is the set of names a candidate may depend on
type moduleScope struct {
	imports  map[string]bool
	topLevel map[string]bool
}

func newModuleScope() *moduleScope {
	return &moduleScope{imports: make(map[string]bool), topLevel: make(map[string]bool)}
}

// dependencies keeps the identifiers that resolve to an import or another
// top-level declaration of the same file
func (s *moduleScope) dependencies(ids map[string]bool, self string) map[string]bool {
	deps := make(map[string]bool)
	for id := range ids {
		if id == self {
			continue
		}
		if head, _, qualified := strings.Cut(id, "."); qualified {
			if s.imports[head] {
				deps[id] = true
			}
			continue
		}
		if s.imports[id] || s.topLevel[id] {
			deps[id] = true
		}
	}
	return deps
}
