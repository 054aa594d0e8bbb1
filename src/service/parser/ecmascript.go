package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var ecmaRules = &tsRules{
	branches: map[string]bool{
		"if_statement":       true,
		"for_statement":      true,
		"for_in_statement":   true,
		"while_statement":    true,
		"do_statement":       true,
		"switch_case":        true,
		"catch_clause":       true,
		"ternary_expression": true,
	},
	logical:    map[string]bool{"binary_expression": true},
	logicalOps: map[string]bool{"&&": true, "||": true, "??": true},
	identifiers: map[string]bool{
		"identifier":                    true,
		"type_identifier":               true,
		"shorthand_property_identifier": true,
	},
	qualified: map[string]qualifier{
		"member_expression": {object: "object", property: "property"},
	},
	jsx: map[string]bool{
		"jsx_element":              true,
		"jsx_self_closing_element": true,
		"jsx_fragment":             true,
	},
}

// function-valued initializers that make a variable declaration a module
var functionValues = map[string]bool{
	"arrow_function":      true,
	"function_expression": true,
	"function":            true,
	"generator_function":  true,
	"class":               true,
}

// ECMAScriptExtractor handles JavaScript and TypeScript through tree-sitter
type ECMAScriptExtractor struct {
	language   string
	extensions []string
	grammars   map[string]*grammar // by extension
}

// NewJavaScriptExtractor handles .js .jsx .mjs .cjs
func NewJavaScriptExtractor() *ECMAScriptExtractor {
	js := newGrammar(tree_sitter.NewLanguage(tree_sitter_javascript.Language()))
	return &ECMAScriptExtractor{
		language:   "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		grammars:   map[string]*grammar{".js": js, ".jsx": js, ".mjs": js, ".cjs": js},
	}
}

// NewTypeScriptExtractor handles .ts and .tsx
func NewTypeScriptExtractor() *ECMAScriptExtractor {
	return &ECMAScriptExtractor{
		language:   "typescript",
		extensions: []string{".ts", ".tsx"},
		grammars: map[string]*grammar{
			".ts":  newGrammar(tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())),
			".tsx": newGrammar(tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())),
		},
	}
}

func (e *ECMAScriptExtractor) Language() string { return e.language }

func (e *ECMAScriptExtractor) Extensions() []string { return e.extensions }

func (e *ECMAScriptExtractor) Extract(path string, src []byte, opts DigestOptions) (*FileUnit, error) {
	g, ok := e.grammars[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("no %s grammar for %s", e.language, path)
	}
	tree, err := g.parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &ecmaWalker{
		src:      src,
		opts:     opts,
		scope:    newModuleScope(),
		exported: make(map[string]bool),
		unit:     &FileUnit{Language: e.language},
	}
	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		w.statement(root.NamedChild(i), nil, false)
	}
	w.finish()
	return w.unit, nil
}

type ecmaDecl struct {
	name   string
	kind   CandidateKind
	span   *tree_sitter.Node
	body   *tree_sitter.Node
	export bool
}

type ecmaWalker struct {
	src      []byte
	opts     DigestOptions
	scope    *moduleScope
	exported map[string]bool
	decls    []ecmaDecl
	unit     *FileUnit
}

// statement handles one top-level statement. span is the enclosing export
// statement when the declaration is exported.
func (w *ecmaWalker) statement(n, span *tree_sitter.Node, export bool) {
	if n == nil {
		return
	}
	if span == nil {
		span = n
	}

	switch n.Kind() {
	case "import_statement":
		w.importStatement(n)
	case "export_statement":
		w.exportStatement(n)
	case "function_declaration", "generator_function_declaration":
		w.declare(n.ChildByFieldName("name"), KindFunction, span, n, export)
	case "class_declaration", "abstract_class_declaration":
		w.declare(n.ChildByFieldName("name"), KindClass, span, n, export)
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			d := n.NamedChild(i)
			if d == nil || d.Kind() != "variable_declarator" {
				continue
			}
			w.declarator(d, span, export)
		}
	}
}

func (w *ecmaWalker) declare(name *tree_sitter.Node, kind CandidateKind, span, body *tree_sitter.Node, export bool) {
	n := "default"
	if name != nil {
		n = nodeText(name, w.src)
		w.scope.topLevel[n] = true
	}
	w.decls = append(w.decls, ecmaDecl{name: n, kind: kind, span: span, body: body, export: export})
}

func (w *ecmaWalker) declarator(d, span *tree_sitter.Node, export bool) {
	name := d.ChildByFieldName("name")
	value := d.ChildByFieldName("value")
	if name == nil {
		return
	}

	if value != nil && value.Kind() == "call_expression" && w.isRequire(value) {
		w.requireBinding(name, value)
		return
	}
	if name.Kind() != "identifier" {
		return
	}
	w.scope.topLevel[nodeText(name, w.src)] = true
	if value == nil || !w.isFunctionValue(value) {
		return
	}
	kind := KindVariable
	if value.Kind() == "class" {
		kind = KindClass
	}
	w.declare(name, kind, span, d, export)
}

// isFunctionValue accepts function expressions and calls wrapping one,
// such as memo(() => ...) or forwardRef(function (...) {...})
func (w *ecmaWalker) isFunctionValue(value *tree_sitter.Node) bool {
	if functionValues[value.Kind()] {
		return true
	}
	if value.Kind() != "call_expression" {
		return false
	}
	args := value.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		if a := args.NamedChild(i); a != nil && functionValues[a.Kind()] {
			return true
		}
	}
	return false
}

func (w *ecmaWalker) exportStatement(n *tree_sitter.Node) {
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		w.statement(decl, n, true)
		return
	}

	isDefault := false
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == "default" {
			isDefault = true
		}
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch {
		case c.Kind() == "export_clause":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				spec := c.NamedChild(j)
				if spec == nil {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					w.exported[nodeText(name, w.src)] = true
				}
			}
		case c.Kind() == "identifier" && isDefault:
			w.exported[nodeText(c, w.src)] = true
		case isDefault && (functionValues[c.Kind()] || c.Kind() == "function_declaration" || c.Kind() == "class_declaration"):
			kind := KindFunction
			if strings.Contains(c.Kind(), "class") {
				kind = KindClass
			}
			w.declare(c.ChildByFieldName("name"), kind, n, c, true)
		}
	}
}

func (w *ecmaWalker) importStatement(n *tree_sitter.Node) {
	source := ""
	if s := n.ChildByFieldName("source"); s != nil {
		source = unquote(nodeText(s, w.src))
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		clause := n.NamedChild(i)
		if clause == nil || clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			c := clause.NamedChild(j)
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "identifier":
				w.addImport(nodeText(c, w.src), source)
			case "namespace_import":
				for k := uint(0); k < c.NamedChildCount(); k++ {
					if id := c.NamedChild(k); id != nil && id.Kind() == "identifier" {
						w.addImport(nodeText(id, w.src), source)
					}
				}
			case "named_imports":
				for k := uint(0); k < c.NamedChildCount(); k++ {
					spec := c.NamedChild(k)
					if spec == nil || spec.Kind() != "import_specifier" {
						continue
					}
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = spec.ChildByFieldName("name")
					}
					if local != nil {
						w.addImport(nodeText(local, w.src), source)
					}
				}
			}
		}
	}
}

func (w *ecmaWalker) isRequire(call *tree_sitter.Node) bool {
	fn := call.ChildByFieldName("function")
	return fn != nil && fn.Kind() == "identifier" && nodeText(fn, w.src) == "require"
}

func (w *ecmaWalker) requireBinding(name, call *tree_sitter.Node) {
	source := ""
	if args := call.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		source = unquote(nodeText(args.NamedChild(0), w.src))
	}
	switch name.Kind() {
	case "identifier":
		w.addImport(nodeText(name, w.src), source)
	case "object_pattern":
		for i := uint(0); i < name.NamedChildCount(); i++ {
			p := name.NamedChild(i)
			if p == nil {
				continue
			}
			switch p.Kind() {
			case "shorthand_property_identifier_pattern":
				w.addImport(nodeText(p, w.src), source)
			case "pair_pattern":
				if v := p.ChildByFieldName("value"); v != nil && v.Kind() == "identifier" {
					w.addImport(nodeText(v, w.src), source)
				}
			}
		}
	}
}

func (w *ecmaWalker) addImport(name, source string) {
	w.scope.imports[name] = true
	w.unit.Imports = append(w.unit.Imports, Import{Name: name, Source: source})
}

// finish measures declarations once the whole file scope is known
func (w *ecmaWalker) finish() {
	for _, d := range w.decls {
		m := measure(d.body, w.src, ecmaRules, w.opts)
		w.unit.Candidates = append(w.unit.Candidates, Candidate{
			Name:        d.name,
			Kind:        d.kind,
			StartLine:   startLine(d.span),
			EndLine:     endLine(d.span),
			Exported:    d.export || w.exported[d.name],
			Complexity:  m.complexity,
			Digest:      m.digest,
			Identifiers: w.scope.dependencies(m.identifiers, d.name),
			HasJSX:      m.hasJSX,
		})
	}
}
