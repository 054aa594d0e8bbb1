package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var pythonRules = &tsRules{
	branches: map[string]bool{
		"if_statement":           true,
		"elif_clause":            true,
		"for_statement":          true,
		"while_statement":        true,
		"except_clause":          true,
		"conditional_expression": true,
		"case_clause":            true,
	},
	logical:     map[string]bool{"boolean_operator": true},
	identifiers: map[string]bool{"identifier": true},
	qualified: map[string]qualifier{
		"attribute": {object: "object", property: "attribute"},
	},
}

// PythonExtractor extracts top-level functions and classes from Python source
type PythonExtractor struct {
	grammar *grammar
}

// NewPythonExtractor creates the Python dialect extractor
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{grammar: newGrammar(tree_sitter.NewLanguage(tree_sitter_python.Language()))}
}

func (e *PythonExtractor) Language() string { return "python" }

func (e *PythonExtractor) Extensions() []string { return []string{".py"} }

func (e *PythonExtractor) Extract(path string, src []byte, opts DigestOptions) (*FileUnit, error) {
	tree, err := e.grammar.parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	unit := &FileUnit{Language: e.Language()}
	scope := newModuleScope()
	type pyDecl struct {
		name string
		kind CandidateKind
		span *tree_sitter.Node
	}
	var decls []pyDecl

	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		n := root.NamedChild(i)
		if n == nil {
			continue
		}
		def := n
		if n.Kind() == "decorated_definition" {
			def = n.ChildByFieldName("definition")
			if def == nil {
				continue
			}
		}

		switch def.Kind() {
		case "function_definition", "class_definition":
			name := def.ChildByFieldName("name")
			if name == nil {
				continue
			}
			kind := KindFunction
			if def.Kind() == "class_definition" {
				kind = KindClass
			}
			text := nodeText(name, src)
			scope.topLevel[text] = true
			decls = append(decls, pyDecl{name: text, kind: kind, span: n})
		case "import_statement":
			for _, imp := range pythonImports(def, src, "") {
				scope.imports[imp.Name] = true
				unit.Imports = append(unit.Imports, imp.Import)
			}
		case "import_from_statement":
			module := def.ChildByFieldName("module_name")
			source := ""
			if module != nil {
				source = nodeText(module, src)
			}
			for _, imp := range pythonImports(def, src, source) {
				if module != nil && sameNode(module, imp.node) {
					continue
				}
				scope.imports[imp.Name] = true
				unit.Imports = append(unit.Imports, imp.Import)
			}
		case "expression_statement":
			if a := def.NamedChild(0); a != nil && a.Kind() == "assignment" {
				if left := a.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
					scope.topLevel[nodeText(left, src)] = true
				}
			}
		}
	}

	for _, d := range decls {
		m := measure(d.span, src, pythonRules, opts)
		unit.Candidates = append(unit.Candidates, Candidate{
			Name:        d.name,
			Kind:        d.kind,
			StartLine:   startLine(d.span),
			EndLine:     endLine(d.span),
			Exported:    !strings.HasPrefix(d.name, "_"),
			Complexity:  m.complexity,
			Digest:      m.digest,
			Identifiers: scope.dependencies(m.identifiers, d.name),
		})
	}
	return unit, nil
}

type pythonImport struct {
	Import
	node *tree_sitter.Node
}

// pythonImports lists the names bound by an import statement. "import a.b"
// binds a, "import a.b as c" and "from a import b as c" bind c.
func pythonImports(n *tree_sitter.Node, src []byte, from string) []pythonImport {
	var out []pythonImport
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "dotted_name":
			name := nodeText(c, src)
			source := name
			if from != "" {
				source = from
			} else {
				name, _, _ = strings.Cut(name, ".")
			}
			out = append(out, pythonImport{Import: Import{Name: name, Source: source}, node: c})
		case "aliased_import":
			alias := c.ChildByFieldName("alias")
			target := c.ChildByFieldName("name")
			if alias == nil || target == nil {
				continue
			}
			source := nodeText(target, src)
			if from != "" {
				source = from
			}
			out = append(out, pythonImport{Import: Import{Name: nodeText(alias, src), Source: source}, node: c})
		}
	}
	return out
}
