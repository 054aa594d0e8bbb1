package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"strconv"
	"strings"
)

// GoExtractor extracts top-level funcs, methods and type declarations from Go source
type GoExtractor struct{}

// NewGoExtractor creates the Go dialect extractor
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

func (e *GoExtractor) Language() string { return "go" }

func (e *GoExtractor) Extensions() []string { return []string{".go"} }

func (e *GoExtractor) Extract(filePath string, src []byte, opts DigestOptions) (*FileUnit, error) {
	fset := token.NewFileSet()
	// object resolution stays on: goIdentifiers relies on Ident.Obj
	var mode parser.Mode
	if opts.IncludeComments {
		mode |= parser.ParseComments
	}

	file, err := parser.ParseFile(fset, filePath, src, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go file: %w", err)
	}

	unit := &FileUnit{Language: e.Language()}
	importNames := make(map[string]bool)
	for _, imp := range file.Imports {
		source, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := path.Base(source)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		importNames[name] = true
		unit.Imports = append(unit.Imports, Import{Name: name, Source: source})
	}

	topLevel := make(map[string]bool)
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				topLevel[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					topLevel[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						topLevel[n.Name] = true
					}
				}
			}
		}
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if recv := receiverType(d); recv != "" {
				name = recv + "." + name
			}
			c := e.candidate(fset, file, d, name, KindFunction, opts)
			c.Exported = d.Name.IsExported()
			c.Identifiers = goIdentifiers(d, importNames, topLevel, d.Name.Name)
			unit.Candidates = append(unit.Candidates, c)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				var node ast.Node = ts
				if len(d.Specs) == 1 {
					node = d
				}
				c := e.candidate(fset, file, node, ts.Name.Name, KindType, opts)
				if _, isStruct := ts.Type.(*ast.StructType); isStruct {
					c.Kind = KindClass
				}
				c.Exported = ts.Name.IsExported()
				c.Identifiers = goIdentifiers(ts, importNames, topLevel, ts.Name.Name)
				unit.Candidates = append(unit.Candidates, c)
			}
		}
	}

	return unit, nil
}

func (e *GoExtractor) candidate(fset *token.FileSet, file *ast.File, node ast.Node, name string, kind CandidateKind, opts DigestOptions) Candidate {
	start := fset.Position(node.Pos()).Line
	end := fset.Position(node.End()).Line

	digest := newDigestBuilder(opts)
	complexity := 1
	ast.Inspect(node, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		digest.add(goNodeKind(n), fset.Position(n.Pos()).Line)
		switch x := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			complexity++
		case *ast.CaseClause:
			if x.List != nil {
				complexity++
			}
		case *ast.CommClause:
			if x.Comm != nil {
				complexity++
			}
		case *ast.BinaryExpr:
			if x.Op == token.LAND || x.Op == token.LOR {
				complexity++
			}
		}
		return true
	})

	if opts.IncludeComments {
		for _, group := range file.Comments {
			if group.Pos() >= node.Pos() && group.End() <= node.End() {
				digest.add("comment", fset.Position(group.Pos()).Line)
			}
		}
	}

	return Candidate{
		Name:       name,
		Kind:       kind,
		StartLine:  start,
		EndLine:    end,
		Complexity: complexity,
		Digest:     digest.String(),
	}
}

func goNodeKind(n ast.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
}

func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

// goIdentifiers collects package selectors (pkg.Name) and references to other
// file-level declarations made inside node
func goIdentifiers(node ast.Node, imports, topLevel map[string]bool, self string) map[string]bool {
	ids := make(map[string]bool)
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SelectorExpr:
			if pkg, ok := x.X.(*ast.Ident); ok && imports[pkg.Name] && pkg.Obj == nil {
				ids[pkg.Name+"."+x.Sel.Name] = true
			} else {
				ast.Inspect(x.X, visit)
			}
			return false
		case *ast.KeyValueExpr:
			if _, ok := x.Key.(*ast.Ident); ok {
				ast.Inspect(x.Value, visit)
				return false
			}
		case *ast.Ident:
			if x.Name == self || x.Name == "_" {
				return true
			}
			if topLevel[x.Name] {
				ids[x.Name] = true
			} else if x.Obj == nil && types.Universe.Lookup(x.Name) == nil && !imports[x.Name] {
				// declared in another file of the package
				ids[x.Name] = true
			}
		}
		return true
	}
	ast.Inspect(node, visit)
	return ids
}
