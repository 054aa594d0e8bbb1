package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/model"
)

const goBilling = `package billing

import (
	"fmt"
	"strings"
)

func Total(items []int, verbose bool) int {
	sum := 0
	for _, v := range items {
		if v > 0 && verbose {
			fmt.Println(v)
		}
		sum += v
	}
	name := strings.TrimSpace(" total ")
	_ = name
	return sum
}

func tiny() int { return 1 }
`

const jsxCard = `import React from 'react';
import { formatPrice as fmt } from './fmt';

export function UserCard(props) {
  const price = fmt(props.price);
  if (!price) {
    return null;
  }
  return (
    <div className="card">
      <span>{price}</span>
    </div>
  );
}
`

const pyRepository = `import os
from typing import List as L

class OrderRepository:
    def __init__(self, db):
        self.db = db

    def find(self, ids):
        out = []
        for i in ids:
            if i and os.path.exists(i):
                out.append(i)
        return out
`

func tenLineFunction(name string) string {
	var b strings.Builder
	b.WriteString("function " + name + "(a) {\n")
	for i := 0; i < 8; i++ {
		b.WriteString("  a = a + 1;\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func writeFile(t *testing.T, root, rel, content string) model.FileDescriptor {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return model.FileDescriptor{
		Path:         rel,
		Size:         int64(len(content)),
		Extension:    filepath.Ext(rel),
		LastModified: time.Now(),
	}
}

func TestParseSource_Go(t *testing.T) {
	p := New(DefaultOptions())

	modules, err := p.ParseSource("billing/total.go", []byte(goBilling), time.Time{})
	require.NoError(t, err)
	require.Len(t, modules, 1, "tiny() is below the minimum module size")

	m := modules[0]
	assert.Equal(t, "Total", m.ModuleName)
	assert.Equal(t, model.ModuleFunction, m.Type)
	assert.Equal(t, "go", m.Language)
	assert.True(t, m.Exported)
	assert.Equal(t, 8, m.StartLine)
	assert.Equal(t, 19, m.EndLine)
	assert.Equal(t, m.EndLine-m.StartLine+1, m.Metrics.LinesOfCode)
	assert.Equal(t, 4, m.Metrics.CyclomaticComplexity, "range, if and && add one each")
	assert.Equal(t, []string{"fmt.Println", "strings.TrimSpace"}, m.Dependencies)
	assert.Equal(t, 2, m.Metrics.DependencyCount)
	assert.NotEmpty(t, m.SimplifiedAST)
	assert.Equal(t, DigestHash(m.SimplifiedAST), m.DigestHash)
	assert.Equal(t, ModuleID("billing/total.go", "Total", 8), m.ID)
}

func TestParseSource_GoMethodsAndTypes(t *testing.T) {
	src := `package store

type UserStore struct {
	rows map[string]string
}

func (s *UserStore) Get(id string) (string, bool) {
	if s.rows == nil {
		return "", false
	}
	v, ok := s.rows[id]
	return v, ok
}
`
	p := New(Options{MinModuleSize: 3})

	modules, err := p.ParseSource("store/user.go", []byte(src), time.Time{})
	require.NoError(t, err)
	require.Len(t, modules, 2)

	assert.Equal(t, "UserStore", modules[0].ModuleName)
	assert.Equal(t, model.ModuleRepository, modules[0].Type)
	assert.Equal(t, "UserStore.Get", modules[1].ModuleName)
	assert.Contains(t, modules[1].Dependencies, "UserStore")
}

func TestParseSource_JSXComponent(t *testing.T) {
	p := New(Options{MinModuleSize: 5})

	modules, err := p.ParseSource("src/components/UserCard.jsx", []byte(jsxCard), time.Time{})
	require.NoError(t, err)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "UserCard", m.ModuleName)
	assert.Equal(t, model.ModuleComponent, m.Type)
	assert.Equal(t, "javascript", m.Language)
	assert.True(t, m.Exported)
	assert.Equal(t, 4, m.StartLine)
	assert.Equal(t, 14, m.EndLine)
	assert.Equal(t, 11, m.Metrics.LinesOfCode)
	assert.Equal(t, 2, m.Metrics.CyclomaticComplexity)
	assert.Contains(t, m.Dependencies, "fmt")
}

func TestParseSource_ArrowFunctionService(t *testing.T) {
	src := `const api = require('./api');

const paymentService = async (order) => {
  const total = order.items.length > 0 ? order.total : 0;
  try {
    await api.charge(order.id, total);
  } catch (err) {
    return false;
  }
  return true;
};

module.exports = { paymentService };
`
	p := New(Options{MinModuleSize: 5})

	modules, err := p.ParseSource("lib/payments.js", []byte(src), time.Time{})
	require.NoError(t, err)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "paymentService", m.ModuleName)
	assert.Equal(t, model.ModuleService, m.Type)
	assert.False(t, m.Exported)
	assert.Equal(t, 3, m.Metrics.CyclomaticComplexity, "ternary and catch add one each")
	assert.Contains(t, m.Dependencies, "api")
	assert.Contains(t, m.Dependencies, "api.charge")
}

func TestParseSource_TypeScriptClass(t *testing.T) {
	src := `import { Db } from './db';

export class InvoiceManager {
  constructor(private db: Db) {}

  open(id: string): boolean {
    for (const row of this.db.rows) {
      if (row.id === id || row.alias === id) {
        return true;
      }
    }
    return false;
  }
}
`
	p := New(Options{MinModuleSize: 5})

	modules, err := p.ParseSource("src/invoice.ts", []byte(src), time.Time{})
	require.NoError(t, err)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "InvoiceManager", m.ModuleName)
	assert.Equal(t, model.ModuleService, m.Type)
	assert.Equal(t, "typescript", m.Language)
	assert.True(t, m.Exported)
	assert.Equal(t, 3, m.StartLine)
	assert.Equal(t, 14, m.EndLine)
	assert.Contains(t, m.Dependencies, "Db")
}

func TestParseSource_Python(t *testing.T) {
	p := New(Options{MinModuleSize: 5})

	modules, err := p.ParseSource("app/orders.py", []byte(pyRepository), time.Time{})
	require.NoError(t, err)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "OrderRepository", m.ModuleName)
	assert.Equal(t, model.ModuleRepository, m.Type)
	assert.Equal(t, "python", m.Language)
	assert.Equal(t, 4, m.StartLine)
	assert.Equal(t, 13, m.EndLine)
	assert.Equal(t, 10, m.Metrics.LinesOfCode)
	assert.Equal(t, 4, m.Metrics.CyclomaticComplexity, "for, if and boolean operator add one each")
	assert.Contains(t, m.Dependencies, "os")
	assert.Contains(t, m.Dependencies, "os.path")
	assert.NotContains(t, m.Dependencies, "L")
}

func TestParseSource_LinesOfCodeInvariant(t *testing.T) {
	p := New(Options{MinModuleSize: 1})
	fixtures := map[string]string{
		"a/total.go":     goBilling,
		"a/UserCard.jsx": jsxCard,
		"a/orders.py":    pyRepository,
		"a/ten.js":       tenLineFunction("ten") + tenLineFunction("eleven"),
	}

	for path, src := range fixtures {
		modules, err := p.ParseSource(path, []byte(src), time.Time{})
		require.NoError(t, err, path)
		require.NotEmpty(t, modules, path)
		for _, m := range modules {
			assert.Equal(t, m.EndLine-m.StartLine+1, m.Metrics.LinesOfCode, "%s %s", path, m.ModuleName)
			assert.GreaterOrEqual(t, m.Metrics.CyclomaticComplexity, 1)
			assert.True(t, m.Type.Valid())
		}
	}
}

func TestParseSource_MinModuleSizeDiscardsEverything(t *testing.T) {
	p := New(Options{MinModuleSize: 50})
	src := tenLineFunction("first") + "\n" + tenLineFunction("second")

	modules, err := p.ParseSource("lib/small.js", []byte(src), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, modules)
}

func TestParseSource_IdenticalBodiesShareDigest(t *testing.T) {
	p := New(Options{MinModuleSize: 5})
	src := tenLineFunction("dup")

	a, err := p.ParseSource("a/dup.js", []byte(src), time.Time{})
	require.NoError(t, err)
	b, err := p.ParseSource("b/dup.js", []byte(src), time.Time{})
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].SimplifiedAST, b[0].SimplifiedAST)
	assert.Equal(t, a[0].DigestHash, b[0].DigestHash)
	assert.NotEqual(t, a[0].ID, b[0].ID)
}

func TestParseSource_CommentsInDigest(t *testing.T) {
	src := "function f(a) {\n  // bump\n  a = a + 1;\n  return a;\n}\n"
	plain := New(Options{MinModuleSize: 1})
	withComments := New(Options{MinModuleSize: 1, Digest: DigestOptions{IncludeComments: true}})

	a, err := plain.ParseSource("f.js", []byte(src), time.Time{})
	require.NoError(t, err)
	b, err := withComments.ParseSource("f.js", []byte(src), time.Time{})
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Less(t, len([]rune(a[0].SimplifiedAST)), len([]rune(b[0].SimplifiedAST)))
}

func TestParseSource_DigestCap(t *testing.T) {
	p := New(Options{MinModuleSize: 1, Digest: DigestOptions{MaxLength: 5}})

	modules, err := p.ParseSource("billing/total.go", []byte(goBilling), time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, modules)
	assert.Len(t, []rune(modules[0].SimplifiedAST), 5)
}

func TestParseSource_SyntaxError(t *testing.T) {
	p := New(DefaultOptions())

	modules, err := p.ParseSource("broken.go", []byte("package x\nfunc {"), time.Time{})
	require.Error(t, err)
	assert.Empty(t, modules)
	assert.Equal(t, model.ErrParse, model.CodeOf(err))
	assert.True(t, model.IsRecoverable(err))
}

func TestParseFile_CachesPerPath(t *testing.T) {
	root := t.TempDir()
	fd := writeFile(t, root, "billing/total.go", goBilling)
	p := New(DefaultOptions())

	first, err := p.ParseFile(context.Background(), root, fd)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// the cached result survives the file disappearing
	require.NoError(t, os.Remove(filepath.Join(root, "billing", "total.go")))
	second, err := p.ParseFile(context.Background(), root, fd)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	hits, misses := p.Cache().Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	p.Reset()
	assert.Equal(t, 0, p.Cache().Len())
}

func TestParseFile_Errors(t *testing.T) {
	root := t.TempDir()
	p := New(DefaultOptions())

	t.Run("missing file", func(t *testing.T) {
		_, err := p.ParseFile(context.Background(), root, model.FileDescriptor{Path: "gone.go"})
		require.Error(t, err)
		assert.Equal(t, model.ErrFileAccess, model.CodeOf(err))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		fd := writeFile(t, root, "notes.rb", "puts 1\n")
		modules, err := p.ParseFile(context.Background(), root, fd)
		require.NoError(t, err)
		assert.Empty(t, modules)
	})

	t.Run("parse error is cached as empty", func(t *testing.T) {
		fd := writeFile(t, root, "broken.go", "package x\nfunc {")
		modules, err := p.ParseFile(context.Background(), root, fd)
		require.Error(t, err)
		assert.Empty(t, modules)

		modules, err = p.ParseFile(context.Background(), root, fd)
		require.NoError(t, err)
		assert.Empty(t, modules)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.ParseFile(ctx, root, model.FileDescriptor{Path: "x.go"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSupportedExtensions(t *testing.T) {
	p := New(DefaultOptions())
	assert.Equal(t, []string{".cjs", ".go", ".js", ".jsx", ".mjs", ".py", ".ts", ".tsx"}, p.SupportedExtensions())
	assert.True(t, p.Supports("a/B.TSX"))
	assert.False(t, p.Supports("a/b.rb"))
}
