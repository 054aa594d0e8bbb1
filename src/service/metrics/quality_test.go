package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/model"
)

func TestMaintainabilityIndex(t *testing.T) {
	small := module(10, 1, 0)
	assert.InDelta(t, 71.05, MaintainabilityIndex(small), 0.05)

	large := module(200, 20, 10)
	assert.InDelta(t, 27.1, MaintainabilityIndex(large), 0.1)
}

func TestQualityScore(t *testing.T) {
	t.Run("documented go module with test", func(t *testing.T) {
		c := NewCalculator("", []string{"billing/total.go", "billing/total_test.go"})
		m := module(10, 1, 0)
		m.ModuleName, m.Language, m.FilePath = "Total", "go", "billing/total.go"

		assert.Equal(t, 100.0, c.QualityScore(m, "// Total sums items\nfunc Total() {}"))
	})

	t.Run("undocumented go module without test", func(t *testing.T) {
		c := NewCalculator("", []string{"billing/total.go"})
		m := module(10, 1, 0)
		m.ModuleName, m.Language, m.FilePath = "Total", "go", "billing/total.go"

		assert.Equal(t, 85.0, c.QualityScore(m, "func Total() {}"))
	})

	t.Run("python naming and syntax", func(t *testing.T) {
		c := NewCalculator("", nil)
		m := module(10, 1, 0)
		m.ModuleName, m.Language, m.FilePath, m.Type = "BadName", "python", "app/x.py", model.ModuleFunction

		assert.Equal(t, 65.0, c.QualityScore(m, "def BadName(x):\n    return x"))
	})

	t.Run("complexity penalty is capped", func(t *testing.T) {
		c := NewCalculator("", []string{"a/b.test.ts"})
		m := module(200, 40, 10)
		m.ModuleName, m.Language, m.FilePath = "handle", "typescript", "a/b.ts"

		assert.Equal(t, 70.0, c.QualityScore(m, "/** docs */\nconst handle = () => {}"))
	})
}

func TestHasColocatedTest(t *testing.T) {
	c := NewCalculator("", []string{
		"pkg/a_test.go",
		"src/__tests__/Card.test.tsx",
		"app/tests/test_orders.py",
		"lib/util.spec.js",
	})

	assert.True(t, c.HasColocatedTest("pkg/a.go"))
	assert.True(t, c.HasColocatedTest("src/Card.tsx"))
	assert.True(t, c.HasColocatedTest("app/orders.py"))
	assert.True(t, c.HasColocatedTest("lib/util.js"))
	assert.False(t, c.HasColocatedTest("pkg/b.go"))
}

func TestAverageQuality(t *testing.T) {
	root := t.TempDir()
	src := "package a\n\n// F does things\nfunc F() {\n" + strings.Repeat("\tprintln()\n", 8) + "}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(src), 0o644))

	c := NewCalculator(root, []string{"a.go"})
	m := module(10, 1, 0)
	m.ModuleName, m.Language, m.FilePath, m.StartLine, m.EndLine = "F", "go", "a.go", 4, 13

	missing := m
	missing.FilePath = "gone.go"

	// documented, no test: 100 - 15 + 10
	assert.Equal(t, 95.0, c.AverageQuality([]model.CodeModule{m, missing}))
	assert.Equal(t, 0.0, c.AverageQuality(nil))
}

func TestHasColocatedTest_FindsUnscannedTestFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "calc.go"), []byte("package pkg\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "calc_test.go"), []byte("package pkg\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg", "other_test.go"), 0o755))

	// test files are left out of the scanned list
	c := NewCalculator(root, []string{"pkg/calc.go"})
	assert.True(t, c.HasColocatedTest("pkg/calc.go"))
	assert.True(t, c.HasColocatedTest("pkg/calc.go"))
	assert.False(t, c.HasColocatedTest("pkg/other.go"))
	assert.False(t, c.HasColocatedTest("pkg/missing.go"))
}

func TestModuleQuality(t *testing.T) {
	root := t.TempDir()
	src := "package a\n\nfunc F() {\n" + strings.Repeat("\tprintln()\n", 8) + "}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(src), 0o644))

	c := NewCalculator(root, []string{"a.go"})
	m := module(10, 1, 0)
	m.ModuleName, m.Language, m.FilePath, m.StartLine, m.EndLine = "F", "go", "a.go", 3, 12

	// undocumented, no test: 100 - 10 - 15 + 10
	assert.Equal(t, 85.0, c.ModuleQuality(m))

	require.NoError(t, os.WriteFile(filepath.Join(root, "a_test.go"), []byte("package a\n"), 0o644))
	// a fresh calculator sees the new test file
	assert.Equal(t, 100.0, NewCalculator(root, []string{"a.go"}).ModuleQuality(m))

	m.FilePath = "gone.go"
	assert.Equal(t, 100.0, c.ModuleQuality(m))
}
