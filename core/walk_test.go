package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/schema"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libmathDoc = `{
  "format_version": "1",
  "gcc_version": "13.2.0",
  "data_file": "libmath.so",
  "files": [
    {
      "file": "src/add.c",
      "functions": [
        {"name": "add", "demangled_name": "add", "blocks": 10, "blocks_executed": 8, "start_line": 3, "end_line": 9, "execution_count": 4},
        {"name": "sub", "demangled_name": "sub", "blocks": 5, "blocks_executed": 0, "start_line": 11, "end_line": 15, "execution_count": 0}
      ]
    }
  ]
}`

// writeTree creates files relative to root, creating parent directories as needed.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// docJSON builds a single-file document with one function per entry of blocks.
func docJSON(dataFile, source string, functions ...[3]any) string {
	type fn struct {
		Name           string `json:"name"`
		Blocks         int    `json:"blocks"`
		BlocksExecuted int    `json:"blocks_executed"`
	}
	fns := make([]fn, 0, len(functions))
	for _, f := range functions {
		fns = append(fns, fn{Name: f[0].(string), Blocks: f[1].(int), BlocksExecuted: f[2].(int)})
	}
	doc := map[string]any{
		"data_file": dataFile,
		"files":     []map[string]any{{"file": source, "functions": fns}},
	}
	data, _ := json.Marshal(doc)
	return string(data)
}

func testConfig(root string, workers int) *contract.Config {
	return &contract.Config{
		InputRoot:      root,
		OutputFile:     "-",
		Output:         schema.JSONOut,
		MatchPolicy:    schema.PrefixMatch,
		DocumentSuffix: schema.DefaultDocumentSuffix,
		Workers:        workers,
		Precision:      contract.DefaultPrecision,
	}
}

func TestWalkSingleDocument(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add/libmath.gcov.json": libmathDoc,
	})

	acc, report, err := Walk(context.Background(), testConfig(root, 1), nil)
	require.NoError(t, err)

	assert.Equal(t, []schema.CoverageRecord{{
		ExecutableName:     "libmath.so",
		SourceFile:         "src/add.c",
		FunctionName:       "add",
		BasicBlockCoverage: 0.8,
		TestScript:         "unit/mathlib/add.sh",
	}}, acc.Records())
	assert.Equal(t, 1, report.TestDirs)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Records)
	assert.Empty(t, report.Skipped)
}

func TestWalkEmptyRoot(t *testing.T) {
	acc, report, err := Walk(context.Background(), testConfig(t.TempDir(), 2), nil)
	require.NoError(t, err)

	records := acc.Records()
	require.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 0, report.TestDirs)

	data, err := json.Marshal(records)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWalkMissingRoot(t *testing.T) {
	_, _, err := Walk(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing"), 1), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalkSkipsNonMatchingEntries(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README/ignored.gcov.json":            libmathDoc,
		"nounderscore/ignored.gcov.json":      libmathDoc,
		"unit_mathlib_add.gcov.json":          libmathDoc, // file, not a directory
		"unit_mathlib_add/libmath.gcov.json":  libmathDoc,
		"unit_mathlib_add/notes.txt":          "not coverage",
		"unit_mathlib_add/libmath.json":       libmathDoc,
		"unit_mathlib_add/nested/x.gcov.json": libmathDoc,
	})

	acc, report, err := Walk(context.Background(), testConfig(root, 1), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, acc.Len())
	assert.Equal(t, 1, report.TestDirs)
	assert.Equal(t, 3, report.IgnoredEntries)
	assert.Equal(t, 1, report.Documents)
	assert.Empty(t, report.Skipped)
}

func TestWalkMalformedDocumentIsolation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add/a.gcov.json": docJSON("liba.so", "a.c", [3]any{"fa", 4, 4}),
		"unit_mathlib_add/b.gcov.json": `{"data_file": "libb.so"}`,
		"unit_mathlib_add/c.gcov.json": `{not json`,
		"unit_mathlib_sub/d.gcov.json": docJSON("libd.so", "d.c", [3]any{"fd", 2, 1}),
	})

	acc, report, err := Walk(context.Background(), testConfig(root, 2), nil)
	require.NoError(t, err)

	records := acc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "fa", records[0].FunctionName)
	assert.Equal(t, "fd", records[1].FunctionName)
	assert.Equal(t, 2, report.Documents)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, filepath.Join(root, "unit_mathlib_add", "b.gcov.json"), report.Skipped[0].Path)
	assert.Contains(t, report.Skipped[0].Reason, "files")
	assert.Equal(t, filepath.Join(root, "unit_mathlib_add", "c.gcov.json"), report.Skipped[1].Path)
}

func TestWalkUnreadableEntries(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add/a.gcov.json": docJSON("liba.so", "a.c", [3]any{"fa", 4, 2}),
		"unit_mathlib_div/d.gcov.json": docJSON("libd.so", "d.c", [3]any{"fd", 4, 1}),
		"unit_mathlib_mul/m.gcov.json": docJSON("libm.so", "m.c", [3]any{"fm", 4, 3}),
		"unit_mathlib_mul/n.gcov.json": docJSON("libn.so", "n.c", [3]any{"fn", 4, 4}),
	})
	lockedDir := filepath.Join(root, "unit_mathlib_div")
	lockedDoc := filepath.Join(root, "unit_mathlib_mul", "m.gcov.json")
	require.NoError(t, os.Chmod(lockedDir, 0))
	require.NoError(t, os.Chmod(lockedDoc, 0))
	t.Cleanup(func() {
		_ = os.Chmod(lockedDir, 0o755)
		_ = os.Chmod(lockedDoc, 0o644)
	})

	for _, workers := range []int{1, 3} {
		acc, report, err := Walk(context.Background(), testConfig(root, workers), nil)
		require.NoError(t, err)

		records := acc.Records()
		require.Len(t, records, 2)
		assert.Equal(t, "fa", records[0].FunctionName)
		assert.Equal(t, "unit/mathlib/add.sh", records[0].TestScript)
		assert.Equal(t, "fn", records[1].FunctionName)
		assert.Equal(t, "unit/mathlib/mul.sh", records[1].TestScript)

		assert.Equal(t, 3, report.TestDirs)
		assert.Equal(t, 2, report.Documents)
		require.Len(t, report.Skipped, 2)
		assert.Equal(t, lockedDir, report.Skipped[0].Path)
		assert.Contains(t, report.Skipped[0].Reason, "permission denied")
		assert.Equal(t, lockedDoc, report.Skipped[1].Path)
		assert.Contains(t, report.Skipped[1].Reason, "permission denied")
	}
}

func TestWalkRejectedFunctions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add/a.gcov.json": docJSON("liba.so", "a.c",
			[3]any{"before", 4, 2}, [3]any{"broken", 2, 5}, [3]any{"after", 2, 2}),
	})

	acc, report, err := Walk(context.Background(), testConfig(root, 1), nil)
	require.NoError(t, err)

	records := acc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "before", records[0].FunctionName)
	assert.Equal(t, "after", records[1].FunctionName)
	assert.Equal(t, 1, report.Documents)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, filepath.Join(root, "unit_mathlib_add", "a.gcov.json"), report.Skipped[0].Path)
	assert.Contains(t, report.Skipped[0].Reason, "function broken: 5 executed exceeds 2 blocks")
}

func TestWalkOrderingAndDeterminism(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := range 12 {
		dir := fmt.Sprintf("unit_suite%02d_case", 11-i)
		files[dir+"/b.gcov.json"] = docJSON("b.so", "b.c", [3]any{"b1", 2, 1}, [3]any{"b2", 3, 3})
		files[dir+"/a.gcov.json"] = docJSON("a.so", "a.c", [3]any{"a1", 4, 1})
	}
	writeTree(t, root, files)

	baseline, _, err := Walk(context.Background(), testConfig(root, 1), nil)
	require.NoError(t, err)
	records := baseline.Records()
	require.Len(t, records, 36)

	// Directory order, then document order, then entry order
	assert.Equal(t, "unit/suite00/case.sh", records[0].TestScript)
	assert.Equal(t, "a1", records[0].FunctionName)
	assert.Equal(t, "b1", records[1].FunctionName)
	assert.Equal(t, "b2", records[2].FunctionName)
	assert.Equal(t, "unit/suite11/case.sh", records[35].TestScript)

	want, err := json.Marshal(records)
	require.NoError(t, err)
	for _, workers := range []int{1, 2, 4, 16} {
		for range 3 {
			acc, _, err := Walk(context.Background(), testConfig(root, workers), nil)
			require.NoError(t, err)
			got, err := json.Marshal(acc.Records())
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got), "workers=%d", workers)
		}
	}
}

func TestWalkMatchPolicy(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add.v2/a.gcov.json": docJSON("a.so", "a.c", [3]any{"fa", 1, 1}),
		"unit_mathlib_add_v2/b.gcov.json": docJSON("b.so", "b.c", [3]any{"fb", 1, 1}),
	})

	cfg := testConfig(root, 1)
	acc, _, err := Walk(context.Background(), cfg, nil)
	require.NoError(t, err)
	records := acc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "unit/mathlib/add.sh", records[0].TestScript)
	assert.Equal(t, "unit_mathlib/add/v2.sh", records[1].TestScript)

	cfg.MatchPolicy = schema.FullMatch
	acc, report, err := Walk(context.Background(), cfg, nil)
	require.NoError(t, err)
	records = acc.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "unit_mathlib/add/v2.sh", records[0].TestScript)
	assert.Equal(t, 1, report.IgnoredEntries)
}

func TestWalkGzipDocuments(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "unit_mathlib_add")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	f, err := os.Create(filepath.Join(dir, "libmath.gcov.json.gz"))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(libmathDoc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	cfg := testConfig(root, 1)
	acc, _, err := Walk(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Len())

	cfg.IncludeGzip = true
	acc, _, err = Walk(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 1, acc.Len())
	assert.Equal(t, "libmath.so", acc.Records()[0].ExecutableName)
}

func TestWalkZeroBlocks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add/a.gcov.json": docJSON("a.so", "a.c", [3]any{"empty", 0, 0}, [3]any{"third", 3, 1}),
	})

	acc, _, err := Walk(context.Background(), testConfig(root, 1), nil)
	require.NoError(t, err)
	records := acc.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "third", records[0].FunctionName)
	assert.InDelta(t, 1.0/3.0, records[0].BasicBlockCoverage, 1e-12)
}

func TestWalkCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"unit_mathlib_add/libmath.gcov.json": libmathDoc,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Walk(ctx, testConfig(root, 1), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkSymlinkedTestDir(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	writeTree(t, target, map[string]string{"libmath.gcov.json": libmathDoc})
	if err := os.Symlink(target, filepath.Join(root, "unit_mathlib_add")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	acc, _, err := Walk(context.Background(), testConfig(root, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Len())
}
