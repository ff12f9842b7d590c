package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/huangsam/covmap/core/identity"
	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/schema"
)

// testDir is a subdirectory of the input root whose name resolved to a test script.
type testDir struct {
	path   string
	script string
}

// dirResult holds everything produced from one test directory.
// Each worker fills its own slot so no locking is needed.
type dirResult struct {
	records []schema.CoverageRecord
	docs    int
	cached  int
	skipped []schema.SkippedUnit
}

// Walk enumerates the input root, resolves each subdirectory to a test script
// and turns every coverage document inside into records.
//
// Only a failure to read the root itself is returned as an error. Unreadable
// test directories, malformed documents and functions whose counts contradict
// each other are logged, reported in the WalkReport and skipped. Records come out ordered by directory name, then by
// document name, then by position inside the document, whatever cfg.Workers is.
func Walk(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*Accumulator, *schema.WalkReport, error) {
	entries, err := os.ReadDir(cfg.InputRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read input directory %s: %w", cfg.InputRoot, err)
	}

	report := &schema.WalkReport{Skipped: []schema.SkippedUnit{}}
	dirs := make([]testDir, 0, len(entries))
	for _, entry := range entries {
		script, ok := identity.ResolveScript(entry.Name(), cfg.MatchPolicy)
		if !ok {
			report.IgnoredEntries++
			continue
		}
		path := filepath.Join(cfg.InputRoot, entry.Name())
		if !isDirEntry(path, entry) {
			report.IgnoredEntries++
			continue
		}
		dirs = append(dirs, testDir{path: path, script: script})
	}
	report.TestDirs = len(dirs)

	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetDocumentStore()
	}

	results := walkTestDirs(ctx, cfg, store, dirs)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	acc := NewAccumulator()
	for _, res := range results {
		for _, unit := range res.skipped {
			contract.LogWarn("Skipping "+unit.Path, fmt.Errorf("%s", unit.Reason))
		}
		acc.Add(res.records...)
		report.Documents += res.docs
		report.CachedDocs += res.cached
		report.Skipped = append(report.Skipped, res.skipped...)
	}
	report.Records = acc.Len()

	return acc, report, nil
}

// walkTestDirs processes the test directories with a pool of cfg.Workers goroutines.
// The returned slice is indexed like dirs.
func walkTestDirs(ctx context.Context, cfg *contract.Config, store contract.CacheStore, dirs []testDir) []dirResult {
	results := make([]dirResult, len(dirs))
	idxCh := make(chan int, len(dirs))
	var wg sync.WaitGroup

	for range max(cfg.Workers, 1) {
		wg.Go(func() {
			for i := range idxCh {
				if ctx.Err() != nil {
					continue // drain
				}
				results[i] = walkTestDir(cfg, store, dirs[i])
			}
		})
	}

	for i := range dirs {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	return results
}

// walkTestDir turns the coverage documents of one test directory into records.
func walkTestDir(cfg *contract.Config, store contract.CacheStore, dir testDir) dirResult {
	res := dirResult{records: make([]schema.CoverageRecord, 0)}

	entries, err := os.ReadDir(dir.path)
	if err != nil {
		res.skipped = append(res.skipped, schema.SkippedUnit{Path: dir.path, Reason: err.Error()})
		return res
	}

	for _, entry := range entries {
		if !cfg.IsDocument(entry.Name()) {
			continue
		}
		path := filepath.Join(dir.path, entry.Name())
		if !isRegularEntry(path, entry) {
			continue
		}

		doc, cached, err := loadDocument(store, path)
		if err != nil {
			res.skipped = append(res.skipped, schema.SkippedUnit{Path: path, Reason: err.Error()})
			continue
		}
		res.docs++
		if cached {
			res.cached++
		}
		for _, r := range doc.Rejected {
			res.skipped = append(res.skipped, schema.SkippedUnit{Path: path, Reason: r.String()})
		}

		for _, e := range doc.Entries() {
			res.records = append(res.records, schema.CoverageRecord{
				ExecutableName:     doc.DataFile,
				SourceFile:         e.SourceFile,
				FunctionName:       e.FunctionName,
				BasicBlockCoverage: e.Coverage,
				TestScript:         dir.script,
			})
		}
	}

	return res
}

// isDirEntry reports whether the entry is a directory, following symlinks.
func isDirEntry(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isRegularEntry reports whether the entry is a regular file, following symlinks.
func isRegularEntry(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
