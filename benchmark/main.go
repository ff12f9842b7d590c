// Package main provides a performance benchmarking tool for the covmap CLI.
// It generates synthetic coverage dumps of several sizes, maps each one
// multiple times with and without the document cache, treating the first
// cached run as cold and averaging the rest as warm, and writes a CSV summary.
//
// Prerequisites:
// - covmap binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Scratch directory for generated dumps and cache files
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Workers     int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// Dataset describes the shape of a generated coverage dump.
type Dataset struct {
	Name      string
	TestDirs  int
	Documents int // Per test directory
	Functions int // Per document
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     []int
	NoCacheRuns int
	CacheRuns   int
	Datasets    []Dataset
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     []int{1, 4, 14},
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets: []Dataset{
			{Name: "small", TestDirs: 20, Documents: 2, Functions: 50},
			{Name: "medium", TestDirs: 200, Documents: 4, Functions: 200},
			{Name: "large", TestDirs: 1000, Documents: 8, Functions: 400},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range config.Datasets {
		fmt.Printf("Generating %s dataset...\n", ds.Name)
		if err := generateDataset(filepath.Join(config.WorkDir, ds.Name), ds); err != nil {
			fmt.Printf("Failed to generate %s dataset: %v\n", ds.Name, err)
			os.Exit(1)
		}
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the covmap binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("covmap"); err != nil {
		return fmt.Errorf("covmap binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("work dir %s is not usable: %w", config.WorkDir, err)
	}
	return nil
}

// generateDataset writes a synthetic coverage dump under root, skipping work when it already exists
func generateDataset(root string, ds Dataset) error {
	if _, err := os.Stat(root); err == nil {
		return nil
	}

	type function struct {
		Name           string `json:"name"`
		Blocks         int    `json:"blocks"`
		BlocksExecuted int    `json:"blocks_executed"`
	}
	type file struct {
		File      string     `json:"file"`
		Functions []function `json:"functions"`
	}
	type document struct {
		DataFile string `json:"data_file"`
		Files    []file `json:"files"`
	}

	for t := range ds.TestDirs {
		dir := filepath.Join(root, fmt.Sprintf("unit_suite%03d_case%05d", t%50, t))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		for d := range ds.Documents {
			functions := make([]function, ds.Functions)
			for f := range functions {
				blocks := 4 + f%16
				functions[f] = function{
					Name:           fmt.Sprintf("fn_%d_%d", d, f),
					Blocks:         blocks,
					BlocksExecuted: (t + f) % (blocks + 1),
				}
			}
			doc := document{
				DataFile: fmt.Sprintf("lib%d.so", d),
				Files:    []file{{File: fmt.Sprintf("src/module%d.c", d), Functions: functions}},
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			name := filepath.Join(dir, fmt.Sprintf("lib%d.gcov.json", d))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

// runBenchmarks executes all benchmark suites across configured datasets and worker counts
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, workers %v, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, ds := range config.Datasets {
		for _, workers := range config.Workers {
			results = append(results, runBenchmarkSuite(config, ds, workers))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a dataset
func runBenchmarkSuite(config BenchmarkConfig, ds Dataset, workers int) BenchmarkResult {
	fmt.Printf("Running %s dataset with %d workers\n", ds.Name, workers)

	inputDir := filepath.Join(config.WorkDir, ds.Name)
	cacheFile := filepath.Join(config.WorkDir, fmt.Sprintf("%s_w%d_cache.db", ds.Name, workers))
	_ = os.Remove(cacheFile)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, inputDir, cacheBackend, cacheFile, workers, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     ds.Name,
		Workers:     workers,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes covmap multiple times with the specified cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, inputDir, cacheBackend, cacheFile string, workers, numRuns int) (coldTime float64, warmTimes []float64) {
	outputFile := filepath.Join(config.WorkDir, "out.json")
	args := []string{
		"--cache-backend", cacheBackend,
		"--workers", strconv.Itoa(workers),
		"--color", "no",
	}
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", cacheFile)
	}
	args = append(args, inputDir, outputFile)

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("covmap", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Completed in") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("covmap_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "workers", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		row := []string{result.Dataset, strconv.Itoa(result.Workers), result.NoCacheTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-8s %2d workers: No-cache: %s, Cold: %s, Warm: %s\n",
			result.Dataset, result.Workers, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
