package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/huangsam/covmap/core"
	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/iocache"
	"github.com/huangsam/covmap/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}

	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	// Profiling notices go to stderr since stdout may carry the records
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profile.Prefix, profile.Prefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profile.Prefix)
	return err
}

// rootCmd maps a directory of per-test coverage reports to a function/test table.
var rootCmd = &cobra.Command{
	Use:   "covmap <input-dir> <output-file>",
	Short: "Map covered functions to the test scripts that exercised them.",
	Long: `covmap walks a directory of per-test gcov JSON reports and writes one record
per (executable, source file, function, test script) with its basic-block coverage.

Layout of <input-dir>:
  <framework>_<suite>_<case>/   one directory per executed test
    <name>.gcov.json            one document per instrumented executable

Each directory name resolves to the test script <framework>/<suite>/<case>.sh.
Directories whose names do not follow the convention are skipped silently.
Malformed documents are reported on stderr and skipped.

Use - as <output-file> to write to stdout.

Examples:
  # Map a coverage dump to JSON
  covmap ./coverage coverage_map.json

  # Require the whole directory name to match the convention
  covmap --match full ./coverage coverage_map.json

  # Browse the mapping as a table
  covmap --output text ./coverage -`,
	Version:            version,
	Args:               cobra.ExactArgs(2),
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PreRunE:            sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteCoverageMap(rootCtx, cfg, cacheManager)
	},
}

// configureViper points Viper at the config file and environment.
func configureViper() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".covmap") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("COVMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configureViper()

	viper.SetDefault("output", schema.JSONOut)
	viper.SetDefault("match", schema.PrefixMatch)
	viper.SetDefault("suffix", schema.DefaultDocumentSuffix)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("cache-backend", schema.NoneBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
}

// loadConfigFile reads the config file if present; a missing file is fine.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// loadRawInput merges defaults, file, env and flags into the raw input.
func loadRawInput() error {
	profilePrefix := viper.GetString("profile")
	if err := contract.ProcessProfilingConfig(profile, profilePrefix); err != nil {
		return fmt.Errorf("failed to process profiling config: %w", err)
	}
	if profile.Enabled {
		if err := startProfiling(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
	}

	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return nil
}

// initStores opens the document cache and history stores named by cfg.
func initStores() error {
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetup unmarshals config and runs validation for a mapping run.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	if err := loadRawInput(); err != nil {
		return err
	}

	// Positional arguments are not handled by Viper
	if len(args) == 2 {
		input.InputRoot = args[0]
		input.OutputFile = args[1]
	}

	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	return initStores()
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// optionsSetup validates every option except the positional paths.
func optionsSetup(_ *cobra.Command, _ []string) error {
	if err := loadRawInput(); err != nil {
		return err
	}
	if err := contract.ProcessAndValidateOptions(cfg, input); err != nil {
		return err
	}
	return initStores()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}

// StopProfiling stops profiling if enabled.
func StopProfiling() error {
	return stopProfiling()
}
