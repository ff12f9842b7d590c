package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Coverage label constants.
const (
	FullValue     = "Full"     // Every block executed
	HighValue     = "High"     // High value
	ModerateValue = "Moderate" // Moderate value
	LowValue      = "Low"      // Low value
)

// Color variables for console output.
var (
	FullColor     = color.New(color.FgGreen, color.Bold) // FullColor marks complete coverage.
	HighColor     = color.New(color.FgCyan)              // HighColor marks mostly covered functions.
	ModerateColor = color.New(color.FgYellow)            // ModerateColor represents standard caution, not bold.
	LowColor      = color.New(color.FgRed)               // LowColor marks barely touched functions.
)

// GetPlainLabel returns a plain text label for a basic block coverage ratio
// in the range [0, 1]. This is the core logic used for CSV and table printing.
func GetPlainLabel(ratio float64) string {
	switch {
	case ratio >= 1:
		return FullValue
	case ratio >= 0.75:
		return HighValue
	case ratio >= 0.4:
		return ModerateValue
	default:
		return LowValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(ratio float64) string {
	text := GetPlainLabel(ratio)

	switch text {
	case FullValue:
		return FullColor.Sprint(text)
	case HighValue:
		return HighColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	default: // "Low"
		return LowColor.Sprint(text)
	}
}

// IsStdout reports whether the output path refers to standard output.
func IsStdout(filePath string) bool {
	return filePath == "" || filePath == "-"
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path or "-" selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if IsStdout(filePath) {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the document cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".covmap_cache.db"
	}
	return filepath.Join(homeDir, ".covmap_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".covmap_history.db"
	}
	return filepath.Join(homeDir, ".covmap_history.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix and one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
