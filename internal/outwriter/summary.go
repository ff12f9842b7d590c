package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/schema"
)

// PrintRunSummary prints a short run summary to stderr.
func PrintRunSummary(report *schema.WalkReport, cfg *contract.Config, duration time.Duration) {
	writeRunSummary(os.Stderr, report, cfg, duration)
}

// writeRunSummary writes the run summary, colored when cfg.UseColors is set.
func writeRunSummary(w io.Writer, report *schema.WalkReport, cfg *contract.Config, duration time.Duration) {
	if report == nil {
		return
	}

	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow, color.Bold)
	dim := color.New(color.Faint)
	if !cfg.UseColors {
		ok.DisableColor()
		warn.DisableColor()
		dim.DisableColor()
	} else {
		ok.EnableColor()
		warn.EnableColor()
		dim.EnableColor()
	}

	_, _ = fmt.Fprintf(w, "%s %d records from %d documents in %d test directories\n",
		ok.Sprint("Mapped"), report.Records, report.Documents, report.TestDirs)
	if report.CachedDocs > 0 {
		_, _ = fmt.Fprintf(w, "%s %d documents served from %s cache\n",
			dim.Sprint("Cached"), report.CachedDocs, cfg.CacheBackend)
	}
	if n := len(report.Skipped); n > 0 {
		_, _ = fmt.Fprintf(w, "%s %d units (see warnings above)\n", warn.Sprint("Skipped"), n)
	}
	_, _ = fmt.Fprintf(w, "%s in %v with %d workers (match: %s)\n",
		dim.Sprint("Completed"), duration.Round(time.Millisecond), cfg.Workers, cfg.MatchPolicy)
}
