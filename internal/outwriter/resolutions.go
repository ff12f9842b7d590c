package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/covmap/core/identity"
	"github.com/huangsam/covmap/schema"
)

// skipMarker is printed for names that do not resolve to a test script.
const skipMarker = "skip"

// WriteResolutions prints one "<name>\t<script>" line per name, with skipMarker
// in place of the script for names the policy rejects.
func WriteResolutions(w io.Writer, names []string, policy schema.MatchPolicy) error {
	for _, name := range names {
		script, ok := identity.ResolveScript(name, policy)
		if !ok {
			script = skipMarker
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", name, script); err != nil {
			return err
		}
	}
	return nil
}
