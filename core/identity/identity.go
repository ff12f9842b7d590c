// Package identity recovers test identity from coverage output directory names.
//
// A test directory is named FRAMEWORK_SUITE_CASE, where FRAMEWORK holds only word
// characters and SUITE and CASE may also hold hyphens. The identity maps back to
// the test script FRAMEWORK/SUITE/CASE.sh.
package identity

import (
	"fmt"
	"regexp"

	"github.com/huangsam/covmap/schema"
)

// wordClass is a Unicode word character: any letter, any number, or an underscore.
// Combining marks are not word characters, so a decomposed "e\u0301" ends a segment.
const wordClass = `\p{L}\p{N}_`

// Underscores bind to the leftmost group first, so "a_b_c_d" resolves to a_b/c/d.sh.
var (
	segments      = `([` + wordClass + `]+)_([` + wordClass + `-]+)_([` + wordClass + `-]+)`
	prefixPattern = regexp.MustCompile(`^` + segments)
	fullPattern   = regexp.MustCompile(`^` + segments + `$`)
)

// Identity is the (framework, suite, case) triple encoded in a directory name.
type Identity struct {
	Framework string `json:"framework"`
	Suite     string `json:"suite"`
	Case      string `json:"case"`
}

// Script returns the canonical test script path for the identity.
func (id Identity) Script() string {
	return fmt.Sprintf("%s/%s/%s.sh", id.Framework, id.Suite, id.Case)
}

// Resolve splits a directory name into its test identity.
// It returns false when the name does not follow the convention; callers treat
// that as an entry to skip rather than an error.
func Resolve(name string, policy schema.MatchPolicy) (Identity, bool) {
	pattern := prefixPattern
	if policy == schema.FullMatch {
		pattern = fullPattern
	}

	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return Identity{}, false
	}
	return Identity{Framework: m[1], Suite: m[2], Case: m[3]}, true
}

// ResolveScript is a convenience wrapper returning only the script path.
func ResolveScript(name string, policy schema.MatchPolicy) (string, bool) {
	id, ok := Resolve(name, policy)
	if !ok {
		return "", false
	}
	return id.Script(), true
}
