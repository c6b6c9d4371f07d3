// Package modpath turns module references into project-relative file paths.
package modpath

import (
	"path"
	"regexp"
	"strings"
)

// DefaultExtension is the canonical noir source file extension.
const DefaultExtension = ".nr"

// traversalRe matches runs of parent-directory segments.  Every run is
// removed, not resolved: "../../dep" becomes "dep".
var traversalRe = regexp.MustCompile(`(\.\./)+`)

// Normalizer applies extension rules to referenced module names.
type Normalizer struct {
	// Extension is appended to names that lack a recognized extension.
	Extension string
	// Recognized is the set of extensions that are left untouched.  The
	// canonical Extension is always recognized.
	Recognized []string
}

// New returns a Normalizer for the given canonical extension.  An empty
// extension selects DefaultExtension.
func New(ext string, recognized ...string) *Normalizer {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Normalizer{Extension: ext, Recognized: recognized}
}

// HasExtension reports whether name already ends in a recognized extension.
func (n *Normalizer) HasExtension(name string) bool {
	if strings.HasSuffix(name, n.Extension) {
		return true
	}
	for _, ext := range n.Recognized {
		if ext != "" && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// WithExtension appends the canonical extension when name lacks one.
func (n *Normalizer) WithExtension(name string) string {
	if n.HasExtension(name) {
		return name
	}
	return name + n.Extension
}

// TrimExtension removes the first occurrence of the canonical extension from
// name.  This is how a nested module namespace directory is named, so
// "lib/a.nr" yields "lib/a".
func (n *Normalizer) TrimExtension(name string) string {
	return strings.Replace(name, n.Extension, "", 1)
}

// StripTraversal removes every "../" run from name.  It produces the
// absolute-in-project candidate for a reference.
func StripTraversal(name string) string {
	return traversalRe.ReplaceAllString(name, "")
}

// Dir returns the directory of a project-relative file path, or "" for files
// at the project root.
func Dir(file string) string {
	i := strings.LastIndex(file, "/")
	if i < 0 {
		return ""
	}
	return file[:i]
}

// Relative resolves dep against the directory of importer.  ".." segments are
// collapsed normally and never climb above the project root.  The result
// carries no leading separator.
func Relative(importer, dep string) string {
	resolved := path.Join("/", Dir(importer), dep)
	return strings.TrimPrefix(resolved, "/")
}
