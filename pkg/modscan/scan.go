// Package modscan extracts module directives from noir source text.  It is a
// shallow textual scan: syntax errors elsewhere in the file are ignored.
package modscan

import (
	"iter"
	"regexp"
)

// directiveRe matches `mod <ident> [= "<path>"] ;` with arbitrary whitespace.
// Single or double quotes are accepted around the path.
var directiveRe = regexp.MustCompile(`mod\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*(=\s*["'](.*?)["'])?\s*;`)

// Directive is a single module reference found in source text.
type Directive struct {
	// Ident is the bare module identifier (`foo` in `mod foo;`).
	Ident string
	// Path is the quoted path, if present (`sub/bar` in `mod bar = "sub/bar";`).
	Path string
	// Offset is the byte offset of the directive in the scanned text.
	Offset int
}

// Module returns the referenced module name: the quoted path when given,
// otherwise the identifier.
func (d Directive) Module() string {
	if d.Path != "" {
		return d.Path
	}
	return d.Ident
}

// Scan returns a lazy sequence of directives in order of first occurrence.
// Duplicates are yielded as many times as they appear.
func Scan(content string) iter.Seq[Directive] {
	return func(yield func(Directive) bool) {
		rest := content
		base := 0
		for {
			loc := directiveRe.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			d := Directive{
				Ident:  rest[loc[2]:loc[3]],
				Offset: base + loc[0],
			}
			if loc[6] >= 0 {
				d.Path = rest[loc[6]:loc[7]]
			}
			if !yield(d) {
				return
			}
			base += loc[1]
			rest = rest[loc[1]:]
		}
	}
}

// Modules returns a lazy sequence of referenced module names.
func Modules(content string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for d := range Scan(content) {
			if !yield(d.Module()) {
				return
			}
		}
	}
}

// HasDirectives reports whether content declares at least one module.
func HasDirectives(content string) bool {
	return directiveRe.MatchString(content)
}
