package depresolve

import (
	"slices"

	"github.com/stackb/noir-stage/pkg/collections"
)

// Traversal is the mutable state of one top-level resolution.  It maps each
// visiting file to the dependency paths resolved while processing it.  A
// Traversal is owned by a single resolution call tree and must not be shared
// between concurrent resolutions.
type Traversal struct {
	visited map[string][]string
	// order remembers first-visit order of visited keys.
	order  []string
	cycles []CircularDependency
	staged map[string]string
	// ancestors is the active import chain, used by strict cycle checks.
	ancestors collections.StringStack
}

// NewTraversal returns an empty Traversal.
func NewTraversal() *Traversal {
	return &Traversal{
		visited: make(map[string][]string),
		staged:  make(map[string]string),
	}
}

// Visit appends dep to the dependencies recorded for file.
func (t *Traversal) Visit(file, dep string) {
	if _, ok := t.visited[file]; !ok {
		t.order = append(t.order, file)
	}
	t.visited[file] = append(t.visited[file], dep)
}

// Visited returns the dependencies recorded for file.
func (t *Traversal) Visited(file string) []string {
	return t.visited[file]
}

// HasVisited reports whether dep is recorded under file.
func (t *Traversal) HasVisited(file, dep string) bool {
	return slices.Contains(t.visited[file], dep)
}

// VisitedMap returns a copy of the visited map.
func (t *Traversal) VisitedMap() map[string][]string {
	out := make(map[string][]string, len(t.visited))
	for k, v := range t.visited {
		out[k] = slices.Clone(v)
	}
	return out
}

// Files returns the visited keys in first-visit order.
func (t *Traversal) Files() []string {
	return slices.Clone(t.order)
}

// Cycles returns the circular dependencies detected so far.
func (t *Traversal) Cycles() []CircularDependency {
	return slices.Clone(t.cycles)
}

// Staged returns a staged path -> content copy of what was written to the
// staging store.
func (t *Traversal) Staged() map[string]string {
	out := make(map[string]string, len(t.staged))
	for k, v := range t.staged {
		out[k] = v
	}
	return out
}

func (t *Traversal) recordCycle(c CircularDependency) {
	t.cycles = append(t.cycles, c)
}

// onStack reports whether file is already an active ancestor, returning the
// chain that closes the cycle.
func (t *Traversal) onStack(file string) ([]string, bool) {
	i := slices.Index(t.ancestors, file)
	if i < 0 {
		return nil, false
	}
	chain := append(slices.Clone(t.ancestors[i:]), file)
	return chain, true
}
