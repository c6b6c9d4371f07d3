package depresolve

import (
	"errors"
	"fmt"
	"testing"
)

func TestDependencyNotFoundError(t *testing.T) {
	err := fmt.Errorf("parse main.nr: %w", &DependencyNotFoundError{
		Module:   "ghost",
		Path:     "ghost.nr",
		Importer: "src/main.nr",
		Tried:    []string{"ghost.nr", "src/ghost.nr"},
	})

	if !errors.Is(err, ErrDependencyNotFound) {
		t.Error("wrapped error should match ErrDependencyNotFound")
	}
	want := "parse main.nr: dependency ghost not found in project file system (imported by src/main.nr, tried ghost.nr, src/ghost.nr)"
	if err.Error() != want {
		t.Errorf("want %q, got %q", want, err.Error())
	}
	if errors.Is(errors.New("dependency not found"), ErrDependencyNotFound) {
		t.Error("unrelated error with same text should not match")
	}
}

func TestCircularDependencyString(t *testing.T) {
	c := CircularDependency{File: "x.nr", Parent: "root.nr", Module: "y"}
	if got, want := c.String(), "circular dependency detected: x.nr (via root.nr)"; got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestTraversalOrder(t *testing.T) {
	trav := NewTraversal()
	trav.Visit("b.nr", "c.nr")
	trav.Visit("a.nr", "b.nr")
	trav.Visit("b.nr", "d.nr")

	if got := trav.Files(); len(got) != 2 || got[0] != "b.nr" || got[1] != "a.nr" {
		t.Errorf("files: got %v", got)
	}
	if !trav.HasVisited("b.nr", "d.nr") || trav.HasVisited("a.nr", "c.nr") {
		t.Errorf("unexpected visited map %v", trav.VisitedMap())
	}

	m := trav.VisitedMap()
	m["b.nr"][0] = "mutated"
	if trav.Visited("b.nr")[0] != "c.nr" {
		t.Error("VisitedMap should return a copy")
	}
}
