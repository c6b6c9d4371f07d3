package depresolve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDependencyNotFound matches any *DependencyNotFoundError.
var ErrDependencyNotFound = errors.New("dependency not found")

// DependencyNotFoundError is returned when a referenced module exists at
// neither its absolute nor its importer-relative location.  It aborts the
// whole resolution pass.
type DependencyNotFoundError struct {
	// Module is the referenced name as written in the directive.
	Module string
	// Path is the normalized file name that was searched for.
	Path string
	// Importer is the file that declared the directive.
	Importer string
	// Tried lists the candidate paths checked, in order.
	Tried []string
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("dependency %s not found in project file system (imported by %s, tried %s)",
		e.Module, e.Importer, strings.Join(e.Tried, ", "))
}

// Is implements errors.Is support for ErrDependencyNotFound.
func (e *DependencyNotFoundError) Is(target error) bool {
	return target == ErrDependencyNotFound
}

// CircularDependency records a cycle detected during resolution.  It is a
// diagnostic, never a returned error.
type CircularDependency struct {
	// File is the file whose import loop was cut short.
	File string
	// Parent is the importer that led to File.
	Parent string
	// Module is the directive being processed when the cycle was detected.
	Module string
	// Chain is the ancestor chain when strict cycle checking found the cycle.
	Chain []string
}

func (c CircularDependency) String() string {
	if len(c.Chain) > 0 {
		return "circular dependency detected: " + strings.Join(c.Chain, " -> ")
	}
	return fmt.Sprintf("circular dependency detected: %s (via %s)", c.File, c.Parent)
}
