package collections

import "slices"

// StringStack is a LIFO of strings.  The zero value is an empty stack.
type StringStack []string

// Len returns the stack depth.
func (s StringStack) Len() int {
	return len(s)
}

// Push adds x on top.
func (s *StringStack) Push(x string) {
	*s = append(*s, x)
}

// Pop removes and returns the top element; ok is false on an empty stack.
func (s *StringStack) Pop() (x string, ok bool) {
	n := len(*s)
	if n == 0 {
		return "", false
	}
	x = (*s)[n-1]
	*s = (*s)[:n-1]
	return x, true
}

// Peek returns the top element without removing it.
func (s StringStack) Peek() (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

// Contains reports whether x is anywhere on the stack.
func (s StringStack) Contains(x string) bool {
	return slices.Contains(s, x)
}
