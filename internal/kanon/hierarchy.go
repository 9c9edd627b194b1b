package kanon

import "strings"

// Hierarchy is a generalization tree for one column: a root node named after
// the column, branching into arbitrarily deep intermediate categories, with
// the observed cell values as leaves. Node names must be unique within a
// hierarchy; lookups return the first match found during traversal.
type Hierarchy struct {
	name     string
	children []*Hierarchy
}

// NewHierarchy creates an empty hierarchy rooted at name.
func NewHierarchy(name string) *Hierarchy {
	return &Hierarchy{name: name}
}

// Name returns the hierarchy's root name (the column it applies to).
func (h *Hierarchy) Name() string {
	return h.name
}

// get returns the direct child named name, creating it (mkdir -p style) if
// it doesn't exist.
func (h *Hierarchy) get(name string) *Hierarchy {
	for _, c := range h.children {
		if c.name == name {
			return c
		}
	}

	child := &Hierarchy{name: name}
	h.children = append(h.children, child)

	return child
}

// Add creates every missing ancestor along path and a leaf at its end,
// analogous to recursive directory creation. The root is implied; path does
// not include it.
func (h *Hierarchy) Add(path []string) {
	current := h

	for _, p := range path {
		current = current.get(strings.TrimSpace(p))
	}
}

// find recursively builds the path from a matching node up to (but
// excluding) the root, appending names as the recursion unwinds. The
// returned path therefore starts with the node itself.
func (h *Hierarchy) find(child string, stack *[]string) bool {
	for _, c := range h.children {
		if c.name == child || c.find(child, stack) {
			*stack = append(*stack, c.name)
			return true
		}
	}

	return false
}

// Find returns the path from the named node up through its ancestors,
// stopping before the root. The node itself is the first element, so a
// cell's current value is always among the entries Find returns for it -
// callers rely on this to include "no change" as a mutation candidate.
// Returns an empty slice if name does not exist in the hierarchy.
func (h *Hierarchy) Find(name string) []string {
	var stack []string
	h.find(name, &stack)

	return stack
}

// Breadth returns the number of siblings (including name itself) at name's
// level, used by CertaintyScore to measure how much a generalization step
// narrows the remaining possibilities. Returns 0 if name does not exist.
func (h *Hierarchy) Breadth(name string) int {
	for _, c := range h.children {
		if c.name == name {
			return len(h.children)
		}

		if in := c.Breadth(name); in != 0 {
			return in
		}
	}

	return 0
}
