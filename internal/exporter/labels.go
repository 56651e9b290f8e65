package exporter

// Label is one (name, value) annotation attached to a metric observation.
type Label struct {
	Name  string
	Value string
}

// LabelSet is the ordered sequence of labels accumulated along a snapshot
// tree path, from a category member's root down to the current node.
//
// A LabelSet is never mutated in place once handed to a child: Extend
// returns a fresh copy, so sibling subtrees cannot observe each other's
// labels. Order is significant only in that Names() and Values() stay
// aligned for family creation and observation.
type LabelSet []Label

// Extend returns a new LabelSet consisting of ls followed by extra.
// The receiver is left untouched.
func (ls LabelSet) Extend(extra ...Label) LabelSet {
	out := make(LabelSet, len(ls), len(ls)+len(extra))
	copy(out, ls)
	return append(out, extra...)
}

// Names returns the label names in set order.
func (ls LabelSet) Names() []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}

// Values returns the label values in set order, aligned with Names.
func (ls LabelSet) Values() []string {
	values := make([]string, len(ls))
	for i, l := range ls {
		values[i] = l.Value
	}
	return values
}

// Contains reports whether the exact (name, value) pair is present.
func (ls LabelSet) Contains(l Label) bool {
	for _, have := range ls {
		if have == l {
			return true
		}
	}
	return false
}
