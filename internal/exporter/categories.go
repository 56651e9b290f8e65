package exporter

import (
	"github.com/fjacquet/dcache_exporter/internal/models"
)

// Policy is a category's default inclusion policy for field names that
// appear in neither its include nor its exclude set.
type Policy int

const (
	// PolicyAll means the category carries no include/exclude configuration
	// at all: every field is emitted and no filter hook is consulted.
	PolicyAll Policy = iota
	// PolicyDeny emits only fields named in the include set.
	PolicyDeny
	// PolicyAllow emits everything except fields named in the exclude set.
	PolicyAllow
)

// InitFunc computes per-member auxiliary filter data from the member's
// subtree before it is walked.
type InitFunc func(member *models.Node) []Label

// FilterFunc decides, given the auxiliary data and the current label set,
// whether a field that already passed the name filter may be emitted.
type FilterFunc func(data []Label, labels LabelSet) bool

// Category describes one top-level kind of dCache component found under the
// snapshot root. The set of categories is fixed by the info service layout;
// it is not extensible at runtime.
type Category struct {
	// Name is the container tag under the snapshot root, e.g. "pools".
	Name string
	// Prefix is both the metric name prefix (dcache_<prefix>_*) and the
	// name of the member identity label.
	Prefix string
	// Policy, Include and Exclude form the static name filter.
	Policy  Policy
	Include map[string]struct{}
	Exclude map[string]struct{}
	// Init and Filter, when set, add a data-dependent second filter stage.
	Init   InitFunc
	Filter FilterFunc
}

// categories is the fixed walk order of one collection pass.
var categories = []Category{
	{Name: "doors", Prefix: "door", Policy: PolicyDeny, Include: nameSet(doorMetrics)},
	{Name: "domains", Prefix: "domain", Policy: PolicyDeny, Include: nameSet(domainMetrics),
		Init: domainCells, Filter: anyLabelMatches},
	{Name: "pools", Prefix: "pool", Policy: PolicyDeny, Include: nameSet(poolMetrics)},
	{Name: "poolgroups", Prefix: "poolgroup", Policy: PolicyDeny, Include: nameSet(poolgroupMetrics)},
	{Name: "links", Prefix: "link", Policy: PolicyDeny, Include: nameSet(linkMetrics)},
	{Name: "linkgroups", Prefix: "linkgroup", Policy: PolicyDeny, Include: nameSet(linkgroupMetrics)},
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// domainCells collects the cells routed locally within a domain member as
// ("cell_name", name) pairs. A domain metric is only interesting when the
// domain actually hosts one of these cells, which cannot be known from the
// field name alone.
func domainCells(member *models.Node) []Label {
	var cells []Label
	for i := range member.Children {
		routing := &member.Children[i]
		if routing.Tag() != "routing" {
			continue
		}
		for j := range routing.Children {
			local := &routing.Children[j]
			if local.Tag() != "local" {
				continue
			}
			for k := range local.Children {
				cell := &local.Children[k]
				if cell.Tag() != "cellref" {
					continue
				}
				if name, ok := cell.Attr("name"); ok {
					cells = append(cells, Label{Name: "cell_name", Value: name})
				}
			}
		}
	}
	return cells
}

// anyLabelMatches reports whether any pair from data appears in labels.
func anyLabelMatches(data []Label, labels LabelSet) bool {
	for _, d := range data {
		if labels.Contains(d) {
			return true
		}
	}
	return false
}

// categoryState is the pass-local filtering state of one category. A fresh
// state is created per collection pass so concurrent scrapes never share
// the auxiliary data.
type categoryState struct {
	cat  *Category
	data []Label
}

func newCategoryState(cat *Category) *categoryState {
	return &categoryState{cat: cat}
}

// init recomputes the auxiliary data for the member about to be walked.
func (st *categoryState) init(member *models.Node) {
	st.data = nil
	if st.cat.Init != nil {
		st.data = st.cat.Init(member)
	}
}

// shouldEmit decides whether the (already transformed) field name is
// emitted under the current label set.
//
// The decision is two-staged: the include/exclude/default name filter
// settles whether the field matters in general; only a tentatively positive
// answer consults the filter hook, which may still suppress the field for
// members unrelated to the init-computed data.
func (st *categoryState) shouldEmit(name string, labels LabelSet) bool {
	c := st.cat
	if c.Policy == PolicyAll {
		return true
	}

	ok := c.Policy == PolicyAllow
	if _, in := c.Include[name]; in {
		ok = true
	} else if _, out := c.Exclude[name]; out {
		ok = false
	}

	if ok && c.Filter != nil {
		return c.Filter(st.data, labels)
	}
	return ok
}
