package exporter

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// sample is one observation within a metric family: the label values aligned
// with the family's label-name schema, and the scaled numeric value.
type sample struct {
	labelValues []string
	value       float64
}

// metricFamily groups all observations sharing one metric name. The
// label-name schema is fixed when the family is created and every later
// observation must match it exactly.
type metricFamily struct {
	name       string
	labelNames []string
	samples    []sample
}

// familySet is the pass-local registry of metric families. It is created
// empty for each collection pass, populated during the walk, emitted once,
// and discarded. It is never shared between passes, so no locking is needed.
type familySet struct {
	families map[string]*metricFamily
}

func newFamilySet() *familySet {
	return &familySet{families: make(map[string]*metricFamily)}
}

// Add records one observation. The family is created lazily on first use
// with its label-name schema taken from labels; a later observation whose
// label names differ is a programming error in the walk and is rejected
// rather than silently truncated.
func (fs *familySet) Add(name string, labels LabelSet, value float64) error {
	fam, ok := fs.families[name]
	if !ok {
		fam = &metricFamily{name: name, labelNames: labels.Names()}
		fs.families[name] = fam
	} else if err := fam.checkSchema(labels); err != nil {
		return err
	}
	fam.samples = append(fam.samples, sample{labelValues: labels.Values(), value: value})
	return nil
}

// checkSchema verifies that the observation's label names match the
// family's fixed schema in count, order and content.
func (fam *metricFamily) checkSchema(labels LabelSet) error {
	if len(labels) != len(fam.labelNames) {
		return fmt.Errorf("metric %s: label schema mismatch: family has %d labels %v, observation has %d",
			fam.name, len(fam.labelNames), fam.labelNames, len(labels))
	}
	for i, l := range labels {
		if l.Name != fam.labelNames[i] {
			return fmt.Errorf("metric %s: label schema mismatch at position %d: family has %q, observation has %q",
				fam.name, i, fam.labelNames[i], l.Name)
		}
	}
	return nil
}

// sorted returns the families in ascending metric-name order. Deterministic
// ordering keeps scrape output stable across passes over the same snapshot.
func (fs *familySet) sorted() []*metricFamily {
	fams := make([]*metricFamily, 0, len(fs.families))
	for _, fam := range fs.families {
		fams = append(fams, fam)
	}
	sort.Slice(fams, func(i, j int) bool { return fams[i].name < fams[j].name })
	return fams
}

// emit renders every family as gauge const metrics on the Prometheus
// channel, in ascending name order.
func (fs *familySet) emit(ch chan<- prometheus.Metric) {
	for _, fam := range fs.sorted() {
		desc := prometheus.NewDesc(fam.name, "", fam.labelNames, nil)
		for _, s := range fam.samples {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, s.value, s.labelValues...)
		}
	}
}

// Len returns the number of families accumulated so far.
func (fs *familySet) Len() int {
	return len(fs.families)
}

// SampleCount returns the total number of observations across all families.
func (fs *familySet) SampleCount() int {
	n := 0
	for _, fam := range fs.families {
		n += len(fam.samples)
	}
	return n
}
