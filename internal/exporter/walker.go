package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fjacquet/dcache_exporter/internal/models"
	log "github.com/sirupsen/logrus"
)

// Snapshot element and attribute names the walker dispatches on.
const (
	tagMetric    = "metric"
	tagPoolref   = "poolref"
	tagLinkgroup = "linkgroup"

	attrName = "name"
	attrLgid = "lgid"
	attrType = "type"
)

const (
	metricNamespace = "dcache"
	clusterLabel    = "dcache_cluster"
	poolLabel       = "pool"
	poolRelSuffix   = "pool_rel"
)

// collectMember walks one category member: it recomputes the category's
// auxiliary filter data, seeds the label set with the cluster and member
// identity labels, and descends into the member's children.
//
// Returns an error only on a label-schema violation, which aborts the pass.
func collectMember(member *models.Node, st *categoryState, fams *familySet, cluster string) error {
	st.init(member)

	labels := LabelSet{
		{Name: clusterLabel, Value: cluster},
		{Name: st.cat.Prefix, Value: memberIdentity(member)},
	}
	for i := range member.Children {
		if err := collectNode(&member.Children[i], st, fams, labels); err != nil {
			return err
		}
	}
	return nil
}

// memberIdentity extracts the identity label value of a category member.
// Link groups are identified by their lgid attribute; every other category
// uses the name attribute with any @-qualified suffix stripped.
func memberIdentity(member *models.Node) string {
	if member.Tag() == tagLinkgroup {
		return member.AttrDefault(attrLgid, "")
	}
	name := member.AttrDefault(attrName, "")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name
}

// collectNode dispatches on the node's role within the snapshot:
//
//   - value node ("metric"): coerce and record one observation, no descent
//   - relation reference ("poolref"): record a constant 1 relating the
//     member to the referenced pool, no descent
//   - anything else: structural node; its attributes become labels named
//     <tag>_<attribute> on a copy of the label set, then recurse
//
// A childless node of unknown tag is a silent no-op.
func collectNode(node *models.Node, st *categoryState, fams *familySet, labels LabelSet) error {
	switch node.Tag() {
	case tagMetric:
		return collectValue(node, st, fams, labels)

	case tagPoolref:
		pool := node.AttrDefault(attrName, "")
		name := fmt.Sprintf("%s_%s_%s", metricNamespace, st.cat.Prefix, poolRelSuffix)
		return fams.Add(name, labels.Extend(Label{Name: poolLabel, Value: pool}), 1)

	default:
		if len(node.Children) == 0 {
			return nil
		}
		extended := labels
		if len(node.Attrs) > 0 {
			extra := make([]Label, 0, len(node.Attrs))
			for _, a := range node.Attrs {
				extra = append(extra, Label{Name: node.Tag() + "_" + a.Name.Local, Value: a.Value})
			}
			extended = labels.Extend(extra...)
		}
		for i := range node.Children {
			if err := collectNode(&node.Children[i], st, fams, extended); err != nil {
				return err
			}
		}
		return nil
	}
}

// collectValue records one observation from a value node, if the category
// filter admits it. The node carries the scalar type and raw field name as
// attributes and the value as leaf text.
func collectValue(node *models.Node, st *categoryState, fams *familySet, labels LabelSet) error {
	raw, ok := node.Attr(attrName)
	if !ok {
		return nil
	}
	name, scale := transformMetric(raw)
	if !st.shouldEmit(name, labels) {
		return nil
	}

	typ := node.AttrDefault(attrType, "")
	value, ok := coerceValue(typ, strings.TrimSpace(node.Text))
	if !ok {
		log.Debugf("Skipping field %s: cannot coerce %q as %s", raw, node.Text, typ)
		return nil
	}

	metricName := fmt.Sprintf("%s_%s_%s", metricNamespace, st.cat.Prefix, name)
	return fams.Add(metricName, labels, scale(value))
}

// coerceValue converts leaf text to a numeric value according to the
// declared scalar type. Booleans map "true" to 1 and anything else to 0;
// unknown types and unparsable numbers report false.
func coerceValue(typ, text string) (float64, bool) {
	switch typ {
	case "boolean":
		if text == "true" {
			return 1, true
		}
		return 0, true
	case "float":
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	case "integer":
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, false
		}
		return float64(v), true
	}
	return 0, false
}
