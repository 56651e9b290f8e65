package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelSetExtendLeavesReceiverUntouched(t *testing.T) {
	base := LabelSet{
		{Name: "dcache_cluster", Value: "prod"},
		{Name: "pool", Value: "pool1"},
	}

	extended := base.Extend(Label{Name: "queue_type", Value: "regular"})

	assert.Len(t, base, 2)
	assert.Len(t, extended, 3)
	assert.Equal(t, "queue_type", extended[2].Name)
}

func TestLabelSetExtendIsolatesSiblings(t *testing.T) {
	// Two siblings extending the same parent must not observe each other,
	// even when the parent's backing array has spare capacity.
	parent := make(LabelSet, 0, 8)
	parent = parent.Extend(Label{Name: "dcache_cluster", Value: "prod"})

	left := parent.Extend(Label{Name: "queue_type", Value: "regular"})
	right := parent.Extend(Label{Name: "queue_type", Value: "p2p"})

	assert.Equal(t, "regular", left[1].Value)
	assert.Equal(t, "p2p", right[1].Value)
	assert.Len(t, parent, 1)
}

func TestLabelSetNamesAndValuesStayAligned(t *testing.T) {
	ls := LabelSet{
		{Name: "dcache_cluster", Value: "prod"},
		{Name: "domain", Value: "dCacheDomain"},
		{Name: "cell_name", Value: "PoolManager"},
	}

	assert.Equal(t, []string{"dcache_cluster", "domain", "cell_name"}, ls.Names())
	assert.Equal(t, []string{"prod", "dCacheDomain", "PoolManager"}, ls.Values())
}

func TestLabelSetContains(t *testing.T) {
	ls := LabelSet{
		{Name: "cell_name", Value: "PoolManager"},
	}

	assert.True(t, ls.Contains(Label{Name: "cell_name", Value: "PoolManager"}))
	assert.False(t, ls.Contains(Label{Name: "cell_name", Value: "PnfsManager"}))
	assert.False(t, ls.Contains(Label{Name: "domain", Value: "PoolManager"}))
}
