package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodesReturnsIndependentCopy(t *testing.T) {
	m := reconcileFresh(t, connectedSnapshot())

	copied := m.Nodes()
	copied[0].Label = "scribbled"
	for _, child := range copied {
		for _, c := range child.Children {
			c.Label = "scribbled"
		}
	}

	assert.Equal(t, "alice@example.com", nodeByKey(t, m, keyUser).Label)
	assert.Equal(t, "db.internal", nodeByKey(t, m, "resource:r1/address").Label)
}

func TestEqualKeys(t *testing.T) {
	assert.True(t, equalKeys(nil, nil))
	assert.True(t, equalKeys([]string{"a"}, []string{"a"}))
	assert.False(t, equalKeys([]string{"a"}, []string{"b"}))
	assert.False(t, equalKeys([]string{"a"}, []string{"a", "b"}))
}
