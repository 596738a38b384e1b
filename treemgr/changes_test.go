package treemgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangedNodeIDs(t *testing.T) {
	one := uint(1)
	two := uint(2)

	assert.Nil(t, changedNodeIDs(&one, &two, 3, false))
	assert.Equal(t, []uint{1, 2, 3}, changedNodeIDs(&one, &two, 3, true))
	// same parent on both sides collapses
	assert.Equal(t, []uint{1, 3}, changedNodeIDs(&one, &one, 3, true))
	// new root: no parents at all
	assert.Equal(t, []uint{3}, changedNodeIDs(nil, nil, 3, true))
	assert.Equal(t, []uint{2, 3}, changedNodeIDs(nil, &two, 3, true))
}
