package treemgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSpaceCloseGapRoundTrip(t *testing.T) {
	tm := testTreeManager(t)
	f := buildFixture(t, tm)
	tid := f["A"].TreeID

	require.NoError(t, createSpace(tm.db, 2, 9, tid))
	requireBounds(t, tm, f["A"].ID, 1, 12, 0)
	requireBounds(t, tm, f["C"].ID, 6, 9, 1)

	require.NoError(t, closeGap(tm.db, 2, 9, tid))
	requireBounds(t, tm, f["A"].ID, 1, 10, 0)
	requireClean(t, tm, tid)
}

func TestCreateTreeSpaceSentinelPanics(t *testing.T) {
	tm := testTreeManager(t)

	assert.Panics(t, func() {
		_ = createTreeSpace(tm.db, 0, 1)
	})
	assert.Panics(t, func() {
		_ = createTreeSpace(tm.db, -1, 1)
	})
}
