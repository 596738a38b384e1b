package treemgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgrove/treestore/models"
)

func rabDescription() *NodeDescription {
	return &NodeDescription{
		Title: "R",
		Children: []*NodeDescription{
			{Title: "a"},
			{Title: "b"},
		},
	}
}

func TestBuildTreeNewRoot(t *testing.T) {
	tm := testTreeManager(t)
	ctx := context.Background()

	nodes, err := tm.BuildTree(ctx, rabDescription(), nil, PositionLastChild)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	r, a, b := nodes[0], nodes[1], nodes[2]
	assert.Greater(t, r.TreeID, int64(0))
	assert.Equal(t, r.TreeID, a.TreeID)
	assert.Equal(t, r.TreeID, b.TreeID)

	requireBounds(t, tm, r.ID, 1, 6, 0)
	requireBounds(t, tm, a.ID, 2, 3, 1)
	requireBounds(t, tm, b.ID, 4, 5, 1)

	require.NotNil(t, reload(t, tm, a.ID).ParentID)
	assert.Equal(t, r.ID, *reload(t, tm, a.ID).ParentID)
	assert.Nil(t, reload(t, tm, r.ID).ParentID)
	requireClean(t, tm, r.TreeID)
}

func TestBuildTreeGraft(t *testing.T) {
	tm := testTreeManager(t)
	f := buildFixture(t, tm)
	ctx := context.Background()

	a := reload(t, tm, f["A"].ID)
	nodes, err := tm.BuildTree(ctx, rabDescription(), a, PositionLastChild)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	requireBounds(t, tm, f["A"].ID, 1, 16, 0)
	requireBounds(t, tm, nodes[0].ID, 10, 15, 1)
	requireBounds(t, tm, nodes[1].ID, 11, 12, 2)
	requireBounds(t, tm, nodes[2].ID, 13, 14, 2)
	// existing children untouched
	requireBounds(t, tm, f["B"].ID, 2, 5, 1)
	requireBounds(t, tm, f["C"].ID, 6, 9, 1)
	requireClean(t, tm, f["A"].TreeID)

	require.NotNil(t, reload(t, tm, nodes[0].ID).ParentID)
	assert.Equal(t, f["A"].ID, *reload(t, tm, nodes[0].ID).ParentID)
	assert.True(t, reload(t, tm, f["A"].ID).Changed)
}

// Bulk-building k nodes and grafting them must land on exactly the same
// boundaries as inserting the same k nodes one at a time in pre-order.
func TestBuildTreeMatchesSequentialInserts(t *testing.T) {
	ctx := context.Background()

	bulk := testTreeManager(t)
	fb := buildFixture(t, bulk)
	_, err := bulk.BuildTree(ctx, rabDescription(), reload(t, bulk, fb["A"].ID), PositionLastChild)
	require.NoError(t, err)

	seq := testTreeManager(t)
	fs := buildFixture(t, seq)
	r := &models.Node{Title: "R"}
	require.NoError(t, seq.InsertNode(ctx, r, reload(t, seq, fs["A"].ID), PositionLastChild, InsertOpts{Persist: true, RefreshTarget: true}))
	for _, title := range []string{"a", "b"} {
		n := &models.Node{Title: title}
		require.NoError(t, seq.InsertNode(ctx, n, r, PositionLastChild, InsertOpts{Persist: true, RefreshTarget: true}))
	}

	layout := func(tm *TreeManager) map[string][3]int64 {
		var all []models.Node
		require.NoError(t, tm.db.Find(&all).Error)
		out := make(map[string][3]int64, len(all))
		for _, n := range all {
			out[n.Title] = [3]int64{n.Lft, n.Rght, n.Level}
		}
		return out
	}
	assert.Equal(t, layout(seq), layout(bulk))
}

func TestBuildTreeWithTrackingSuspended(t *testing.T) {
	tm := testTreeManager(t)
	f := buildFixture(t, tm)
	ctx := WithTrackingSuspended(context.Background())

	a := reload(t, tm, f["A"].ID)
	nodes, err := tm.BuildTree(ctx, rabDescription(), a, PositionFirstChild)
	require.NoError(t, err)

	requireBounds(t, tm, nodes[0].ID, 2, 7, 1)
	requireBounds(t, tm, f["A"].ID, 1, 16, 0)
	requireBounds(t, tm, f["B"].ID, 8, 11, 1)
	requireClean(t, tm, f["A"].TreeID)
}
