package treemgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contentgrove/treestore/events"
	"github.com/contentgrove/treestore/models"
	"github.com/contentgrove/treestore/util/dbutil"
)

func testTreeManager(t *testing.T) *TreeManager {
	t.Helper()

	db, err := dbutil.SetupDatabase("sqlite://:memory:", 40)
	require.NoError(t, err)

	evts := events.NewEventManager()
	go evts.Run()
	t.Cleanup(evts.Shutdown)

	tm, err := NewTreeManager(db, evts, nil)
	require.NoError(t, err)
	return tm
}

// buildFixture creates one tree shaped A( B( B1 ), C( C1 ) ) with
// boundaries A(1,10) B(2,5) B1(3,4) C(6,9) C1(7,8).
func buildFixture(t *testing.T, tm *TreeManager) map[string]*models.Node {
	t.Helper()
	ctx := context.Background()

	nodes := map[string]*models.Node{}
	insert := func(name string, target *models.Node) *models.Node {
		n := &models.Node{Title: name}
		require.NoError(t, tm.InsertNode(ctx, n, target, PositionLastChild, InsertOpts{
			Persist:       true,
			RefreshTarget: true,
		}))
		nodes[name] = n
		return n
	}

	a := insert("A", nil)
	b := insert("B", a)
	insert("B1", b)
	c := insert("C", a)
	insert("C1", c)

	return nodes
}

func reload(t *testing.T, tm *TreeManager, id uint) *models.Node {
	t.Helper()
	var n models.Node
	require.NoError(t, tm.db.First(&n, id).Error)
	return &n
}

func requireBounds(t *testing.T, tm *TreeManager, id uint, lft, rght, level int64) {
	t.Helper()
	n := reload(t, tm, id)
	require.Equal(t, []int64{lft, rght, level}, []int64{n.Lft, n.Rght, n.Level},
		"node %d (%s): got (%d,%d) level %d", n.ID, n.Title, n.Lft, n.Rght, n.Level)
}

func requireClean(t *testing.T, tm *TreeManager, treeID int64) {
	t.Helper()
	problems, err := tm.VerifyTree(context.Background(), treeID)
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestGetNodeReturnsCopy(t *testing.T) {
	tm := testTreeManager(t)
	f := buildFixture(t, tm)
	ctx := context.Background()

	first, err := tm.GetNode(ctx, f["B"].ID)
	require.NoError(t, err)
	first.Lft = 999

	second, err := tm.GetNode(ctx, f["B"].ID)
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, int64(2), second.Lft)
}

func clearChangedFlags(t *testing.T, tm *TreeManager) {
	t.Helper()
	require.NoError(t, tm.db.Model(&models.Node{}).Where("tree_id > ?", 0).Update("changed", false).Error)
}
