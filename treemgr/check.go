package treemgr

import (
	"context"
	"fmt"

	"github.com/contentgrove/treestore/models"
)

// VerifyTree re-scans one tree and reports every nested-set invariant
// violation it finds. The write path performs no defensive checks, so
// this scan is the only way corruption becomes visible.
//
// Checked: lft < rght on every node, boundary values covering exactly
// 1..2N with no duplicates, child ranges strictly inside their parent's,
// and level equal to parent level + 1 (0 for the root).
func (tm *TreeManager) VerifyTree(ctx context.Context, treeID int64) ([]string, error) {
	var nodes []models.Node
	if err := tm.db.WithContext(ctx).Where("tree_id = ?", treeID).Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to scan tree %d: %w", treeID, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	byID := make(map[uint]*models.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	seen := make(map[int64]uint, 2*len(nodes))
	limit := int64(2 * len(nodes))
	rootCount := 0

	for i := range nodes {
		n := &nodes[i]

		if n.Lft >= n.Rght {
			report("node %d: lft %d not below rght %d", n.ID, n.Lft, n.Rght)
		}
		for _, b := range []int64{n.Lft, n.Rght} {
			if b < 1 || b > limit {
				report("node %d: boundary %d outside 1..%d", n.ID, b, limit)
			}
			if other, dup := seen[b]; dup {
				report("node %d: boundary %d already used by node %d", n.ID, b, other)
			}
			seen[b] = n.ID
		}

		if n.ParentID == nil {
			rootCount++
			if n.Level != 0 {
				report("root node %d: level %d, want 0", n.ID, n.Level)
			}
			continue
		}

		parent, ok := byID[*n.ParentID]
		if !ok {
			report("node %d: parent %d not in tree %d", n.ID, *n.ParentID, treeID)
			continue
		}
		if !(parent.Lft < n.Lft && n.Rght < parent.Rght) {
			report("node %d (%d,%d): outside parent %d (%d,%d)", n.ID, n.Lft, n.Rght, parent.ID, parent.Lft, parent.Rght)
		}
		if n.Level != parent.Level+1 {
			report("node %d: level %d, want parent level %d + 1", n.ID, n.Level, parent.Level)
		}
	}

	if rootCount != 1 {
		report("tree %d: %d root nodes, want exactly 1", treeID, rootCount)
	}
	// full coverage follows from count + range + uniqueness
	if int64(len(seen)) != limit {
		report("tree %d: %d distinct boundaries, want %d", treeID, len(seen), limit)
	}

	return problems, nil
}
