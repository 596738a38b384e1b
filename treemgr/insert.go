package treemgr

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/contentgrove/treestore/models"
)

// InsertOpts mirror the knobs on single-node insertion.
type InsertOpts struct {
	// Persist writes the node row and takes tree locks. When false only
	// the boundary arithmetic runs, for callers that already hold the
	// lock as part of a larger operation.
	Persist bool
	// AllowExistingID permits inserting a node that already carries a
	// primary key (eg keys assigned upstream).
	AllowExistingID bool
	// RefreshTarget reloads the target row inside the transaction before
	// computing boundaries, in case the caller's copy is stale.
	RefreshTarget bool
}

// InsertNode places node relative to target at the given position. With a
// nil target the node becomes the root of a brand-new tree. The old and
// new parents get their changed flags written straight to storage, since
// the caller holds no in-memory handles for them.
//
// Without Persist only the boundary arithmetic runs against tm's own
// handle; callers composing several inserts inside one lock transaction
// use InsertNodeTx with their transaction instead.
func (tm *TreeManager) InsertNode(ctx context.Context, node *models.Node, target *models.Node, position Position, opts InsertOpts) error {
	ctx, span := tracer.Start(ctx, "InsertNode")
	defer span.End()

	if !opts.Persist {
		return tm.InsertNodeTx(ctx, tm.db.WithContext(ctx), node, target, position, opts)
	}

	if node.ID != 0 && !opts.AllowExistingID {
		return fmt.Errorf("%w: refusing to insert node %d", ErrNodeExists, node.ID)
	}

	originalParentID := node.ParentID

	treeIDs := []int64{node.TreeID}
	if target != nil {
		// the node may be crossing trees, lock both
		treeIDs = append(treeIDs, target.TreeID)
	}
	if err := tm.WithTreeLock(ctx, treeIDs, func(tx *gorm.DB) error {
		return tm.insertNode(ctx, tx, node, target, position, opts)
	}); err != nil {
		return err
	}
	insertsProcessed.Inc()

	if err := tm.markChanged(ctx, changedNodeIDs(originalParentID, node.ParentID, node.ID, true)); err != nil {
		return err
	}

	node.Changed = true
	return nil
}

// InsertNodeTx is the composable form of InsertNode: everything runs on
// the caller's handle, so it can sit inside an open WithTreeLock body as
// one step of a larger multi-node operation. No locks are taken and no
// change flags are written; that bookkeeping belongs to whoever owns the
// surrounding transaction.
func (tm *TreeManager) InsertNodeTx(ctx context.Context, tx *gorm.DB, node *models.Node, target *models.Node, position Position, opts InsertOpts) error {
	if node.ID != 0 && !opts.AllowExistingID {
		return fmt.Errorf("%w: refusing to insert node %d", ErrNodeExists, node.ID)
	}

	if err := tm.insertNode(ctx, tx, node, target, position, opts); err != nil {
		return err
	}
	node.Changed = true
	return nil
}

func (tm *TreeManager) insertNode(ctx context.Context, tx *gorm.DB, node *models.Node, target *models.Node, position Position, opts InsertOpts) error {
	if target == nil {
		treeID, err := nextTreeID(tx)
		if err != nil {
			return err
		}
		node.TreeID = treeID
		node.Lft = 1
		node.Rght = 2
		node.Level = 0
		node.ParentID = nil
	} else {
		if opts.RefreshTarget {
			if err := tx.First(target, target.ID).Error; err != nil {
				return fmt.Errorf("failed to refresh target node %d: %w", target.ID, err)
			}
		}

		if target.IsRoot() && (position == PositionLeft || position == PositionRight) {
			// Root ordering is carried by tree_id, not boundaries: open a
			// fresh tree slot next to the target root.
			spaceTarget := target.TreeID
			if position == PositionLeft {
				spaceTarget = target.TreeID - 1
			}
			if err := createTreeSpace(tx, spaceTarget, 1); err != nil {
				return err
			}
			node.TreeID = spaceTarget + 1
			node.Lft = 1
			node.Rght = 2
			node.Level = 0
			node.ParentID = nil
		} else {
			spaceTarget, newLeft, level, parentID, err := insertCursor(target, position)
			if err != nil {
				return err
			}
			if err := createSpace(tx, 2, spaceTarget, target.TreeID); err != nil {
				return err
			}
			node.TreeID = target.TreeID
			node.Lft = newLeft
			node.Rght = newLeft + 1
			node.Level = level
			node.ParentID = parentID
		}
	}

	if opts.Persist {
		if err := tx.Save(node).Error; err != nil {
			return fmt.Errorf("failed to persist node: %w", err)
		}
	}
	return nil
}

// insertCursor resolves a target/position pair into the boundary-shift
// target, the new node's left boundary, its level, and its parent.
func insertCursor(target *models.Node, position Position) (spaceTarget, newLeft, level int64, parentID *uint, err error) {
	switch position {
	case PositionFirstChild:
		return target.Lft, target.Lft + 1, target.Level + 1, &target.ID, nil
	case PositionLastChild:
		return target.Rght - 1, target.Rght, target.Level + 1, &target.ID, nil
	case PositionLeft:
		return target.Lft - 1, target.Lft, target.Level, target.ParentID, nil
	case PositionRight:
		return target.Rght, target.Rght + 1, target.Level, target.ParentID, nil
	default:
		return 0, 0, 0, nil, fmt.Errorf("%w: %q", ErrInvalidPosition, position)
	}
}
