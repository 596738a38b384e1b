package treemgr

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/contentgrove/treestore/events"
	"github.com/contentgrove/treestore/models"
)

// MoveNode moves an existing node relative to target. A nil target turns
// the node into a new root. Making a node a sibling of a root is special
// cased: root ordering lives in tree_id, not boundaries.
//
// The structural update is a single set of bulk boundary rewrites inside
// the lock transaction; the node row itself is never re-saved wholesale.
// After commit, a move-completed event is published for asynchronous
// consumers, and prerequisite edges touching the node are gone if it
// changed trees.
func (tm *TreeManager) MoveNode(ctx context.Context, node *models.Node, target *models.Node, position Position) error {
	ctx, span := tracer.Start(ctx, "MoveNode")
	defer span.End()

	if node.ID == 0 {
		return fmt.Errorf("%w: node is not persisted", ErrInvalidMove)
	}

	originalParentID := node.ParentID
	treeIDs := []int64{node.TreeID}
	var targetID *uint
	if target != nil {
		treeIDs = append(treeIDs, target.TreeID)
		targetID = &target.ID
	}

	err := tm.WithTreeLock(ctx, treeIDs, func(tx *gorm.DB) error {
		return tm.moveNode(ctx, tx, node, target, position)
	})
	if err != nil {
		return err
	}
	movesProcessed.Inc()

	if err := tm.markChanged(ctx, changedNodeIDs(originalParentID, node.ParentID, node.ID, true)); err != nil {
		return err
	}
	node.Changed = true

	if tm.Events != nil {
		evt := &events.MoveEvent{
			NodeID:   node.ID,
			TargetID: targetID,
			Position: string(position),
		}
		if err := tm.Events.AddEvent(ctx, evt); err != nil {
			tm.Logger.Error("failed to publish move event", "node", node.ID, "error", err)
		}
	}
	return nil
}

func (tm *TreeManager) moveNode(ctx context.Context, tx *gorm.DB, node *models.Node, target *models.Node, position Position) error {
	oldTreeID := node.TreeID

	switch {
	case target == nil:
		if node.IsRoot() {
			// already a root
			return nil
		}
		if err := tm.makeChildRootNode(ctx, tx, node, 0); err != nil {
			return err
		}
	case target.IsRoot() && (position == PositionLeft || position == PositionRight):
		if err := tm.makeSiblingOfRootNode(ctx, tx, node, target, position); err != nil {
			return err
		}
	default:
		if node.IsRoot() {
			if err := moveRootNode(tx, node, target, position); err != nil {
				return err
			}
		} else if node.TreeID == target.TreeID {
			if err := moveWithinTree(tx, node, target, position); err != nil {
				return err
			}
		} else {
			if err := moveToNewTree(tx, node, target, position); err != nil {
				return err
			}
		}
	}

	if node.TreeID != oldTreeID {
		// prerequisite edges are only meaningful while both endpoints
		// share the tree context they were created in
		if err := tx.Where("prerequisite_id = ? OR target_node_id = ?", node.ID, node.ID).
			Delete(&models.PrerequisiteEdge{}).Error; err != nil {
			return fmt.Errorf("failed to delete prerequisite edges for node %d: %w", node.ID, err)
		}
	}
	return nil
}

// makeChildRootNode promotes a child node (and its subtree) to the root
// of its own tree, closing the gap it leaves behind. A zero newTreeID
// means allocate a fresh one.
func (tm *TreeManager) makeChildRootNode(ctx context.Context, tx *gorm.DB, node *models.Node, newTreeID int64) error {
	if newTreeID == 0 {
		tid, err := nextTreeID(tx)
		if err != nil {
			return err
		}
		newTreeID = tid
	}

	left := node.Lft
	right := node.Rght
	level := node.Level
	leftRightChange := left - 1

	if err := interTreeMoveAndCloseGap(tx, node, level, leftRightChange, newTreeID); err != nil {
		return err
	}
	if err := setParent(tx, node.ID, nil); err != nil {
		return err
	}

	node.Lft = left - leftRightChange
	node.Rght = right - leftRightChange
	node.Level = 0
	node.TreeID = newTreeID
	node.ParentID = nil
	return nil
}

// makeSiblingOfRootNode moves node next to a root. For a child node this
// opens a fresh tree slot and promotes the subtree into it; for a root
// node the whole tree is reordered by renumbering tree ids in the range
// between the two roots.
func (tm *TreeManager) makeSiblingOfRootNode(ctx context.Context, tx *gorm.DB, node *models.Node, target *models.Node, position Position) error {
	if node.ID == target.ID {
		return fmt.Errorf("%w: node cannot be made a sibling of itself", ErrInvalidMove)
	}

	treeID := node.TreeID
	targetTreeID := target.TreeID

	if !node.IsRoot() {
		spaceTarget := targetTreeID
		if position == PositionLeft {
			spaceTarget = targetTreeID - 1
		}
		if err := createTreeSpace(tx, spaceTarget, 1); err != nil {
			return err
		}
		if treeID > spaceTarget {
			// the node's own tree id was just shifted; reflect that before
			// the gap-closing update below targets its old tree
			node.TreeID = treeID + 1
		}
		return tm.makeChildRootNode(ctx, tx, node, spaceTarget+1)
	}

	var newTreeID, lower, upper, shift int64
	switch position {
	case PositionLeft:
		if targetTreeID > treeID {
			newTreeID = targetTreeID - 1
			lower, upper, shift = treeID, newTreeID, -1
		} else {
			newTreeID = targetTreeID
			lower, upper, shift = newTreeID, treeID, 1
		}
	case PositionRight:
		if targetTreeID > treeID {
			newTreeID = targetTreeID
			lower, upper, shift = treeID, newTreeID, -1
		} else {
			newTreeID = targetTreeID + 1
			lower, upper, shift = newTreeID, treeID, 1
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPosition, position)
	}

	if newTreeID == treeID {
		return nil
	}

	err := tx.Exec(`UPDATE nodes SET
		tree_id = CASE WHEN tree_id = ? THEN ? ELSE tree_id + ? END
		WHERE tree_id >= ? AND tree_id <= ?`,
		treeID, newTreeID, shift, lower, upper).Error
	if err != nil {
		return fmt.Errorf("failed to reorder root trees %d..%d: %w", lower, upper, err)
	}

	node.TreeID = newTreeID
	return nil
}

// moveRootNode grafts an entire root tree under a node of another tree.
func moveRootNode(tx *gorm.DB, node *models.Node, target *models.Node, position Position) error {
	if node.TreeID == target.TreeID {
		return fmt.Errorf("%w: a node may not be made a child of its own descendants", ErrInvalidMove)
	}

	spaceTarget, levelChange, leftRightChange, parentID, err := interTreeMoveValues(node, target, position)
	if err != nil {
		return err
	}
	newTreeID := target.TreeID

	if err := createSpace(tx, node.Width(), spaceTarget, newTreeID); err != nil {
		return err
	}

	// the whole source tree moves, so there is no gap to close behind it
	err = tx.Exec(`UPDATE nodes SET
		level = level - ?,
		lft = lft - ?,
		rght = rght - ?,
		tree_id = ?
		WHERE lft >= ? AND lft <= ? AND tree_id = ?`,
		levelChange, leftRightChange, leftRightChange, newTreeID,
		node.Lft, node.Rght, node.TreeID).Error
	if err != nil {
		return fmt.Errorf("failed to move root tree %d into tree %d: %w", node.TreeID, newTreeID, err)
	}
	if err := setParent(tx, node.ID, parentID); err != nil {
		return err
	}

	node.Lft -= leftRightChange
	node.Rght -= leftRightChange
	node.Level -= levelChange
	node.TreeID = newTreeID
	node.ParentID = parentID
	return nil
}

// moveToNewTree moves a child node's subtree into a different tree:
// space is opened in the target tree, then one statement relocates the
// subtree and closes the gap in the source tree.
func moveToNewTree(tx *gorm.DB, node *models.Node, target *models.Node, position Position) error {
	spaceTarget, levelChange, leftRightChange, parentID, err := interTreeMoveValues(node, target, position)
	if err != nil {
		return err
	}
	newTreeID := target.TreeID

	if err := createSpace(tx, node.Width(), spaceTarget, newTreeID); err != nil {
		return err
	}
	if err := interTreeMoveAndCloseGap(tx, node, levelChange, leftRightChange, newTreeID); err != nil {
		return err
	}
	if err := setParent(tx, node.ID, parentID); err != nil {
		return err
	}

	node.Lft -= leftRightChange
	node.Rght -= leftRightChange
	node.Level -= levelChange
	node.TreeID = newTreeID
	node.ParentID = parentID
	return nil
}

// moveWithinTree repositions a subtree inside its own tree with one bulk
// boundary rewrite.
func moveWithinTree(tx *gorm.DB, node *models.Node, target *models.Node, position Position) error {
	width := node.Width()
	left := node.Lft
	right := node.Rght
	level := node.Level
	targetLeft := target.Lft
	targetRight := target.Rght

	var newLeft, levelChange int64
	var parentID *uint

	switch position {
	case PositionFirstChild, PositionLastChild:
		if target.ID == node.ID || (left < targetLeft && targetLeft < right) {
			return fmt.Errorf("%w: a node may not be made a child of itself or its descendants", ErrInvalidMove)
		}
		if position == PositionLastChild {
			if targetRight > right {
				newLeft = targetRight - width
			} else {
				newLeft = targetRight
			}
		} else {
			if targetLeft > left {
				newLeft = targetLeft - width + 1
			} else {
				newLeft = targetLeft + 1
			}
		}
		levelChange = level - target.Level - 1
		parentID = &target.ID
	case PositionLeft, PositionRight:
		if target.ID == node.ID || (left < targetLeft && targetLeft < right) {
			return fmt.Errorf("%w: a node may not be made a sibling of itself or its descendants", ErrInvalidMove)
		}
		if position == PositionLeft {
			if targetLeft > left {
				newLeft = targetLeft - width
			} else {
				newLeft = targetLeft
			}
		} else {
			if targetRight > right {
				newLeft = targetRight - width + 1
			} else {
				newLeft = targetRight + 1
			}
		}
		levelChange = level - target.Level
		parentID = target.ParentID
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPosition, position)
	}

	newRight := newLeft + width - 1
	leftBoundary := min(left, newLeft)
	rightBoundary := max(right, newRight)
	subtreeShift := newLeft - left
	gapShift := width
	if subtreeShift > 0 {
		// moving right: the rows between the old and new spot slide left
		gapShift = -gapShift
	}

	err := tx.Exec(`UPDATE nodes SET
		level = CASE WHEN lft >= ? AND lft <= ? THEN level - ? ELSE level END,
		lft = CASE WHEN lft >= ? AND lft <= ? THEN lft + ?
		           WHEN lft >= ? AND lft <= ? THEN lft + ? ELSE lft END,
		rght = CASE WHEN rght >= ? AND rght <= ? THEN rght + ?
		           WHEN rght >= ? AND rght <= ? THEN rght + ? ELSE rght END
		WHERE tree_id = ?`,
		left, right, levelChange,
		left, right, subtreeShift,
		leftBoundary, rightBoundary, gapShift,
		left, right, subtreeShift,
		leftBoundary, rightBoundary, gapShift,
		node.TreeID).Error
	if err != nil {
		return fmt.Errorf("failed to move node %d within tree %d: %w", node.ID, node.TreeID, err)
	}
	if err := setParent(tx, node.ID, parentID); err != nil {
		return err
	}

	node.Lft = newLeft
	node.Rght = newRight
	node.Level = level - levelChange
	node.ParentID = parentID
	return nil
}

// interTreeMoveValues resolves a cross-tree target/position pair into the
// space target in the destination tree, the level and boundary deltas to
// subtract from the moving subtree, and the new parent.
func interTreeMoveValues(node *models.Node, target *models.Node, position Position) (spaceTarget, levelChange, leftRightChange int64, parentID *uint, err error) {
	switch position {
	case PositionFirstChild:
		spaceTarget = target.Lft
		levelChange = node.Level - target.Level - 1
		parentID = &target.ID
	case PositionLastChild:
		spaceTarget = target.Rght - 1
		levelChange = node.Level - target.Level - 1
		parentID = &target.ID
	case PositionLeft:
		spaceTarget = target.Lft - 1
		levelChange = node.Level - target.Level
		parentID = target.ParentID
	case PositionRight:
		spaceTarget = target.Rght
		levelChange = node.Level - target.Level
		parentID = target.ParentID
	default:
		return 0, 0, 0, nil, fmt.Errorf("%w: %q", ErrInvalidPosition, position)
	}
	leftRightChange = node.Lft - spaceTarget - 1
	return spaceTarget, levelChange, leftRightChange, parentID, nil
}

// interTreeMoveAndCloseGap relocates node's subtree into newTreeID (space
// must already exist there) and closes the gap left in the source tree,
// all in one statement over the source tree's rows.
func interTreeMoveAndCloseGap(tx *gorm.DB, node *models.Node, levelChange, leftRightChange, newTreeID int64) error {
	left := node.Lft
	right := node.Rght
	gapSize := node.Width()

	err := tx.Exec(`UPDATE nodes SET
		level = CASE WHEN lft >= ? AND lft <= ? THEN level - ? ELSE level END,
		tree_id = CASE WHEN lft >= ? AND lft <= ? THEN ? ELSE tree_id END,
		lft = CASE WHEN lft >= ? AND lft <= ? THEN lft - ?
		           WHEN lft > ? THEN lft - ? ELSE lft END,
		rght = CASE WHEN rght >= ? AND rght <= ? THEN rght - ?
		           WHEN rght > ? THEN rght - ? ELSE rght END
		WHERE tree_id = ?`,
		left, right, levelChange,
		left, right, newTreeID,
		left, right, leftRightChange,
		right, gapSize,
		left, right, leftRightChange,
		right, gapSize,
		node.TreeID).Error
	if err != nil {
		return fmt.Errorf("failed to move subtree %d into tree %d: %w", node.ID, newTreeID, err)
	}
	return nil
}

func setParent(tx *gorm.DB, nodeID uint, parentID *uint) error {
	if err := tx.Model(&models.Node{}).Where("id = ?", nodeID).Update("parent_id", parentID).Error; err != nil {
		return fmt.Errorf("failed to update parent of node %d: %w", nodeID, err)
	}
	return nil
}
