package treemgr

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/contentgrove/treestore/models"
)

// createSpace shifts every boundary after target in one tree outward by
// size, opening a gap for new nodes. A single statement, so partially
// shifted boundaries are never visible to other transactions.
func createSpace(tx *gorm.DB, size, target, treeID int64) error {
	err := tx.Exec(`UPDATE nodes SET
		lft = CASE WHEN lft > ? THEN lft + ? ELSE lft END,
		rght = CASE WHEN rght > ? THEN rght + ? ELSE rght END
		WHERE tree_id = ? AND (lft > ? OR rght > ?)`,
		target, size, target, size, treeID, target, target).Error
	if err != nil {
		return fmt.Errorf("failed to shift boundaries past %d in tree %d: %w", target, treeID, err)
	}
	return nil
}

// closeGap is the inverse of createSpace: it collapses a gap of size
// boundary slots after target, pulling surrounding nodes inward.
func closeGap(tx *gorm.DB, size, target, treeID int64) error {
	return createSpace(tx, -size, target, treeID)
}

// createTreeSpace renumbers the tree ids above targetTreeID upward by
// numTrees, opening free slots for root ordering.
//
// A target of zero or below means something is attempting to reorder
// every root tree in the table at once. That is always a caller bug, not
// a recoverable condition, so it panics.
func createTreeSpace(tx *gorm.DB, targetTreeID, numTrees int64) error {
	if targetTreeID <= 0 {
		panic(fmt.Sprintf("createTreeSpace called with tree id %d: refusing to renumber all root trees", targetTreeID))
	}

	if err := tx.Model(&models.Node{}).Where("tree_id > ?", targetTreeID).
		Update("tree_id", gorm.Expr("tree_id + ?", numTrees)).Error; err != nil {
		return fmt.Errorf("failed to shift tree ids above %d: %w", targetTreeID, err)
	}
	return nil
}
