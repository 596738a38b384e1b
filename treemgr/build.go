package treemgr

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/contentgrove/treestore/models"
)

// NodeDescription is the in-memory shape handed to the bulk builder: one
// node's fields plus nested children, arbitrarily deep.
type NodeDescription struct {
	Title    string             `json:"title"`
	Children []*NodeDescription `json:"children,omitempty"`
}

// BuildTreeNodes lays out an entire subtree from the description in one
// pre-order pass, assigning lft/rght/level and a shared tree_id purely in
// memory. With a nil target a fresh tree id is allocated and the nodes
// form a brand-new tree; otherwise the layout starts at the insertion
// cursor implied by target/position and a single boundary shift opens
// space for all of it in the existing tree.
//
// Nodes are returned flat, in pre-order, wired together through the
// Children association so the whole batch persists off the root. Nothing
// is written except the space shift; persisting is the caller's job (see
// BuildTree for the locked end-to-end version).
func (tm *TreeManager) BuildTreeNodes(ctx context.Context, tx *gorm.DB, data *NodeDescription, target *models.Node, position Position) ([]*models.Node, error) {
	var treeID, cursor, level int64

	if target != nil {
		treeID = target.TreeID
		switch position {
		case PositionLeft:
			level = target.Level
			cursor = target.Lft
		case PositionRight:
			level = target.Level
			cursor = target.Rght + 1
		case PositionFirstChild:
			level = target.Level + 1
			cursor = target.Lft + 1
		case PositionLastChild:
			level = target.Level + 1
			cursor = target.Rght
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidPosition, position)
		}
	} else {
		tid, err := nextTreeID(tx)
		if err != nil {
			return nil, err
		}
		treeID = tid
		cursor = 1
		level = 0
	}

	var stack []*models.Node

	var treeify func(d *NodeDescription, cursor, level int64) (*models.Node, int64)
	treeify = func(d *NodeDescription, cursor, level int64) (*models.Node, int64) {
		node := &models.Node{
			Title:  d.Title,
			TreeID: treeID,
			Level:  level,
			Lft:    cursor,
		}
		stack = append(stack, node)
		for _, child := range d.Children {
			var built *models.Node
			built, cursor = treeify(child, cursor+1, level+1)
			node.Children = append(node.Children, built)
		}
		cursor++
		node.Rght = cursor
		return node, cursor
	}
	root, _ := treeify(data, cursor, level)

	if target != nil {
		switch position {
		case PositionFirstChild, PositionLastChild:
			root.ParentID = &target.ID
		default:
			root.ParentID = target.ParentID
		}
		// one bulk shift makes room for the whole subtree at once
		if err := createSpace(tx, 2*int64(len(stack)), cursor-1, treeID); err != nil {
			return nil, err
		}
	}

	return stack, nil
}

// BuildTree is the end-to-end bulk constructor: lays the subtree out,
// opens space, and persists every node in one batch, all under the tree
// lock when grafting into an existing tree.
func (tm *TreeManager) BuildTree(ctx context.Context, data *NodeDescription, target *models.Node, position Position) ([]*models.Node, error) {
	ctx, span := tracer.Start(ctx, "BuildTree")
	defer span.End()

	var treeIDs []int64
	if target != nil {
		treeIDs = append(treeIDs, target.TreeID)
	}

	var built []*models.Node
	err := tm.WithTreeLock(ctx, treeIDs, func(tx *gorm.DB) error {
		nodes, err := tm.BuildTreeNodes(ctx, tx, data, target, position)
		if err != nil {
			return err
		}
		if err := tx.Create(nodes[0]).Error; err != nil {
			return fmt.Errorf("failed to persist built tree: %w", err)
		}
		built = nodes
		return nil
	})
	if err != nil {
		return nil, err
	}
	treesBuilt.Inc()

	if target != nil && target.ID != 0 {
		if err := tm.markChanged(ctx, []uint{target.ID}); err != nil {
			return nil, err
		}
	} else {
		tm.nodeCache.Purge()
	}
	return built, nil
}
