package models

import (
	"time"
)

// Node is one row of the shared nested-set table. Many independent trees
// live in the same table, grouped by TreeID; within one tree the Lft/Rght
// boundary pairs cover exactly 1..2N.
type Node struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Title    string
	ParentID *uint   `gorm:"index"`
	Children []*Node `gorm:"foreignKey:ParentID"`
	TreeID   int64   `gorm:"index"`
	Lft      int64   `gorm:"column:lft"`
	Rght     int64   `gorm:"column:rght"`
	Level    int64

	// Changed is set whenever the node's position or ancestry shifted;
	// consumed by downstream cache/index invalidators.
	Changed bool
}

func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// Width is the size of the boundary span the node's subtree occupies.
func (n *Node) Width() int64 {
	return n.Rght - n.Lft + 1
}

// TreeIDSequence exists only for its auto-increment primary key, which
// backs tree id allocation. One row is inserted per allocated id, so
// concurrent root creation never contends with tree mutation locks.
type TreeIDSequence struct {
	ID        int64 `gorm:"primarykey"`
	CreatedAt time.Time
}

// PrerequisiteEdge is a directed dependency link between two nodes,
// independent of tree structure. Edges are only meaningful while both
// endpoints stay in the tree context they were created in; moves across
// trees delete them.
type PrerequisiteEdge struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	PrerequisiteID uint `gorm:"index"`
	TargetNodeID   uint `gorm:"index"`
}
