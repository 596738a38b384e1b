package treemgr

import "errors"

var (
	// ErrInvalidMove is returned when a requested move would break the
	// tree shape, eg making a node a child of its own descendant.
	ErrInvalidMove = errors.New("invalid move")

	// ErrInvalidPosition is returned for a position outside the four
	// supported values.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNodeExists is returned when inserting a node that already has a
	// primary key without opting in via AllowExistingID.
	ErrNodeExists = errors.New("node already has an id")
)
