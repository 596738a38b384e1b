package treemgr

// changedNodeIDs computes which rows need their changed flag set after a
// structural mutation: the former parent, the new parent, and the mutated
// node itself. Pure bookkeeping, no side effects; the flag write is the
// caller's job. When the node was never persisted there is nothing to
// write, matching the in-memory-only insert path.
func changedNodeIDs(originalParentID, newParentID *uint, nodeID uint, persisted bool) []uint {
	if !persisted {
		return nil
	}

	ids := make([]uint, 0, 3)
	seen := make(map[uint]bool, 3)
	add := func(id uint) {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if originalParentID != nil {
		add(*originalParentID)
	}
	if newParentID != nil {
		add(*newParentID)
	}
	add(nodeID)
	return ids
}
