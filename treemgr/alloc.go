package treemgr

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/contentgrove/treestore/models"
)

// NextTreeID issues a fresh, strictly increasing tree id by inserting a
// row into the dedicated sequence table. The sequence is independent of
// the node table, so concurrent root creation never contends with tree
// mutation locks.
func (tm *TreeManager) NextTreeID(ctx context.Context) (int64, error) {
	return nextTreeID(tm.db.WithContext(ctx))
}

// nextTreeID is the in-transaction form; mutation paths that need a
// fresh id mid-transaction allocate on their own handle.
func nextTreeID(db *gorm.DB) (int64, error) {
	seq := models.TreeIDSequence{}
	if err := db.Create(&seq).Error; err != nil {
		return 0, fmt.Errorf("failed to allocate tree id: %w", err)
	}
	treeIDsAllocated.Inc()
	return seq.ID, nil
}
