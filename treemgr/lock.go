package treemgr

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contentgrove/treestore/models"
)

type trackingSuspendedKey struct{}

// WithTrackingSuspended marks the context as running inside a bulk import
// where the caller already guarantees exclusivity; tree locks become a
// passthrough. This is an explicit escape hatch, never a default.
func WithTrackingSuspended(ctx context.Context) context.Context {
	return context.WithValue(ctx, trackingSuspendedKey{}, true)
}

func trackingSuspended(ctx context.Context) bool {
	v, _ := ctx.Value(trackingSuspendedKey{}).(bool)
	return v
}

// WithTreeLock runs body inside one transaction holding an exclusive
// row-range lock on every row whose tree_id is in treeIDs. Only the
// structural columns are read, and no ordering is requested: the engine
// may lock rows in any order, all that matters is that they are locked
// until the transaction ends. Zero and duplicate tree ids are dropped.
//
// Locks are taken only while NOT in tracking-suspended mode.
func (tm *TreeManager) WithTreeLock(ctx context.Context, treeIDs []int64, body func(tx *gorm.DB) error) error {
	if trackingSuspended(ctx) {
		return body(tm.db.WithContext(ctx))
	}

	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]int64, 0, len(treeIDs))
		seen := make(map[int64]bool, len(treeIDs))
		for _, id := range treeIDs {
			if id > 0 && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}

		if len(ids) > 0 {
			q := tx.Model(&models.Node{}).
				Select("tree_id", "lft", "rght", "level", "parent_id").
				Where("tree_id IN ?", ids)
			// sqlite has no row locks; its write transaction already
			// serializes writers
			if tx.Dialector.Name() != "sqlite" {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			var rows []models.Node
			if err := q.Find(&rows).Error; err != nil {
				return fmt.Errorf("failed to lock trees %v: %w", ids, err)
			}
		}

		return body(tx)
	})
}
