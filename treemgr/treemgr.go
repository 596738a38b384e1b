package treemgr

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/contentgrove/treestore/events"
	"github.com/contentgrove/treestore/models"
)

var tracer = otel.Tracer("treemgr")

// Position describes where a node lands relative to its target.
type Position string

const (
	PositionFirstChild Position = "first-child"
	PositionLastChild  Position = "last-child"
	PositionLeft       Position = "left"
	PositionRight      Position = "right"
)

// TreeManager is the tree-mutation service. All structural writes go
// through it; it owns lock scoping, tree id allocation, change flagging
// and post-commit move events.
type TreeManager struct {
	db     *gorm.DB
	Logger *slog.Logger
	Events *events.EventManager
	Config TreeManagerConfig

	// read-path cache only; purged wholesale on structural writes since
	// boundary shifts touch rows far beyond the changed-id set
	nodeCache *lru.Cache[uint, *models.Node]
}

type TreeManagerConfig struct {
	NodeCacheSize int
}

func DefaultTreeManagerConfig() *TreeManagerConfig {
	return &TreeManagerConfig{
		NodeCacheSize: 2 << 14,
	}
}

func NewTreeManager(db *gorm.DB, evts *events.EventManager, config *TreeManagerConfig) (*TreeManager, error) {
	if config == nil {
		config = DefaultTreeManagerConfig()
	}

	if err := db.AutoMigrate(&models.Node{}, &models.TreeIDSequence{}, &models.PrerequisiteEdge{}); err != nil {
		return nil, fmt.Errorf("tree manager migration failed: %w", err)
	}

	cache, err := lru.New[uint, *models.Node](config.NodeCacheSize)
	if err != nil {
		return nil, err
	}

	return &TreeManager{
		db:        db,
		Logger:    slog.Default().With("system", "treemgr"),
		Events:    evts,
		Config:    *config,
		nodeCache: cache,
	}, nil
}

// GetNode fetches a node by id, through the read cache. Callers get their
// own copy: mutation paths write into the structs handed to them, and a
// shared cache entry must never see those writes.
func (tm *TreeManager) GetNode(ctx context.Context, id uint) (*models.Node, error) {
	if n, ok := tm.nodeCache.Get(id); ok {
		out := *n
		return &out, nil
	}

	var n models.Node
	if err := tm.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load node %d: %w", id, err)
	}
	tm.nodeCache.Add(id, &n)
	out := n
	return &out, nil
}

// markChanged writes the changed flag straight to storage for the given
// ids. The caller holds no in-memory handles to most of these rows (old
// and new parents), so a direct update is the only option.
func (tm *TreeManager) markChanged(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tm.db.WithContext(ctx).Model(&models.Node{}).Where("id IN ?", ids).Update("changed", true).Error; err != nil {
		return fmt.Errorf("failed to flag changed nodes: %w", err)
	}
	tm.nodeCache.Purge()
	return nil
}
