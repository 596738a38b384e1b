package treemgr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var insertsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "treemgr_inserts_processed_total",
	Help: "Total number of committed single-node inserts",
})

var movesProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "treemgr_moves_processed_total",
	Help: "Total number of committed node moves",
})

var treesBuilt = promauto.NewCounter(prometheus.CounterOpts{
	Name: "treemgr_trees_built_total",
	Help: "Total number of bulk-built subtrees",
})

var treeIDsAllocated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "treemgr_tree_ids_allocated_total",
	Help: "Total number of tree ids issued by the allocator",
})
