package routes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	viewComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accessmap",
		Name:      "view_computations_total",
		Help:      "Access map views computed, by response format.",
	}, []string{"format"})

	unplacedEntities = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "accessmap",
		Name:      "unplaced_entities_total",
		Help:      "Entities left off the web because their rings were full.",
	})

	overlapPercentage = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "accessmap",
		Name:      "overlap_percentage",
		Help:      "Share of visible entities reached by more than one active client.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	graphMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accessmap",
		Name:      "graph_mutations_total",
		Help:      "Rows written to the network graph, by kind.",
	}, []string{"kind"})

	snapshotRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accessmap",
		Name:      "snapshot_requests_total",
		Help:      "Snapshot requests, by outcome.",
	}, []string{"outcome"})
)
