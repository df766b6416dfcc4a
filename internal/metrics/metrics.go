package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// HiresTotal counts hire attempts by outcome
	// (success, not_found, forbidden, conflict_gig, conflict_bid, error).
	HiresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_hires_total",
			Help: "Total number of hire attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// PartialHiresTotal counts two-step hires that closed the gig but did not
	// commit the bid.
	PartialHiresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gigflow_partial_hires_total",
			Help: "Hires that assigned the gig but failed to mark the bid hired.",
		},
	)

	BidsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_bids_rejected_total",
			Help: "Bids rejected by cascade, labelled by who ran it (hire, reconciler).",
		},
		[]string{"source"},
	)

	CascadeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gigflow_cascade_failures_total",
			Help: "Cascade rejections that failed and were left to the reconciler.",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_notifications_total",
			Help: "Realtime notifications by delivery result.",
		},
		[]string{"event", "result"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gigflow_realtime_connections",
			Help: "Principals with a registered realtime channel.",
		},
	)

	OrphanedAssignments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gigflow_orphaned_assignments",
			Help: "Assigned gigs without a hired bid, as of the last reconcile run.",
		},
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_reconcile_runs_total",
			Help: "Reconciler runs by status.",
		},
		[]string{"status"},
	)
)
