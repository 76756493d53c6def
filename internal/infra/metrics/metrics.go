package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropdesk_updates_total",
		Help: "Processed Telegram updates by kind.",
	}, []string{"kind"})

	FormsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropdesk_forms_submitted_total",
		Help: "Forms sent to review (including resubmits).",
	})

	FormsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropdesk_forms_reviewed_total",
		Help: "Review decisions by outcome.",
	}, []string{"outcome"})

	DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropdesk_duplicates_detected_total",
		Help: "Hard duplicate gate hits.",
	})

	PaymentsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropdesk_payments_captured_total",
		Help: "Payment details recorded for approved forms.",
	})

	PoolAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropdesk_pool_assignments_total",
		Help: "Successful pool item claims.",
	})

	CleanupDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropdesk_cleanup_deleted_messages_total",
		Help: "Messages removed by the nightly chat cleanup.",
	})
)
