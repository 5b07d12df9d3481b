package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_bookings_confirmed_total",
		Help: "Booking requests granted in full.",
	})

	BookingsPartial = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_bookings_partial_total",
		Help: "Booking requests granted partially with the remainder waitlisted.",
	})

	BookingsWaitlisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_bookings_waitlisted_total",
		Help: "Booking requests placed entirely on the waitlist.",
	})

	BookingsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_bookings_rejected_total",
		Help: "Booking requests dropped because the event is gone or its waitlist is closed.",
	})

	DuplicateMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_duplicate_messages_total",
		Help: "Messages skipped by the idempotency guard.",
	})

	WaitlistSeatsAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_waitlist_seats_allocated_total",
		Help: "Seats granted to waitlist entries by allocation passes.",
	})

	CacheReconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomicseats_cache_reconciliations_total",
		Help: "Full cache rebuilds from durable state.",
	})

	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomicseats_messages_consumed_total",
		Help: "Queue messages consumed, labelled by envelope kind.",
	}, []string{"kind"})
)
