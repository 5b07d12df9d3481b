package kafka

const (
	// TopicBookingRequests carries reservation command envelopes, keyed by
	// event id so every message for one event lands on the same partition.
	TopicBookingRequests = "booking-requests"

	// TopicNotifyUser carries structured notification events for the
	// external notifier.
	TopicNotifyUser = "notify-user"
)
