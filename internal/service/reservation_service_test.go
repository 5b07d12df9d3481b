package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	pkgLog "github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

type reservationFixture struct {
	svc      ReservationService
	events   *fakeEventStore
	bookings *fakeBookingStore
	waitlist *fakeWaitlistStore
	users    *fakeUserStore
	cache    *fakeCache
	idem     *fakeIdempotencyStore
	prod     *fakeProducer
	rec      *fakeReconcileTrigger
}

func newReservationFixture(events ...*models.Event) *reservationFixture {
	f := &reservationFixture{
		events:   newFakeEventStore(events...),
		bookings: &fakeBookingStore{},
		waitlist: &fakeWaitlistStore{},
		users:    &fakeUserStore{users: map[int64]*models.User{}},
		cache:    newFakeCache(),
		idem:     newFakeIdempotencyStore(),
		prod:     &fakeProducer{},
		rec:      &fakeReconcileTrigger{},
	}
	f.svc = NewReservationService(
		pkgLog.InitializeTestZapLogger(),
		&fakeTxManager{},
		f.events, f.bookings, f.waitlist, f.users,
		f.cache, f.idem, f.prod, f.rec,
		time.Hour,
	)
	return f
}

func testEvent(id int64, capacity, reserved int, price string) *models.Event {
	p, _ := decimal.NewFromString(price)
	return &models.Event{
		ID:            id,
		Name:          "show",
		HostID:        99,
		Venue:         "arena",
		StartsAt:      time.Now().Add(24 * time.Hour),
		EndsAt:        time.Now().Add(26 * time.Hour),
		Capacity:      capacity,
		ReservedSeats: reserved,
		Price:         p,
	}
}

func bookingRequest(msgID string, seats int) kafka.BookingRequest {
	return kafka.BookingRequest{
		MessageID:     msgID,
		UserID:        7,
		EventID:       1,
		NumberOfSeats: seats,
		UserEmail:     "alice@example.com",
	}
}

func TestProcessBookingRequest_Confirmed(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "25.50"))
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 3))
	require.NoError(t, err)

	assert.Equal(t, 3, f.events.reserved(1))
	require.Len(t, f.bookings.bookings, 1)
	b := f.bookings.bookings[0]
	assert.Equal(t, int64(7), b.UserID)
	assert.Equal(t, 3, b.NumberOfSeats)
	assert.True(t, b.Cost.Equal(decimal.RequireFromString("76.50")))

	assert.Equal(t, 3, f.cache.reserved[1])
	assert.Contains(t, f.cache.bookings, b.ID)

	notes := f.prod.notificationsOfType(kafka.NotificationBookingConfirmed)
	require.Len(t, notes, 1)
	assert.Equal(t, "alice@example.com", notes[0].Payload.UserEmail)
	require.NotNil(t, notes[0].Payload.TotalCost)
	assert.True(t, notes[0].Payload.TotalCost.Equal(b.Cost))
	assert.Empty(t, f.waitlist.entries)
}

func TestProcessBookingRequest_PartialSplitsRemainder(t *testing.T) {
	f := newReservationFixture(testEvent(1, 5, 3, "10"))
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 4))
	require.NoError(t, err)

	// 2 seats confirmed, 2 waitlisted.
	assert.Equal(t, 5, f.events.reserved(1))
	require.Len(t, f.bookings.bookings, 1)
	assert.Equal(t, 2, f.bookings.bookings[0].NumberOfSeats)

	require.Len(t, f.waitlist.entries, 1)
	assert.Equal(t, 2, f.waitlist.entries[0].NumberOfSeats)
	assert.Len(t, f.cache.pushed, 1)

	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationBookingConfirmed), 1)
	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationWaitlisted), 1)
}

func TestProcessBookingRequest_SoldOutGoesToWaitlist(t *testing.T) {
	f := newReservationFixture(testEvent(1, 5, 5, "10"))
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 2))
	require.NoError(t, err)

	assert.Empty(t, f.bookings.bookings)
	assert.Equal(t, 5, f.events.reserved(1))
	require.Len(t, f.waitlist.entries, 1)
	assert.Equal(t, 2, f.waitlist.entries[0].NumberOfSeats)
	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationWaitlisted), 1)
}

func TestProcessBookingRequest_ClosedWaitlistRejects(t *testing.T) {
	f := newReservationFixture(testEvent(1, 5, 5, "10"))
	ctx := context.Background()
	require.NoError(t, f.cache.SetWaitlistClosed(ctx, 1, true))

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 2))
	require.NoError(t, err)

	assert.Empty(t, f.waitlist.entries)
	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationWaitlistClosed), 1)
}

func TestProcessBookingRequest_ClosedFlagUnavailableUsesHint(t *testing.T) {
	f := newReservationFixture(testEvent(1, 5, 5, "10"))
	f.cache.closedErr = errBackendDown
	ctx := context.Background()

	req := bookingRequest("m1", 2)
	req.WaitlistClosedHint = true
	require.NoError(t, f.svc.ProcessBookingRequest(ctx, req))

	assert.Empty(t, f.waitlist.entries)
	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationWaitlistClosed), 1)
}

func TestProcessBookingRequest_DuplicateSkipped(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "10"))
	ctx := context.Background()

	require.NoError(t, f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 3)))
	require.NoError(t, f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 3)))

	assert.Equal(t, 3, f.events.reserved(1))
	assert.Len(t, f.bookings.bookings, 1)
}

func TestProcessBookingRequest_EventGoneNotifiesFailure(t *testing.T) {
	f := newReservationFixture()
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 2))
	require.NoError(t, err)

	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationBookingFailed), 1)
}

func TestProcessBookingRequest_NegativeAvailabilityTriggersReconcile(t *testing.T) {
	f := newReservationFixture(testEvent(1, 5, 7, "10"))
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 2))
	require.NoError(t, err)

	assert.True(t, f.rec.triggered())
	assert.Empty(t, f.bookings.bookings)
	assert.Len(t, f.prod.notificationsOfType(kafka.NotificationBookingFailed), 1)
}

func TestProcessBookingRequest_MirrorFailureTriggersReconcile(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "10"))
	f.cache.setReservedErr = errBackendDown
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 3))
	require.NoError(t, err)

	// Durable state committed even though the mirror write failed.
	assert.Equal(t, 3, f.events.reserved(1))
	assert.True(t, f.rec.triggered())
}

func TestProcessBookingRequest_IdempotencyStoreDownReturnsError(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "10"))
	f.idem.err = errBackendDown
	ctx := context.Background()

	err := f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 3))
	require.Error(t, err)
	assert.Empty(t, f.bookings.bookings)
}

func TestCancelBooking_ReleasesSeatsAndSchedulesAllocation(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "10"))
	ctx := context.Background()
	require.NoError(t, f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 4)))

	out, err := f.svc.CancelBooking(ctx, 7, CancelBookingInput{EventID: 1, CancelAll: true})
	require.NoError(t, err)

	assert.Equal(t, 4, out.SeatsReleased)
	assert.Equal(t, 0, out.ReservedSeats)
	assert.Equal(t, 0, f.events.reserved(1))
	require.Len(t, out.CancelledBookings, 1)
	assert.Equal(t, models.BookingStatusCancelled, out.CancelledBookings[0].Status)

	require.Len(t, f.prod.triggers, 1)
	assert.Equal(t, int64(1), f.prod.triggers[0].EventID)
}

func TestCancelBooking_ClampsToReservedCounter(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "10"))
	ctx := context.Background()
	require.NoError(t, f.svc.ProcessBookingRequest(ctx, bookingRequest("m1", 4)))

	// Simulate counter drift below the booked total.
	f.events.setReserved(1, 2)

	out, err := f.svc.CancelBooking(ctx, 7, CancelBookingInput{EventID: 1, CancelAll: true})
	require.NoError(t, err)

	assert.Equal(t, 2, out.SeatsReleased)
	assert.Equal(t, 0, out.ReservedSeats)
	assert.Equal(t, 0, f.events.reserved(1))
}

func TestCancelBooking_NoMatch(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 0, "10"))
	ctx := context.Background()

	_, err := f.svc.CancelBooking(ctx, 7, CancelBookingInput{EventID: 1, CancelAll: true})
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestUpdateCapacity_RejectsBelowReserved(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 6, "10"))
	ctx := context.Background()

	_, err := f.svc.UpdateCapacity(ctx, 1, 5)
	assert.ErrorIs(t, err, apperrors.ErrCapacityBelowReserved)
}

func TestUpdateCapacity_GrowthSchedulesAllocation(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 6, "10"))
	ctx := context.Background()

	ev, err := f.svc.UpdateCapacity(ctx, 1, 15)
	require.NoError(t, err)

	assert.Equal(t, 15, ev.Capacity)
	require.Len(t, f.prod.triggers, 1)
	assert.Equal(t, int64(1), f.prod.triggers[0].EventID)
}

func TestUpdateCapacity_ShrinkWithinReservedNoTrigger(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 6, "10"))
	ctx := context.Background()

	ev, err := f.svc.UpdateCapacity(ctx, 1, 6)
	require.NoError(t, err)

	assert.Equal(t, 6, ev.Capacity)
	assert.Empty(t, f.prod.triggers)
}

func TestSetWaitlistClosed_UnknownEvent(t *testing.T) {
	f := newReservationFixture()
	ctx := context.Background()

	err := f.svc.SetWaitlistClosed(ctx, 42, true)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}
