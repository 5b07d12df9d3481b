package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
)

func (f *reservationFixture) seedWaitlist(t *testing.T, userID int64, seats int) {
	t.Helper()
	_, err := f.waitlist.Insert(context.Background(), &models.WaitlistEntry{
		UserID:        userID,
		EventID:       1,
		NumberOfSeats: seats,
	})
	require.NoError(t, err)
}

func TestProcessWaitlistTrigger_DrainsInOrder(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 5, "10"))
	f.users.users[11] = &models.User{ID: 11, Email: "first@example.com"}
	f.users.users[12] = &models.User{ID: 12, Email: "second@example.com"}
	f.seedWaitlist(t, 11, 3)
	f.seedWaitlist(t, 12, 2)
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	assert.Equal(t, 10, f.events.reserved(1))
	assert.Empty(t, f.waitlist.entries)

	require.Len(t, f.bookings.bookings, 2)
	assert.Equal(t, int64(11), f.bookings.bookings[0].UserID)
	assert.Equal(t, 3, f.bookings.bookings[0].NumberOfSeats)
	assert.True(t, f.bookings.bookings[0].Cost.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, int64(12), f.bookings.bookings[1].UserID)

	notes := f.prod.notificationsOfType(kafka.NotificationWaitlistConfirmed)
	require.Len(t, notes, 2)
	assert.Equal(t, "first@example.com", notes[0].Payload.UserEmail)
	assert.Equal(t, "second@example.com", notes[1].Payload.UserEmail)
}

func TestProcessWaitlistTrigger_PartialHeadKeepsPosition(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 8, "10"))
	f.users.users[11] = &models.User{ID: 11, Email: "first@example.com"}
	f.seedWaitlist(t, 11, 5)
	f.seedWaitlist(t, 12, 1)
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	// Head got the 2 available seats and stays at the front with 3 left.
	// Nobody behind it was considered.
	assert.Equal(t, 10, f.events.reserved(1))
	require.Len(t, f.bookings.bookings, 1)
	assert.Equal(t, int64(11), f.bookings.bookings[0].UserID)
	assert.Equal(t, 2, f.bookings.bookings[0].NumberOfSeats)

	require.Len(t, f.waitlist.entries, 2)
	head, err := f.waitlist.HeadTx(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), head.UserID)
	assert.Equal(t, 3, head.NumberOfSeats)
}

func TestProcessWaitlistTrigger_TrimsMirroredQueue(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 8, "10"))
	f.seedWaitlist(t, 11, 2)
	f.seedWaitlist(t, 12, 3)
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	// The granted head leaves the mirrored queue; the remaining entry keeps
	// its position instead of waiting for the next full rebuild.
	require.Len(t, f.cache.queues[1], 1)
	assert.Equal(t, int64(12), f.cache.queues[1][0].UserID)
	assert.Equal(t, 3, f.cache.queues[1][0].NumberOfSeats)
}

func TestProcessWaitlistTrigger_MirrorQueueDownTriggersReconcile(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 8, "10"))
	f.seedWaitlist(t, 11, 2)
	f.cache.replaceErr = errBackendDown
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	// The grant stands; only the mirror repair is deferred.
	require.Len(t, f.bookings.bookings, 1)
	assert.True(t, f.rec.triggered())
}

func TestProcessWaitlistTrigger_NoAvailabilityNoOp(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 10, "10"))
	f.seedWaitlist(t, 11, 2)
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	assert.Empty(t, f.bookings.bookings)
	assert.Len(t, f.waitlist.entries, 1)
	assert.Empty(t, f.prod.notifications)
}

func TestProcessWaitlistTrigger_EmptyWaitlistNoOp(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 2, "10"))
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, f.events.reserved(1))
	assert.Empty(t, f.bookings.bookings)
}

func TestProcessWaitlistTrigger_EventGoneDropsTrigger(t *testing.T) {
	f := newReservationFixture()
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 404})
	assert.NoError(t, err)
}

func TestProcessWaitlistTrigger_UnknownUserStillBooks(t *testing.T) {
	f := newReservationFixture(testEvent(1, 10, 5, "10"))
	f.seedWaitlist(t, 11, 2)
	ctx := context.Background()

	err := f.svc.ProcessWaitlistTrigger(ctx, kafka.WaitlistAllocationTrigger{EventID: 1})
	require.NoError(t, err)

	// The grant commits; the notification just goes out without an email.
	require.Len(t, f.bookings.bookings, 1)
	notes := f.prod.notificationsOfType(kafka.NotificationWaitlistConfirmed)
	require.Len(t, notes, 1)
	assert.Empty(t, notes[0].Payload.UserEmail)
}
