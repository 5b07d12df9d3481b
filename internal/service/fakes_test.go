package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
)

// The fakes run the real transaction closures against in-memory state. The
// pgx.Tx handle is opaque to the service layer, so passing nil through is
// safe as long as no fake dereferences it.

type fakeTxManager struct {
	beginErr error
}

func (f *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(ctx, nil)
}

type fakeEventStore struct {
	mu     sync.Mutex
	events map[int64]*models.Event
}

func newFakeEventStore(events ...*models.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[int64]*models.Event)}
	for _, ev := range events {
		cp := *ev
		s.events[ev.ID] = &cp
	}
	return s
}

func (s *fakeEventStore) LockForUpdate(ctx context.Context, tx pgx.Tx, eventID int64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (s *fakeEventStore) AddReservedSeats(ctx context.Context, tx pgx.Tx, eventID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	ev.ReservedSeats += delta
	return nil
}

func (s *fakeEventStore) SetCapacity(ctx context.Context, tx pgx.Tx, eventID int64, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	ev.Capacity = capacity
	return nil
}

func (s *fakeEventStore) Create(ctx context.Context, ev *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = int64(len(s.events) + 1)
	cp := *ev
	s.events[ev.ID] = &cp
	return ev, nil
}

func (s *fakeEventStore) Delete(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return apperrors.ErrEventNotFound
	}
	delete(s.events, eventID)
	return nil
}

func (s *fakeEventStore) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.LockForUpdate(ctx, nil, eventID)
}

func (s *fakeEventStore) List(ctx context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeEventStore) reserved(eventID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[eventID].ReservedSeats
}

func (s *fakeEventStore) setReserved(eventID int64, reserved int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventID].ReservedSeats = reserved
}

type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings []models.Booking
}

func (s *fakeBookingStore) InsertTx(ctx context.Context, tx pgx.Tx, b *models.Booking) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	b.Status = models.BookingStatusConfirmed
	b.CreatedAt = time.Now()
	s.bookings = append(s.bookings, *b)
	return b, nil
}

func (s *fakeBookingStore) CancelTx(ctx context.Context, tx pgx.Tx, eventID, userID int64, bookingID *int64, cancelAll bool) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []int
	for i := len(s.bookings) - 1; i >= 0; i-- {
		b := s.bookings[i]
		if b.EventID != eventID || b.UserID != userID || b.Status != models.BookingStatusConfirmed {
			continue
		}
		if bookingID != nil && b.ID != *bookingID {
			continue
		}
		matched = append(matched, i)
		if bookingID != nil || !cancelAll {
			break
		}
	}
	if len(matched) == 0 {
		return nil, apperrors.ErrBookingNotFound
	}

	now := time.Now()
	var cancelled []models.Booking
	for _, i := range matched {
		s.bookings[i].Status = models.BookingStatusCancelled
		s.bookings[i].CancelledAt = &now
		cancelled = append(cancelled, s.bookings[i])
	}
	return cancelled, nil
}

func (s *fakeBookingStore) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBookingStore) ListActive(ctx context.Context) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.IsActive() {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeWaitlistStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []models.WaitlistEntry
}

func (s *fakeWaitlistStore) Insert(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	entry.CreatedAt = time.Now().Add(time.Duration(s.nextID) * time.Millisecond)
	s.entries = append(s.entries, *entry)
	return entry, nil
}

func (s *fakeWaitlistStore) HeadTx(ctx context.Context, tx pgx.Tx, eventID int64) (*models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.headIndex(eventID)
	if idx < 0 {
		return nil, apperrors.ErrWaitlistEmpty
	}
	cp := s.entries[idx]
	return &cp, nil
}

func (s *fakeWaitlistStore) DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeWaitlistStore) ShrinkTx(ctx context.Context, tx pgx.Tx, id int64, remaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].NumberOfSeats = remaining
			return nil
		}
	}
	return apperrors.ErrWaitlistEmpty
}

func (s *fakeWaitlistStore) ListByEvent(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range s.entries {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	s.sortFIFO(out)
	return out, nil
}

func (s *fakeWaitlistStore) ListAll(ctx context.Context) ([]models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.WaitlistEntry(nil), s.entries...)
	s.sortFIFO(out)
	return out, nil
}

func (s *fakeWaitlistStore) headIndex(eventID int64) int {
	idx := -1
	for i, e := range s.entries {
		if e.EventID != eventID {
			continue
		}
		if idx < 0 {
			idx = i
			continue
		}
		head := s.entries[idx]
		if e.CreatedAt.Before(head.CreatedAt) || (e.CreatedAt.Equal(head.CreatedAt) && e.ID < head.ID) {
			idx = i
		}
	}
	return idx
}

func (s *fakeWaitlistStore) sortFIFO(entries []models.WaitlistEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

type fakeUserStore struct {
	users map[int64]*models.User
}

func (s *fakeUserStore) Get(ctx context.Context, userID int64) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) List(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeCache struct {
	mu             sync.Mutex
	events         map[int64]*models.Event
	reserved       map[int64]int
	bookings       map[int64]*models.Booking
	users          map[int64]*models.User
	pushed         []models.WaitlistEntry
	queues         map[int64][]models.WaitlistEntry
	closed         map[int64]bool
	flushed        int
	getEventErr    error
	setReservedErr error
	putBookingErr  error
	pushErr        error
	replaceErr     error
	closedErr      error
	listClosedErr  error
	flushErr       error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		events:   make(map[int64]*models.Event),
		reserved: make(map[int64]int),
		bookings: make(map[int64]*models.Booking),
		users:    make(map[int64]*models.User),
		queues:   make(map[int64][]models.WaitlistEntry),
		closed:   make(map[int64]bool),
	}
}

func (c *fakeCache) PutEvent(ctx context.Context, ev *models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *ev
	c.events[ev.ID] = &cp
	c.reserved[ev.ID] = ev.ReservedSeats
	return nil
}

func (c *fakeCache) SetEventReservedSeats(ctx context.Context, eventID int64, reserved int) error {
	if c.setReservedErr != nil {
		return c.setReservedErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserved[eventID] = reserved
	return nil
}

func (c *fakeCache) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	if c.getEventErr != nil {
		return nil, c.getEventErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[eventID]
	if !ok {
		return nil, apperrors.ErrCacheMiss
	}
	cp := *ev
	return &cp, nil
}

func (c *fakeCache) DeleteEvent(ctx context.Context, eventID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.events, eventID)
	delete(c.reserved, eventID)
	delete(c.queues, eventID)
	delete(c.closed, eventID)
	return nil
}

func (c *fakeCache) PutBooking(ctx context.Context, b *models.Booking) error {
	if c.putBookingErr != nil {
		return c.putBookingErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *b
	c.bookings[b.ID] = &cp
	return nil
}

func (c *fakeCache) PutUser(ctx context.Context, u *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *u
	c.users[u.ID] = &cp
	return nil
}

func (c *fakeCache) PushWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error {
	if c.pushErr != nil {
		return c.pushErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, *entry)
	c.queues[entry.EventID] = append(c.queues[entry.EventID], *entry)
	return nil
}

func (c *fakeCache) ReplaceWaitlist(ctx context.Context, eventID int64, entries []models.WaitlistEntry) error {
	if c.replaceErr != nil {
		return c.replaceErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[eventID] = append([]models.WaitlistEntry(nil), entries...)
	return nil
}

func (c *fakeCache) IsWaitlistClosed(ctx context.Context, eventID int64) (bool, error) {
	if c.closedErr != nil {
		return false, c.closedErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed[eventID], nil
}

func (c *fakeCache) SetWaitlistClosed(ctx context.Context, eventID int64, closed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if closed {
		c.closed[eventID] = true
	} else {
		delete(c.closed, eventID)
	}
	return nil
}

func (c *fakeCache) ListClosedWaitlists(ctx context.Context) ([]int64, error) {
	if c.listClosedErr != nil {
		return nil, c.listClosedErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int64
	for id := range c.closed {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (c *fakeCache) Flush(ctx context.Context) error {
	if c.flushErr != nil {
		return c.flushErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed++
	c.events = make(map[int64]*models.Event)
	c.reserved = make(map[int64]int)
	c.bookings = make(map[int64]*models.Booking)
	c.users = make(map[int64]*models.User)
	c.pushed = nil
	c.queues = make(map[int64][]models.WaitlistEntry)
	c.closed = make(map[int64]bool)
	return nil
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[messageID] {
		return false, nil
	}
	s.seen[messageID] = true
	return true, nil
}

type fakeProducer struct {
	mu            sync.Mutex
	requests      []kafka.BookingRequest
	triggers      []kafka.WaitlistAllocationTrigger
	notifications []kafka.NotificationEvent
	publishErr    error
}

func (p *fakeProducer) PublishBookingRequest(ctx context.Context, req kafka.BookingRequest) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return nil
}

func (p *fakeProducer) PublishWaitlistTrigger(ctx context.Context, trg kafka.WaitlistAllocationTrigger) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triggers = append(p.triggers, trg)
	return nil
}

func (p *fakeProducer) PublishNotification(ctx context.Context, event kafka.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) notificationsOfType(typ kafka.NotificationType) []kafka.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.NotificationEvent
	for _, n := range p.notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type fakeReconcileTrigger struct {
	mu    sync.Mutex
	count int
}

func (t *fakeReconcileTrigger) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
}

func (t *fakeReconcileTrigger) triggered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count > 0
}

var errBackendDown = errors.New("backend down")
