package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

func eventKey(id int64) string    { return fmt.Sprintf("event_%d", id) }
func bookingKey(id int64) string  { return fmt.Sprintf("booking_%d", id) }
func userKey(id int64) string     { return fmt.Sprintf("user_%d", id) }
func waitlistKey(id int64) string { return fmt.Sprintf("waitlist:%d", id) }
func closedKey(id int64) string   { return fmt.Sprintf("waitlist:%d:closed", id) }

const closedKeyPattern = "waitlist:*:closed"

// CacheRepository mirrors durable state into Redis hashes. Nothing here is
// authoritative; a stale or missing key is answered by a database read or a
// full reconciliation, never by guessing.
type CacheRepository struct {
	rdb *redis.Client
	l   logger.Logger
}

func NewCacheRepository(rdb *redis.Client, l logger.Logger) *CacheRepository {
	return &CacheRepository{rdb: rdb, l: l}
}

func (r *CacheRepository) PutEvent(ctx context.Context, ev *models.Event) error {
	err := r.rdb.HSet(ctx, eventKey(ev.ID), map[string]any{
		"name":           ev.Name,
		"description":    ev.Description,
		"host_id":        ev.HostID,
		"venue":          ev.Venue,
		"starts_at":      ev.StartsAt.Format(time.RFC3339Nano),
		"ends_at":        ev.EndsAt.Format(time.RFC3339Nano),
		"capacity":       ev.Capacity,
		"reserved_seats": ev.ReservedSeats,
		"price":          ev.Price.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("put event mirror: %w", err)
	}
	return nil
}

func (r *CacheRepository) SetEventReservedSeats(ctx context.Context, eventID int64, reserved int) error {
	if err := r.rdb.HSet(ctx, eventKey(eventID), "reserved_seats", reserved).Err(); err != nil {
		return fmt.Errorf("set mirrored reserved seats: %w", err)
	}
	return nil
}

func (r *CacheRepository) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	fields, err := r.rdb.HGetAll(ctx, eventKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get event mirror: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrCacheMiss
	}

	ev := &models.Event{ID: eventID}
	ev.Name = fields["name"]
	ev.Description = fields["description"]
	ev.Venue = fields["venue"]
	if ev.HostID, err = strconv.ParseInt(fields["host_id"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse mirrored host_id: %w", err)
	}
	if ev.StartsAt, err = time.Parse(time.RFC3339Nano, fields["starts_at"]); err != nil {
		return nil, fmt.Errorf("parse mirrored starts_at: %w", err)
	}
	if ev.EndsAt, err = time.Parse(time.RFC3339Nano, fields["ends_at"]); err != nil {
		return nil, fmt.Errorf("parse mirrored ends_at: %w", err)
	}
	if ev.Capacity, err = strconv.Atoi(fields["capacity"]); err != nil {
		return nil, fmt.Errorf("parse mirrored capacity: %w", err)
	}
	if ev.ReservedSeats, err = strconv.Atoi(fields["reserved_seats"]); err != nil {
		return nil, fmt.Errorf("parse mirrored reserved_seats: %w", err)
	}
	if ev.Price, err = decimal.NewFromString(fields["price"]); err != nil {
		return nil, fmt.Errorf("parse mirrored price: %w", err)
	}
	return ev, nil
}

func (r *CacheRepository) DeleteEvent(ctx context.Context, eventID int64) error {
	err := r.rdb.Del(ctx, eventKey(eventID), waitlistKey(eventID), closedKey(eventID)).Err()
	if err != nil {
		return fmt.Errorf("delete event mirror: %w", err)
	}
	return nil
}

func (r *CacheRepository) PutBooking(ctx context.Context, b *models.Booking) error {
	err := r.rdb.HSet(ctx, bookingKey(b.ID), map[string]any{
		"user_id":         b.UserID,
		"event_id":        b.EventID,
		"number_of_seats": b.NumberOfSeats,
		"cost":            b.Cost.String(),
		"status":          string(b.Status),
		"created_at":      b.CreatedAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("put booking mirror: %w", err)
	}
	return nil
}

func (r *CacheRepository) PutUser(ctx context.Context, u *models.User) error {
	err := r.rdb.HSet(ctx, userKey(u.ID), map[string]any{
		"name":  u.Name,
		"email": u.Email,
	}).Err()
	if err != nil {
		return fmt.Errorf("put user mirror: %w", err)
	}
	return nil
}

// PushWaitlistEntry appends the entry to the mirrored FIFO list. Callers
// push in (created_at, id) order so the list reflects queue position.
func (r *CacheRepository) PushWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal waitlist entry: %w", err)
	}
	if err := r.rdb.RPush(ctx, waitlistKey(entry.EventID), payload).Err(); err != nil {
		return fmt.Errorf("push waitlist mirror: %w", err)
	}
	return nil
}

// ReplaceWaitlist rewrites the mirrored queue so granted entries stop
// showing as pending.
func (r *CacheRepository) ReplaceWaitlist(ctx context.Context, eventID int64, entries []models.WaitlistEntry) error {
	if err := r.rdb.Del(ctx, waitlistKey(eventID)).Err(); err != nil {
		return fmt.Errorf("clear waitlist mirror: %w", err)
	}
	for i := range entries {
		if err := r.PushWaitlistEntry(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *CacheRepository) IsWaitlistClosed(ctx context.Context, eventID int64) (bool, error) {
	_, err := r.rdb.Get(ctx, closedKey(eventID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("read waitlist closed flag: %w", err)
	}
	return true, nil
}

func (r *CacheRepository) SetWaitlistClosed(ctx context.Context, eventID int64, closed bool) error {
	var err error
	if closed {
		err = r.rdb.Set(ctx, closedKey(eventID), "1", 0).Err()
	} else {
		err = r.rdb.Del(ctx, closedKey(eventID)).Err()
	}
	if err != nil {
		return fmt.Errorf("set waitlist closed flag: %w", err)
	}
	return nil
}

func (r *CacheRepository) ListClosedWaitlists(ctx context.Context) ([]int64, error) {
	var (
		eventIDs []int64
		cursor   uint64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, closedKeyPattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan closed waitlists: %w", err)
		}
		for _, key := range keys {
			raw := strings.TrimSuffix(strings.TrimPrefix(key, "waitlist:"), ":closed")
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				r.l.Warnf(ctx, "repository.redis.CacheRepository.ListClosedWaitlists: skip key %q: %v", key, err)
				continue
			}
			eventIDs = append(eventIDs, id)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return eventIDs, nil
}

// mirrorKeyPatterns covers every key the mirror owns. Consumed message ids
// (booking:msg:*) share the database and must survive a rebuild, so the
// flush deletes by pattern instead of dropping the whole database.
var mirrorKeyPatterns = []string{"event_*", "booking_*", "user_*", "waitlist:*"}

// Flush drops the mirror keys ahead of a rebuild from durable state.
func (r *CacheRepository) Flush(ctx context.Context) error {
	for _, pattern := range mirrorKeyPatterns {
		var cursor uint64
		for {
			keys, next, err := r.rdb.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("scan mirror keys: %w", err)
			}
			if len(keys) > 0 {
				if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("flush mirror: %w", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return nil
}
