package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tawk-service/internal/models"
)

// UserPresenceWriter is the slice of the user repository the store needs.
type UserPresenceWriter interface {
	SetPresence(ctx context.Context, userID int, status string, socketID *string) error
}

// Store persists presence transitions to the user record and mirrors them
// into Redis under a TTL'd key, so other services can read liveness without
// touching this process. The Redis client may be nil.
type Store struct {
	users UserPresenceWriter
	rdb   *redis.Client
	ttl   time.Duration
}

// NewStore constructs a Store.
func NewStore(users UserPresenceWriter, rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{users: users, rdb: rdb, ttl: ttl}
}

func presenceKey(userID int) string {
	return fmt.Sprintf("presence:%d", userID)
}

// SetOnline records the user as online with its connection handle.
func (s *Store) SetOnline(ctx context.Context, userID int, connID string) error {
	if err := s.users.SetPresence(ctx, userID, models.StatusOnline, &connID); err != nil {
		return err
	}
	if s.rdb != nil {
		return s.rdb.Set(ctx, presenceKey(userID), connID, s.ttl).Err()
	}
	return nil
}

// SetOffline records the user as offline and clears the connection handle.
func (s *Store) SetOffline(ctx context.Context, userID int) error {
	if err := s.users.SetPresence(ctx, userID, models.StatusOffline, nil); err != nil {
		return err
	}
	if s.rdb != nil {
		return s.rdb.Del(ctx, presenceKey(userID)).Err()
	}
	return nil
}
