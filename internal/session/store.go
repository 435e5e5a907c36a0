package session

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/spotdl-bot/core/logger"
)

const (
	// DefaultCapacity bounds the number of live sessions.
	DefaultCapacity = 1000
	// DefaultTTL bounds the lifetime of an idle session.
	DefaultTTL = 30 * time.Minute
)

// StoreOptions configures NewStore. Zero values select the defaults.
type StoreOptions struct {
	Capacity int
	TTL      time.Duration
}

// Store maps Telegram user ids to their current session. Entries are evicted
// least-recently-used first once Capacity is reached, and expire after TTL.
type Store struct {
	cache *expirable.LRU[int64, *Session]
}

// NewStore builds a bounded session store.
func NewStore(opts StoreOptions) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	onEvict := func(userID int64, _ *Session) {
		if logger.Sessions != nil && logger.ShouldSampleDebug() {
			logger.Sessions.Debug("session evicted",
				slog.String("event", "session.evict"),
				slog.Int64("user_id", userID),
			)
		}
	}
	return &Store{cache: expirable.NewLRU[int64, *Session](opts.Capacity, onEvict, opts.TTL)}
}

// Put replaces any session stored for userID.
func (s *Store) Put(userID int64, sess *Session) {
	if sess == nil {
		return
	}
	s.cache.Add(userID, sess)
}

// Get returns the session for userID.
func (s *Store) Get(userID int64) (*Session, bool) {
	return s.cache.Get(userID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
