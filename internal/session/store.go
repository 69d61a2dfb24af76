package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/skypro1111/rxvoice/internal/metrics"
)

// Store holds conversation state keyed by sender address.
type Store interface {
	// Get returns the state for id and whether it exists.
	Get(id string) (State, bool)

	// Put stores s unconditionally and returns the stored copy.
	Put(id string, s State) State

	// CompareAndSwap stores next only if the current version equals
	// old.Version. A zero old.Version means the entry must not exist.
	CompareAndSwap(id string, old, next State) bool

	// Lock serializes callers working on the same id. The returned function
	// releases the lock.
	Lock(id string) (unlock func())
}

// Config contains session store configuration
type Config struct {
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
}

// Stats is a snapshot of store counters
type Stats struct {
	Active  int    `json:"active"`
	Evicted uint64 `json:"evicted"`
	Locked  int    `json:"locked"`
}

// Info describes one session for monitoring endpoints
type Info struct {
	ID string `json:"id"`
	State
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryStore is an in-memory Store with idle and capacity eviction.
type MemoryStore struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]State
	evicted  uint64

	locksMu sync.Mutex
	locks   map[string]*keyLock

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewMemoryStore creates a store and starts its cleanup routine.
func NewMemoryStore(config Config, logger *slog.Logger, m *metrics.Metrics) *MemoryStore {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 24 * time.Hour
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 30 * time.Second
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = 10000
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &MemoryStore{
		config:   config,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]State),
		locks:    make(map[string]*keyLock),
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go s.startCleanupRoutine()

	return s
}

// Get retrieves a session
func (s *MemoryStore) Get(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	return st, ok
}

// Put stores a session unconditionally
func (s *MemoryStore) Put(id string, st State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[id]
	return s.storeLocked(id, st, current, exists)
}

// CompareAndSwap stores next when the stored version still matches old
func (s *MemoryStore) CompareAndSwap(id string, old, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[id]
	if !exists {
		if old.Version != 0 {
			return false
		}
	} else if current.Version != old.Version {
		return false
	}

	s.storeLocked(id, next, current, exists)
	return true
}

func (s *MemoryStore) storeLocked(id string, st, current State, exists bool) State {
	now := s.now()
	if !exists {
		if len(s.sessions) >= s.config.MaxSessions {
			s.evictOldestLocked()
		}
		st.CreatedAt = now
	} else {
		st.CreatedAt = current.CreatedAt
	}
	st.Version = current.Version + 1
	st.LastActivity = now

	s.sessions[id] = st
	s.metrics.SetActiveSessions(len(s.sessions))
	return st
}

// evictOldestLocked drops the least recently active session.
func (s *MemoryStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, st := range s.sessions {
		if oldestID == "" || st.LastActivity.Before(oldest) {
			oldestID = id
			oldest = st.LastActivity
		}
	}
	if oldestID == "" {
		return
	}

	delete(s.sessions, oldestID)
	s.evicted++
	s.metrics.RecordSessionEvicted()
	s.logger.Info("Evicted least recently active session",
		slog.String("session_id", oldestID),
		slog.Int("max_sessions", s.config.MaxSessions),
	)
}

// Lock acquires the per-id turn lock
func (s *MemoryStore) Lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &keyLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, id)
			}
			s.locksMu.Unlock()
		})
	}
}

// Remove deletes a session
func (s *MemoryStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	s.metrics.SetActiveSessions(len(s.sessions))
	return true
}

// List returns all sessions ordered by most recent activity
func (s *MemoryStore) List() []Info {
	s.mu.RLock()
	out := make([]Info, 0, len(s.sessions))
	for id, st := range s.sessions {
		out = append(out, Info{ID: id, State: st})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// GetStats returns store counters
func (s *MemoryStore) GetStats() Stats {
	s.mu.RLock()
	active, evicted := len(s.sessions), s.evicted
	s.mu.RUnlock()

	s.locksMu.Lock()
	locked := len(s.locks)
	s.locksMu.Unlock()

	return Stats{Active: active, Evicted: evicted, Locked: locked}
}

// Stop ends the cleanup routine
func (s *MemoryStore) Stop() {
	s.cancel()
	<-s.cleanup

	s.logger.Info("Session store stopped",
		slog.Int("remaining_sessions", s.GetStats().Active),
	)
}

func (s *MemoryStore) startCleanupRoutine() {
	defer close(s.cleanup)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	s.logger.Debug("Session cleanup routine started",
		slog.Duration("idle_timeout", s.config.IdleTimeout),
		slog.Duration("check_interval", s.config.CleanupInterval),
	)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions drops sessions idle longer than the timeout.
func (s *MemoryStore) cleanupExpiredSessions() {
	now := s.now()

	s.mu.Lock()
	expired := 0
	for id, st := range s.sessions {
		if now.Sub(st.LastActivity) > s.config.IdleTimeout {
			delete(s.sessions, id)
			expired++
		}
	}
	s.evicted += uint64(expired)
	active := len(s.sessions)
	s.mu.Unlock()

	if expired == 0 {
		return
	}

	for i := 0; i < expired; i++ {
		s.metrics.RecordSessionEvicted()
	}
	s.metrics.SetActiveSessions(active)
	s.logger.Info("Cleaned up idle sessions",
		slog.Int("expired_count", expired),
		slog.Int("active", active),
	)
}

var _ Store = (*MemoryStore)(nil)
