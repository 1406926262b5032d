package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"custos/internal/dataprocessing"
	"custos/internal/infrastructure"
)

// Session is one browser's loaded workbook
type Session struct {
	ID         string
	Workbook   *dataprocessing.Workbook
	FileName   string
	Size       int64
	UploadedAt time.Time
	LastAccess time.Time
}

// SessionStore keeps uploaded workbooks in memory, keyed by a random session ID.
// Entries idle longer than the TTL are dropped by Sweep; when the store is
// full the least recently used entry makes room for a new one.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl     time.Duration
	max     int
	now     func() time.Time
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewSessionStore creates an empty store. A non-positive max means unbounded.
func NewSessionStore(ttl time.Duration, max int, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "session_store"),
	}
}

// WithClock replaces the time source, for tests
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

// Put stores a workbook under a fresh ID and returns the new session
func (s *SessionStore) Put(ctx context.Context, wb *dataprocessing.Workbook, fileName string, size int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		Workbook:   wb,
		FileName:   fileName,
		Size:       size,
		UploadedAt: now,
		LastAccess: now,
	}

	if s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldestLocked(ctx)
	}
	s.sessions[sess.ID] = sess
	s.metrics.RecordActiveSessionsChange(ctx, 1)

	s.logger.DebugContext(ctx, "session created",
		slog.String("session_id", sess.ID),
		slog.String("file", fileName),
		slog.Int("active", len(s.sessions)))
	return *sess
}

// Replace swaps the workbook of an existing session, keeping its ID
func (s *SessionStore) Replace(ctx context.Context, id string, wb *dataprocessing.Workbook, fileName string, size int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveLocked(ctx, id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	now := s.now()
	sess.Workbook = wb
	sess.FileName = fileName
	sess.Size = size
	sess.UploadedAt = now
	sess.LastAccess = now

	s.logger.DebugContext(ctx, "session replaced",
		slog.String("session_id", id),
		slog.String("file", fileName))
	return *sess, nil
}

// Get returns the session and refreshes its last access time
func (s *SessionStore) Get(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveLocked(ctx, id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	sess.LastAccess = s.now()
	return *sess, nil
}

// Delete removes a session. Deleting an unknown ID reports ErrSessionNotFound.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	s.removeLocked(ctx, id)
	s.logger.DebugContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// Sweep drops every session idle for longer than the TTL and returns how many went
func (s *SessionStore) Sweep(ctx context.Context, now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccess) > s.ttl {
			s.removeLocked(ctx, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired sessions swept",
			slog.Int("removed", removed),
			slog.Int("active", len(s.sessions)))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx, s.now())
		}
	}
}

// Len returns the number of stored sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// liveLocked returns the session unless it is missing or already past its TTL
func (s *SessionStore) liveLocked(ctx context.Context, id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(sess.LastAccess) > s.ttl {
		s.removeLocked(ctx, id)
		return nil, false
	}
	return sess, true
}

func (s *SessionStore) evictOldestLocked(ctx context.Context) {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.LastAccess.Before(oldest.LastAccess) {
			oldest = sess
		}
	}
	if oldest == nil {
		return
	}
	s.removeLocked(ctx, oldest.ID)
	s.logger.InfoContext(ctx, "session evicted",
		slog.String("session_id", oldest.ID),
		slog.Int("max_sessions", s.max))
}

func (s *SessionStore) removeLocked(ctx context.Context, id string) {
	delete(s.sessions, id)
	s.metrics.RecordActiveSessionsChange(ctx, -1)
}
