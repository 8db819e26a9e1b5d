// Package service owns the in-memory editing sessions and coordinates the
// wait registry, user accounts and the optional store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chessassist/internal/server/editor"
	"chessassist/internal/server/storage"
)

const (
	DefaultMaxSessions = 1000
	SessionIdleTTL     = 24 * time.Hour
	TokenTTL           = 7 * 24 * time.Hour
	AuditRetention     = 30 * 24 * time.Hour
	CleanupJobInterval = 1 * time.Hour
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrForbidden       = errors.New("session belongs to another user")
	ErrStorageDisabled = errors.New("storage disabled")
)

// Service coordinates editing sessions, user management, and storage
type Service struct {
	sessions    map[string]*editor.Session
	mu          sync.RWMutex
	store       *storage.Store
	jwtSecret   []byte
	waiter      *WaitRegistry
	maxSessions int
}

// New creates a new service instance with optional storage
func New(store *storage.Store, jwtSecret []byte) *Service {
	return &Service{
		sessions:    make(map[string]*editor.Session),
		store:       store,
		jwtSecret:   jwtSecret,
		waiter:      NewWaitRegistry(),
		maxSessions: DefaultMaxSessions,
	}
}

// SetMaxSessions overrides the live session cap; n < 1 restores the default.
func (s *Service) SetMaxSessions(n int) {
	if n < 1 {
		n = DefaultMaxSessions
	}
	s.mu.Lock()
	s.maxSessions = n
	s.mu.Unlock()
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	s.sessions = make(map[string]*editor.Session)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunCleanupJob runs periodic cleanup of idle sessions and expired records
func (s *Service) RunCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired(time.Now().UTC())
		}
	}
}

func (s *Service) cleanupExpired(now time.Time) {
	if n := s.evictIdleSessions(now.Add(-SessionIdleTTL)); n > 0 {
		log.Printf("cleanup: evicted %d idle editing sessions", n)
	}

	if s.store == nil {
		return
	}

	if deleted, err := s.store.DeleteExpiredSessions(); err != nil {
		log.Printf("cleanup: failed to delete expired logins: %v", err)
	} else if deleted > 0 {
		log.Printf("cleanup: deleted %d expired logins", deleted)
	}

	if deleted, err := s.store.DeleteAnalysesBefore(now.Add(-AuditRetention)); err != nil {
		log.Printf("cleanup: failed to prune analysis log: %v", err)
	} else if deleted > 0 {
		log.Printf("cleanup: pruned %d analysis records", deleted)
	}
}
