// FILE: lixenwraith/chessassist/internal/server/service/session.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chessassist/internal/server/core"
	"chessassist/internal/server/editor"
	"chessassist/internal/server/storage"

	"github.com/google/uuid"
)

// CreateSession opens an editing session on fen, the standard position when
// fen is empty. ownerID may be empty for anonymous sessions.
func (s *Service) CreateSession(fen, ownerID string) (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		return nil, fmt.Errorf("%w: %d live sessions", ErrSessionLimit, len(s.sessions))
	}

	id := uuid.New().String()
	for _, taken := s.sessions[id]; taken; _, taken = s.sessions[id] {
		id = uuid.New().String()
	}

	sess, err := editor.New(id, fen)
	if err != nil {
		return nil, err
	}
	sess.SetOwner(ownerID)

	s.sessions[id] = sess
	return sess, nil
}

// GetSession looks up a live session
func (s *Service) GetSession(sessionID string) (*editor.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// AuthorizeSession returns the session if userID may edit it. Anonymous
// sessions are open to anyone holding the id.
func (s *Service) AuthorizeSession(sessionID, userID string) (*editor.Session, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if owner := sess.Owner(); owner != "" && owner != userID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// DeleteSession removes a session and releases its waiters
func (s *Service) DeleteSession(sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.waiter.RemoveSession(sessionID)
	return nil
}

// SessionCount returns the number of live sessions
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// NotifySession wakes long-poll clients after sess changed
func (s *Service) NotifySession(sess *editor.Session) {
	snap := sess.Snapshot()
	s.waiter.NotifySession(snap.ID, snap.Revision, snap.Analysis)
}

// RegisterWait registers a client to wait until the session differs from
// the revision and analysis state it last saw
func (s *Service) RegisterWait(ctx context.Context, sessionID string, revision int, state core.AnalysisState) <-chan struct{} {
	return s.waiter.RegisterWait(ctx, sessionID, revision, state)
}

// evictIdleSessions drops sessions untouched since cutoff. Sessions with an
// analysis in flight are kept.
func (s *Service) evictIdleSessions(cutoff time.Time) int {
	s.mu.Lock()
	var evicted []string
	for id, sess := range s.sessions {
		if sess.LastModified().Before(cutoff) && sess.AnalysisState() != core.AnalysisPending {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	for _, id := range evicted {
		s.waiter.RemoveSession(id)
	}
	return len(evicted)
}

// AnalysisAudit describes one finished collaborator request
type AnalysisAudit struct {
	SessionID   string
	UserID      string
	Provider    string
	FEN         string
	Suggestions []core.Suggestion
	Elapsed     time.Duration
	Err         error
	Applied     bool
}

// RecordAnalysis appends an audit row when storage is enabled
func (s *Service) RecordAnalysis(a AnalysisAudit) {
	if s.store == nil {
		return
	}

	suggestions := a.Suggestions
	if suggestions == nil {
		suggestions = []core.Suggestion{}
	}
	encoded, err := json.Marshal(suggestions)
	if err != nil {
		log.Printf("analysis audit: encode suggestions: %v", err)
		return
	}

	record := storage.AnalysisRecord{
		SessionID:   a.SessionID,
		UserID:      a.UserID,
		Provider:    a.Provider,
		FEN:         a.FEN,
		Suggestions: string(encoded),
		ElapsedMs:   a.Elapsed.Milliseconds(),
		Applied:     a.Applied,
		CreatedAt:   time.Now().UTC(),
	}
	if a.Err != nil {
		record.Error = a.Err.Error()
	}

	if err := s.store.RecordAnalysis(record); err != nil {
		log.Printf("analysis audit: %v", err)
	}
}

// AnalysisHistory returns the newest audit rows for a session
func (s *Service) AnalysisHistory(sessionID string, limit int) ([]core.AnalysisEntry, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	records, err := s.store.QueryAnalyses(sessionID, "", limit)
	if err != nil {
		return nil, err
	}

	entries := make([]core.AnalysisEntry, 0, len(records))
	for _, r := range records {
		var suggestions []core.Suggestion
		if err := json.Unmarshal([]byte(r.Suggestions), &suggestions); err != nil {
			log.Printf("analysis history: row %d: %v", r.AnalysisID, err)
		}
		entries = append(entries, core.AnalysisEntry{
			FEN:         r.FEN,
			Provider:    r.Provider,
			Suggestions: suggestions,
			Error:       r.Error,
			ElapsedMs:   r.ElapsedMs,
			Applied:     r.Applied,
			CreatedAt:   r.CreatedAt,
		})
	}
	return entries, nil
}
