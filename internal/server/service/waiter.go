// FILE: lixenwraith/chessassist/internal/server/service/waiter.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chessassist/internal/server/core"
)

const (
	// WaitTimeout is the maximum time a client can wait for notifications
	WaitTimeout = 25 * time.Second
)

// WaitRegistry manages long-polling clients waiting for session changes
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*WaitRequest // sessionID → waiting clients
	shutdown chan struct{}
	wg       sync.WaitGroup
	timeout  time.Duration
}

// WaitRequest represents a single client waiting for session updates. It
// fires once the session's revision or analysis state differs from what
// the client last saw, on timeout, or when the session goes away.
type WaitRequest struct {
	SessionID string
	Revision  int
	Analysis  core.AnalysisState
	Notify    chan struct{} // Closed when the wait ends
	once      sync.Once
	timer     *time.Timer
}

func (r *WaitRequest) fire() {
	r.once.Do(func() { close(r.Notify) })
}

// NewWaitRegistry creates a new wait registry
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		shutdown: make(chan struct{}),
		timeout:  WaitTimeout,
	}
}

// RegisterWait registers a client to wait for session changes
func (w *WaitRegistry) RegisterWait(ctx context.Context, sessionID string, revision int, state core.AnalysisState) <-chan struct{} {
	req := &WaitRequest{
		SessionID: sessionID,
		Revision:  revision,
		Analysis:  state,
		Notify:    make(chan struct{}),
	}
	req.timer = time.AfterFunc(w.timeout, req.fire)

	w.mu.Lock()
	w.waiters[sessionID] = append(w.waiters[sessionID], req)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
			// Client disconnected
			req.fire()
		case <-req.Notify:
		case <-w.shutdown:
			req.fire()
		}
		req.timer.Stop()
		w.removeWaiter(sessionID, req)
	}()

	return req.Notify
}

// NotifySession wakes clients whose view of the session is now stale
func (w *WaitRegistry) NotifySession(sessionID string, revision int, state core.AnalysisState) {
	w.mu.Lock()
	waitList := append([]*WaitRequest(nil), w.waiters[sessionID]...)
	w.mu.Unlock()

	for _, req := range waitList {
		if req.Revision != revision || req.Analysis != state {
			req.fire()
		}
	}
}

// RemoveSession releases all waiters for a session (called on deletion)
func (w *WaitRegistry) RemoveSession(sessionID string) {
	w.mu.Lock()
	waitList := w.waiters[sessionID]
	delete(w.waiters, sessionID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.fire()
	}
}

// Waiting returns the number of registered waiters for a session
func (w *WaitRegistry) Waiting(sessionID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters[sessionID])
}

// Shutdown releases every waiter and waits for their goroutines
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	close(w.shutdown)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}

func (w *WaitRegistry) removeWaiter(sessionID string, req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[sessionID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[sessionID] = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}

	if len(w.waiters[sessionID]) == 0 {
		delete(w.waiters, sessionID)
	}
}
