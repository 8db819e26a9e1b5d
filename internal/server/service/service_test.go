// FILE: lixenwraith/chessassist/internal/server/service/service_test.go
package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chessassist/internal/position"
	"chessassist/internal/server/core"
	"chessassist/internal/server/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "svc.db"), false)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.InitDB(); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return store
}

func TestSessionRegistry(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)
	svc.SetMaxSessions(2)

	a, err := svc.CreateSession("", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if a.FEN() != position.StandardFEN {
		t.Errorf("new session FEN = %q", a.FEN())
	}
	if _, err := svc.CreateSession("8/8/8", ""); !errors.Is(err, position.ErrMalformedEncoding) {
		t.Errorf("malformed FEN error = %v", err)
	}
	if _, err := svc.CreateSession(position.EmptyFEN, "owner"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svc.CreateSession("", ""); !errors.Is(err, ErrSessionLimit) {
		t.Errorf("third session error = %v; want ErrSessionLimit", err)
	}

	got, err := svc.GetSession(a.ID())
	if err != nil || got != a {
		t.Fatalf("GetSession = %v, %v", got, err)
	}

	if err := svc.DeleteSession(a.ID()); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.GetSession(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession after delete error = %v", err)
	}
	if err := svc.DeleteSession(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete error = %v", err)
	}
	if n := svc.SessionCount(); n != 1 {
		t.Errorf("SessionCount = %d; want 1", n)
	}
}

func TestAuthorizeSession(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)

	owned, _ := svc.CreateSession("", "u1")
	open, _ := svc.CreateSession("", "")

	if _, err := svc.AuthorizeSession(owned.ID(), "u1"); err != nil {
		t.Errorf("owner denied: %v", err)
	}
	if _, err := svc.AuthorizeSession(owned.ID(), ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("anonymous access error = %v; want ErrForbidden", err)
	}
	if _, err := svc.AuthorizeSession(open.ID(), "u2"); err != nil {
		t.Errorf("open session denied: %v", err)
	}
}

func TestEvictIdleSessions(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)

	idle, _ := svc.CreateSession("", "")
	busy, _ := svc.CreateSession("", "")
	if _, _, err := busy.BeginAnalysis(); err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}

	if n := svc.evictIdleSessions(time.Now().UTC().Add(time.Minute)); n != 1 {
		t.Fatalf("evicted %d; want 1", n)
	}
	if _, err := svc.GetSession(idle.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived")
	}
	if _, err := svc.GetSession(busy.ID()); err != nil {
		t.Error("session with pending analysis was evicted")
	}
}

func TestWaitNotifiedOnChange(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)

	sess, _ := svc.CreateSession("", "")
	notify := svc.RegisterWait(context.Background(), sess.ID(), sess.Revision(), sess.AnalysisState())

	// Nothing changed: no wake-up
	svc.NotifySession(sess)
	select {
	case <-notify:
		t.Fatal("woken without a change")
	case <-time.After(20 * time.Millisecond):
	}

	sess.Reset()
	svc.NotifySession(sess)
	select {
	case <-notify:
	case <-time.After(time.Second):
		t.Fatal("not woken after a board change")
	}
}

func TestWaitNotifiedOnAnalysis(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)

	sess, _ := svc.CreateSession("", "")
	_, rev, _ := sess.BeginAnalysis()
	notify := svc.RegisterWait(context.Background(), sess.ID(), rev, core.AnalysisPending)

	sess.CompleteAnalysis(rev, []core.Suggestion{{Move: "e2e4"}})
	svc.NotifySession(sess)

	select {
	case <-notify:
	case <-time.After(time.Second):
		t.Fatal("not woken after analysis completed")
	}
}

func TestWaitReleasedOnDeleteAndCancel(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)

	sess, _ := svc.CreateSession("", "")
	deleted := svc.RegisterWait(context.Background(), sess.ID(), 0, core.AnalysisIdle)

	ctx, cancel := context.WithCancel(context.Background())
	other, _ := svc.CreateSession("", "")
	cancelled := svc.RegisterWait(ctx, other.ID(), 0, core.AnalysisIdle)

	svc.DeleteSession(sess.ID())
	cancel()

	for name, ch := range map[string]<-chan struct{}{"deleted": deleted, "cancelled": cancelled} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("%s waiter not released", name)
		}
	}

	deadline := time.Now().Add(time.Second)
	for svc.waiter.Waiting(other.ID()) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := svc.waiter.Waiting(other.ID()); n != 0 {
		t.Errorf("%d waiters left registered", n)
	}
}

func TestWaitTimeout(t *testing.T) {
	w := NewWaitRegistry()
	w.timeout = 20 * time.Millisecond
	defer w.Shutdown(time.Second)

	select {
	case <-w.RegisterWait(context.Background(), "s", 0, core.AnalysisIdle):
	case <-time.After(time.Second):
		t.Fatal("wait did not time out")
	}
}

func TestUsersAndTokens(t *testing.T) {
	svc := New(newTestStore(t), []byte("test-secret-test-secret-test-secret"))
	defer svc.Shutdown(time.Second)

	user, err := svc.CreateUser("alice", "alice@example.com", "password1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateUser("alice", "", "password1"); !errors.Is(err, storage.ErrUserExists) {
		t.Errorf("duplicate user error = %v; want ErrUserExists", err)
	}

	if _, err := svc.AuthenticateUser("alice", "wrong-pass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.AuthenticateUser("nobody", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}
	authed, err := svc.AuthenticateUser("alice@example.com", "password1")
	if err != nil || authed.UserID != user.UserID {
		t.Fatalf("AuthenticateUser = %v, %v", authed, err)
	}

	token, expires, err := svc.Login(user.UserID)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !expires.After(time.Now()) {
		t.Errorf("token expiry %v in the past", expires)
	}

	userID, claims, err := svc.ValidateToken(token)
	if err != nil || userID != user.UserID || claims["username"] != "alice" {
		t.Fatalf("ValidateToken = %q %v %v", userID, claims, err)
	}

	if err := svc.Logout(user.UserID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := svc.ValidateToken(token); !errors.Is(err, ErrLoginExpired) {
		t.Errorf("token after logout error = %v; want ErrLoginExpired", err)
	}
}

func TestStorageDisabled(t *testing.T) {
	svc := New(nil, nil)
	defer svc.Shutdown(time.Second)

	if got := svc.GetStorageHealth(); got != "disabled" {
		t.Errorf("GetStorageHealth = %q", got)
	}
	if _, err := svc.CreateUser("a", "", "password1"); !errors.Is(err, ErrStorageDisabled) {
		t.Errorf("CreateUser error = %v; want ErrStorageDisabled", err)
	}
	// No store: auditing is a no-op
	svc.RecordAnalysis(AnalysisAudit{SessionID: "s"})
}

func TestRecordAnalysis(t *testing.T) {
	store := newTestStore(t)
	svc := New(store, nil)
	defer svc.Shutdown(time.Second)

	svc.RecordAnalysis(AnalysisAudit{
		SessionID:   "s1",
		Provider:    "llm",
		FEN:         position.StandardFEN,
		Suggestions: []core.Suggestion{{Move: "e2e4", Score: 0.3}},
		Elapsed:     1500 * time.Millisecond,
		Applied:     true,
	})
	svc.RecordAnalysis(AnalysisAudit{SessionID: "s1", Provider: "llm", FEN: position.StandardFEN, Err: errors.New("boom")})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rows, err := store.QueryAnalyses("s1", "", 0)
	if err != nil || len(rows) != 2 {
		t.Fatalf("QueryAnalyses = %d rows, %v", len(rows), err)
	}
	byError := map[string]storage.AnalysisRecord{}
	for _, r := range rows {
		byError[r.Error] = r
	}
	if ok := byError[""]; ok.Suggestions != `[{"move":"e2e4","score":0.3}]` || ok.ElapsedMs != 1500 || !ok.Applied {
		t.Errorf("success row = %+v", ok)
	}
	if failed := byError["boom"]; failed.Suggestions != "[]" || failed.Applied {
		t.Errorf("failure row = %+v", failed)
	}

	history, err := svc.AnalysisHistory("s1", 10)
	if err != nil || len(history) != 2 {
		t.Fatalf("AnalysisHistory = %d entries, %v", len(history), err)
	}
	for _, h := range history {
		if h.Error == "" && (len(h.Suggestions) != 1 || h.Suggestions[0].Move != "e2e4") {
			t.Errorf("history entry = %+v", h)
		}
	}
}
