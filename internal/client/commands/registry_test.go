package commands

import (
	"testing"

	"chessassist/internal/client/api"
)

type stubSession struct {
	current string
	state   *api.SessionResponse
	client  *api.Client
}

func (s *stubSession) GetAPIBaseURL() string            { return "" }
func (s *stubSession) SetAPIBaseURL(string)             {}
func (s *stubSession) GetCurrentSession() string        { return s.current }
func (s *stubSession) SetCurrentSession(id string)      { s.current = id }
func (s *stubSession) GetCurrentUser() string           { return "" }
func (s *stubSession) SetCurrentUser(string)            {}
func (s *stubSession) GetAuthToken() string             { return "" }
func (s *stubSession) SetAuthToken(string)              {}
func (s *stubSession) GetUsername() string              { return "" }
func (s *stubSession) SetUsername(string)               {}
func (s *stubSession) GetClient() *api.Client           { return s.client }
func (s *stubSession) IsVerbose() bool                  { return false }
func (s *stubSession) GetState() *api.SessionResponse   { return s.state }
func (s *stubSession) SetState(st *api.SessionResponse) { s.state = st }

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(&stubSession{})

	tests := []struct {
		input string
		name  string
	}{
		{"new", "new"},
		{"n", "new"},
		{"m", "drag"},
		{"a", "analyse"},
		{"g", "poll"},
		{"o", "logout"},
		{"?", "help"},
	}
	for _, tt := range tests {
		cmd, ok := r.Lookup(tt.input)
		if !ok {
			t.Errorf("Lookup(%q) not found", tt.input)
			continue
		}
		if cmd.Name != tt.name {
			t.Errorf("Lookup(%q) = %s, want %s", tt.input, cmd.Name, tt.name)
		}
	}
}

func TestCommandsNeedSession(t *testing.T) {
	r := NewRegistry(&stubSession{})

	for _, name := range []string{"show", "place", "erase", "click", "drag", "wipe", "reset", "turn", "analyse", "history", "poll"} {
		cmd, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		args := map[string][]string{
			"place": {"Q", "d1"},
			"erase": {"d1"},
			"click": {"d1"},
			"drag":  {"e2", "e4"},
			"turn":  {"b"},
		}[name]
		if err := cmd.Handler(&stubSession{}, args); err == nil {
			t.Errorf("%s without a session succeeded", name)
		}
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		path  string
		board string
		want  string
		err   bool
	}{
		{"/health", "", "/health", false},
		{"/api/v1/codec/encode", "", "/api/v1/codec/encode", false},
		{"sessions", "", "/api/v1/sessions", false},
		{"@", "abc", "/api/v1/sessions/abc", false},
		{"@/analyses", "abc", "/api/v1/sessions/abc/analyses", false},
		{"@/board", "", "", true},
	}
	for _, tt := range tests {
		got, err := expandPath(tt.path, tt.board)
		if (err != nil) != tt.err {
			t.Errorf("expandPath(%q, %q) error = %v, want error %v", tt.path, tt.board, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("expandPath(%q, %q) = %q, want %q", tt.path, tt.board, got, tt.want)
		}
	}
}

func TestURLDropsBoard(t *testing.T) {
	s := &stubSession{current: "abc", state: &api.SessionResponse{}, client: api.New("http://localhost:8080")}
	r := NewRegistry(s)

	cmd, ok := r.Lookup("/")
	if !ok {
		t.Fatal("url not registered")
	}
	if err := cmd.Handler(s, []string{"localhost:9090/"}); err != nil {
		t.Fatal(err)
	}
	if s.current != "" || s.state != nil {
		t.Errorf("board %q survived a server change", s.current)
	}
}

func TestRawRejectsUnknownMethod(t *testing.T) {
	s := &stubSession{client: api.New("http://localhost:8080")}
	cmd, ok := NewRegistry(s).Lookup(":")
	if !ok {
		t.Fatal("raw not registered")
	}
	if err := cmd.Handler(s, []string{"PATCH", "/health"}); err == nil {
		t.Error("PATCH accepted")
	}
	if err := cmd.Handler(s, []string{"GET", "@"}); err == nil {
		t.Error("@ accepted without a board")
	}
}
