// FILE: lixenwraith/chessassist/internal/client/session/session.go
package session

import "chessassist/internal/client/api"

// Session is the REPL state: API target, login and the editing session in focus
type Session struct {
	APIBaseURL     string
	Client         *api.Client
	Verbose        bool
	CurrentSession string
	CurrentUser    string
	Username       string
	AuthToken      string
	State          *api.SessionResponse
}

func (s *Session) GetAPIBaseURL() string { return s.APIBaseURL }
func (s *Session) SetAPIBaseURL(url string) { s.APIBaseURL = url }
func (s *Session) GetCurrentSession() string { return s.CurrentSession }
func (s *Session) GetCurrentUser() string { return s.CurrentUser }
func (s *Session) SetCurrentUser(id string) { s.CurrentUser = id }
func (s *Session) GetAuthToken() string { return s.AuthToken }
func (s *Session) SetAuthToken(token string) { s.AuthToken = token }
func (s *Session) GetUsername() string { return s.Username }
func (s *Session) SetUsername(name string) { s.Username = name }
func (s *Session) GetClient() *api.Client { return s.Client }
func (s *Session) IsVerbose() bool { return s.Verbose }
func (s *Session) GetState() *api.SessionResponse { return s.State }

// SetCurrentSession switches focus; the cached state belongs to the old session
func (s *Session) SetCurrentSession(id string) {
	if id != s.CurrentSession {
		s.State = nil
	}
	s.CurrentSession = id
}

func (s *Session) SetState(state *api.SessionResponse) {
	s.State = state
	if state != nil {
		s.CurrentSession = state.SessionID
	}
}
