// FILE: lixenwraith/chessassist/internal/client/api/client.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"chessassist/internal/client/display"
)

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer // request/response trace, stdout by default
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 40 * time.Second, // longer than the server's long-poll
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

// APIError is a non-2xx reply from the server
type APIError struct {
	Status int
	ErrorResponse
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("request failed with status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyData []byte
	if body != nil {
		var err error
		if bodyData, err = json.Marshal(body); err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyData)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	fmt.Fprintf(c.Out, "\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if len(bodyData) > 0 {
		if c.Verbose {
			fmt.Fprintf(c.Out, "%sRequest Body:%s\n%s\n", display.Cyan, display.Reset, indent(bodyData))
		} else {
			fmt.Fprintf(c.Out, "%s%s%s\n", display.Blue, bodyData, display.Reset)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fmt.Fprintf(c.Out, "%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	fmt.Fprintf(c.Out, "%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)

	if c.Verbose && len(respBody) > 0 {
		fmt.Fprintf(c.Out, "%sResponse Body:%s\n%s\n", display.Cyan, display.Reset, indent(respBody))
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.ErrorResponse); err != nil {
			apiErr.ErrorResponse.Error = strings.TrimSpace(string(respBody))
		}
		if !c.Verbose {
			fmt.Fprintf(c.Out, "%sError: %s%s\n", display.Red, apiErr.ErrorResponse.Error, display.Reset)
			if apiErr.Code != "" {
				fmt.Fprintf(c.Out, "%sCode: %s%s\n", display.Red, apiErr.Code, display.Reset)
			}
			if apiErr.Details != "" {
				fmt.Fprintf(c.Out, "%sDetails: %s%s\n", display.Red, apiErr.Details, display.Reset)
			}
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			fmt.Fprintf(c.Out, "%sResponse parse error: %s%s\n", display.Red, err.Error(), display.Reset)
			fmt.Fprintf(c.Out, "%sRaw response: %s%s\n", display.Green, respBody, display.Reset)
			return err
		}
	}

	return nil
}

// indent pretty-prints JSON, returning the input unchanged if it is not JSON
func indent(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// API Methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest("GET", "/health", nil, &resp)
	return &resp, err
}

func sessionPath(sessionID string, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(sessionID) + suffix
}

func (c *Client) CreateSession(fen string) (*SessionResponse, error) {
	var resp SessionResponse
	err := c.doRequest("POST", "/api/v1/sessions", &CreateSessionRequest{FEN: fen}, &resp)
	return &resp, err
}

func (c *Client) GetSession(sessionID string) (*SessionResponse, error) {
	var resp SessionResponse
	err := c.doRequest("GET", sessionPath(sessionID, ""), nil, &resp)
	return &resp, err
}

// WaitSession long-polls until the session moves past revision and analysis state
func (c *Client) WaitSession(sessionID string, revision int, analysis string) (*SessionResponse, error) {
	q := url.Values{}
	q.Set("wait", "true")
	q.Set("revision", fmt.Sprint(revision))
	if analysis != "" {
		q.Set("analysis", analysis)
	}
	var resp SessionResponse
	err := c.doRequest("GET", sessionPath(sessionID, "?"+q.Encode()), nil, &resp)
	return &resp, err
}

func (c *Client) DeleteSession(sessionID string) error {
	return c.doRequest("DELETE", sessionPath(sessionID, ""), nil, nil)
}

func (c *Client) editSession(method, sessionID, suffix string, body any) (*SessionResponse, error) {
	var resp SessionResponse
	err := c.doRequest(method, sessionPath(sessionID, suffix), body, &resp)
	return &resp, err
}

func (c *Client) PlacePiece(sessionID, square, piece string) (*SessionResponse, error) {
	return c.editSession("PUT", sessionID, "/squares/"+url.PathEscape(square), map[string]string{"piece": piece})
}

func (c *Client) ErasePiece(sessionID, square string) (*SessionResponse, error) {
	return c.editSession("DELETE", sessionID, "/squares/"+url.PathEscape(square), nil)
}

func (c *Client) SelectPiece(sessionID, piece string) (*SessionResponse, error) {
	return c.editSession("POST", sessionID, "/select", map[string]string{"piece": piece})
}

func (c *Client) ClickSquare(sessionID, square string) (*SessionResponse, error) {
	return c.editSession("POST", sessionID, "/click", map[string]string{"square": square})
}

func (c *Client) DragPiece(sessionID, from, to string) (*SessionResponse, error) {
	return c.editSession("POST", sessionID, "/drag", map[string]string{"from": from, "to": to})
}

func (c *Client) ClearBoard(sessionID string) (*SessionResponse, error) {
	return c.editSession("POST", sessionID, "/clear", nil)
}

func (c *Client) ResetBoard(sessionID string) (*SessionResponse, error) {
	return c.editSession("POST", sessionID, "/reset", nil)
}

func (c *Client) LoadFEN(sessionID, fen string) (*SessionResponse, error) {
	return c.editSession("PUT", sessionID, "/fen", map[string]string{"fen": fen})
}

func (c *Client) SetTurn(sessionID, color string) (*SessionResponse, error) {
	return c.editSession("PUT", sessionID, "/turn", map[string]string{"color": color})
}

func (c *Client) Analyse(sessionID string) (*SessionResponse, error) {
	return c.editSession("POST", sessionID, "/analysis", nil)
}

func (c *Client) AnalysisHistory(sessionID string, limit int) ([]AnalysisEntry, error) {
	var resp []AnalysisEntry
	err := c.doRequest("GET", sessionPath(sessionID, fmt.Sprintf("/analyses?limit=%d", limit)), nil, &resp)
	return resp, err
}

func (c *Client) GetBoard(sessionID string) (*BoardResponse, error) {
	var resp BoardResponse
	err := c.doRequest("GET", sessionPath(sessionID, "/board"), nil, &resp)
	return &resp, err
}

func (c *Client) Decode(fen string) (*DecodeResponse, error) {
	var resp DecodeResponse
	err := c.doRequest("POST", "/api/v1/fen/decode", map[string]string{"fen": fen}, &resp)
	return &resp, err
}

func (c *Client) Encode(req *EncodeRequest) (*EncodeResponse, error) {
	var resp EncodeResponse
	err := c.doRequest("POST", "/api/v1/fen/encode", req, &resp)
	return &resp, err
}

func (c *Client) Coords(square string) (*CoordsResponse, error) {
	var resp CoordsResponse
	err := c.doRequest("GET", "/api/v1/squares/"+url.PathEscape(square), nil, &resp)
	return &resp, err
}

func (c *Client) Register(username, password, email string) (*AuthResponse, error) {
	req := &RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	}
	var resp AuthResponse
	err := c.doRequest("POST", "/api/v1/auth/register", req, &resp)
	return &resp, err
}

func (c *Client) Login(identifier, password string) (*AuthResponse, error) {
	req := &LoginRequest{
		Identifier: identifier,
		Password:   password,
	}
	var resp AuthResponse
	err := c.doRequest("POST", "/api/v1/auth/login", req, &resp)
	return &resp, err
}

func (c *Client) Logout() error {
	return c.doRequest("POST", "/api/v1/auth/logout", nil, nil)
}

func (c *Client) GetCurrentUser() (*UserResponse, error) {
	var resp UserResponse
	err := c.doRequest("GET", "/api/v1/auth/me", nil, &resp)
	return &resp, err
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(method, path string, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			// Send as a JSON string
			bodyData = body
		}
	}

	return c.doRequest(method, path, bodyData, nil)
}
