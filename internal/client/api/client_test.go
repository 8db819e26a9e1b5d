package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"chessassist/internal/server/core"

	"github.com/google/go-cmp/cmp"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]string
	Auth   string
}

func newTestClient(t *testing.T, reply func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &rec.Body)
		}
		calls = append(calls, rec)
		reply(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL + "/")
	c.Out = io.Discard
	return c, &calls
}

func TestEditorRequests(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(core.SessionResponse{SessionID: "abc", Revision: 2})
	})
	c.SetToken("tok")

	if _, err := c.PlacePiece("abc", "e4", "Q"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DragPiece("abc", "e4", "h7"); err != nil {
		t.Fatal(err)
	}
	resp, err := c.WaitSession("abc", 2, "pending")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Revision != 2 {
		t.Errorf("Revision = %d, want 2", resp.Revision)
	}

	want := []recorded{
		{Method: "PUT", Path: "/api/v1/sessions/abc/squares/e4", Body: map[string]string{"piece": "Q"}, Auth: "Bearer tok"},
		{Method: "POST", Path: "/api/v1/sessions/abc/drag", Body: map[string]string{"from": "e4", "to": "h7"}, Auth: "Bearer tok"},
		{Method: "GET", Path: "/api/v1/sessions/abc", Query: "analysis=pending&revision=2&wait=true", Auth: "Bearer tok"},
	}
	if diff := cmp.Diff(want, *calls); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(core.ErrorResponse{Error: "invalid square", Code: core.ErrInvalidSquare})
	})

	_, err := c.Coords("z9")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != core.ErrInvalidSquare {
		t.Errorf("got status %d code %q", apiErr.Status, apiErr.Code)
	}
}

func TestNonJSONError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := c.DeleteSession("abc")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.ErrorResponse.Error != "bad gateway" {
		t.Errorf("message = %q, want raw body", apiErr.ErrorResponse.Error)
	}
}
