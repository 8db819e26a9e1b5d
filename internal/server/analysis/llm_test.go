package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chessassist/internal/position"
	"chessassist/internal/server/core"

	"github.com/google/go-cmp/cmp"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, position.StandardFEN) {
			t.Errorf("prompt does not carry the position: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMAnalyse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []core.Suggestion
	}{
		{
			name:    "object",
			content: `{"moves":[{"move":"e2e4","score":0.3},{"move":"d2d4","score":0.25},{"move":"g1f3","score":0.2}]}`,
			want:    []core.Suggestion{{Move: "e2e4", Score: 0.3}, {Move: "d2d4", Score: 0.25}, {Move: "g1f3", Score: 0.2}},
		},
		{
			name:    "fenced array with string scores",
			content: "```json\n[{\"move\":\"e2e4\",\"score\":\"+0.3\"},{\"move\":\"c2c4\",\"score\":\"-0.1\"}]\n```",
			want:    []core.Suggestion{{Move: "e2e4", Score: 0.3}, {Move: "c2c4", Score: -0.1}},
		},
		{
			name:    "extra moves trimmed",
			content: `[{"move":"a","score":1},{"move":"b","score":1},{"move":"c","score":1},{"move":"d","score":1}]`,
			want:    []core.Suggestion{{Move: "a", Score: 1}, {Move: "b", Score: 1}, {Move: "c", Score: 1}},
		},
		{
			name:    "no moves",
			content: `{"moves":[]}`,
			want:    []core.Suggestion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, http.StatusOK, tt.content)
			llm := NewLLM(LLMConfig{BaseURL: srv.URL + "/", APIKey: "test-key"})

			got, err := llm.Analyse(context.Background(), position.StandardFEN, DefaultCount)
			if err != nil {
				t.Fatalf("Analyse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLLMErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := chatServer(t, http.StatusTooManyRequests, "")
		_, err := NewLLM(LLMConfig{BaseURL: srv.URL, APIKey: "test-key"}).Analyse(context.Background(), position.StandardFEN, 3)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("error = %v; want ErrUnavailable", err)
		}
		if !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("error %q lacks upstream message", err)
		}
	})

	t.Run("malformed content", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, "I think e4 is best.")
		_, err := NewLLM(LLMConfig{BaseURL: srv.URL, APIKey: "test-key"}).Analyse(context.Background(), position.StandardFEN, 3)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("error = %v; want ErrMalformedResponse", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewLLM(LLMConfig{BaseURL: url}).Analyse(context.Background(), position.StandardFEN, 3)
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("error = %v; want ErrUnavailable", err)
		}
	})
}

func TestPrompt(t *testing.T) {
	p, err := Prompt(position.StandardFEN, 3)
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	for _, want := range []string{"grandmaster", "top 3", position.StandardFEN, `"moves"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestNormalize(t *testing.T) {
	in := []core.Suggestion{{Move: " e2e4 "}, {Move: ""}, {Move: "d2d4"}, {Move: "c2c4"}, {Move: "g1f3"}}
	want := []core.Suggestion{{Move: "e2e4"}, {Move: "d2d4"}, {Move: "c2c4"}}
	if diff := cmp.Diff(want, Normalize(in, 3)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got := Normalize(in, 0); len(got) != 4 {
		t.Errorf("Normalize(n=0) kept %d; want 4", len(got))
	}
}
