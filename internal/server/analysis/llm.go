// FILE: lixenwraith/chessassist/internal/server/analysis/llm.go
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/template"
	"time"

	"chessassist/internal/server/core"
)

const (
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	maxResponseBytes  = 1 << 20
)

var promptTemplate = template.Must(template.New("prompt").Parse(
	`You are a world-class chess grandmaster, and will suggest the top {{.Count}} best moves for a given chess board position.

Analyze the following chess board position in FEN notation and provide the top {{.Count}} best moves with their corresponding scores. Always respond with the top {{.Count}} moves, even if the position is bad.

Board position (FEN): {{.FEN}}
Output in JSON format the top {{.Count}} moves with their scores. Here is the schema: {"moves": [{"move": "<move in coordinate notation, e.g. e2e4>", "score": <evaluation in pawns, e.g. 0.2 or -0.1>}]}`))

// LLMConfig configures the chat-completions collaborator.
type LLMConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// LLM asks a chat-completions endpoint for move suggestions. Each call is a
// single request; there is no retry.
type LLM struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func NewLLM(cfg LLMConfig) *LLM {
	l := &LLM{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  cfg.HTTPClient,
	}
	if l.baseURL == "" {
		l.baseURL = DefaultLLMBaseURL
	}
	if l.model == "" {
		l.model = DefaultLLMModel
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: 60 * time.Second}
	}
	return l
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// wireMove tolerates scores sent as numbers or strings such as "+0.3".
type wireMove struct {
	Move  string          `json:"move"`
	Score json.RawMessage `json:"score"`
}

// Prompt renders the request text for fen.
func Prompt(fen string, n int) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		FEN   string
		Count int
	}{fen, n})
	return buf.String(), err
}

func (l *LLM) Analyse(ctx context.Context, fen string, n int) ([]core.Suggestion, error) {
	if n <= 0 {
		n = DefaultCount
	}
	prompt, err := Prompt(fen, n)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var chat chatResponse
	decodeErr := json.Unmarshal(respBody, &chat)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && chat.Error != nil {
			msg = chat.Error.Message
		}
		return nil, fmt.Errorf("%w: http status code %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	suggestions, err := ParseSuggestions(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return Normalize(suggestions, n), nil
}

// ParseSuggestions decodes model output: either a JSON array of
// {move, score} or an object holding one under "moves". Markdown code
// fences around the JSON are ignored.
func ParseSuggestions(content string) ([]core.Suggestion, error) {
	content = stripFences(content)

	var moves []wireMove
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &moves); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var wrapped struct {
			Moves []wireMove `json:"moves"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		moves = wrapped.Moves
	}

	out := make([]core.Suggestion, 0, len(moves))
	for _, m := range moves {
		score, err := parseScore(m.Score)
		if err != nil {
			return nil, fmt.Errorf("%w: move %q: %v", ErrMalformedResponse, m.Move, err)
		}
		out = append(out, core.Suggestion{Move: m.Move, Score: score})
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseScore(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("score %s", raw)
	}
	return strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "+"), 64)
}
