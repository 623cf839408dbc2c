package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	tutor "github.com/haowjy/meridian-tutor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func chunk(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"delta":         map[string]any{"content": content},
			"finish_reason": nil,
		}},
	})
	return string(b)
}

// newBackend serves /v1/chat/completions with the given SSE data lines.
func newBackend(t *testing.T, status int, body string, data ...string) (*httptest.Server, <-chan []byte) {
	t.Helper()
	captured := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		select {
		case captured <- b:
		default:
		}

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			io.WriteString(w, body)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, d := range data {
			fmt.Fprintf(w, "data: %s\n\n", d)
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestProvider(t *testing.T, srv *httptest.Server) *Provider {
	t.Helper()
	p, err := NewProvider("sk-test",
		WithBaseURL(srv.URL+"/v1/"),
		WithMaxRetries(0),
		WithHTTPClient(&http.Client{Transport: &http.Transport{DisableKeepAlives: true}}),
	)
	require.NoError(t, err)
	return p
}

func newRequest() *tutor.GenerateRequest {
	return &tutor.GenerateRequest{
		Prompt: tutor.BuildPrompt(tutor.ExplanationRequest{Language: tutor.LanguagePython, Code: "print('hi')"}),
		Model:  "gpt-4o-mini",
	}
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider("")
	assert.ErrorIs(t, err, tutor.ErrMissingCredentials)
}

func TestStreamResponse_Fragments(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, "",
		chunk(""), chunk("This "), chunk("code "), chunk(""), chunk("prints hi."), "[DONE]")
	p := newTestProvider(t, srv)

	var fragments []string
	for f, err := range p.StreamResponse(context.Background(), newRequest()) {
		require.NoError(t, err)
		fragments = append(fragments, f)
	}
	assert.Equal(t, []string{"This ", "code ", "prints hi."}, fragments)

	var body struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
	}
	require.NoError(t, json.Unmarshal(<-captured, &body))
	assert.Equal(t, "gpt-4o-mini", body.Model)
	assert.True(t, body.Stream)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, tutor.SystemPrompt, body.Messages[0].Content)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Contains(t, body.Messages[1].Content, "print('hi')")
	assert.InDelta(t, tutor.DefaultTemperature, body.Temperature, 1e-9)
}

func TestStreamResponse_IsLazy(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	p := newTestProvider(t, srv)
	_ = p.StreamResponse(context.Background(), newRequest())
	assert.Equal(t, 0, calls)
}

func TestStreamResponse_HTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"invalid key", http.StatusUnauthorized, tutor.ErrInvalidAPIKey},
		{"rate limited", http.StatusTooManyRequests, tutor.ErrRateLimited},
		{"server error", http.StatusInternalServerError, tutor.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newBackend(t, tt.status, `{"error":{"message":"nope","type":"test_error","code":"test"}}`)
			p := newTestProvider(t, srv)

			text, err := tutor.CollectFragments(p.StreamResponse(context.Background(), newRequest()))
			require.Error(t, err)
			assert.Empty(t, text)

			var providerErr *tutor.ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, tt.status, providerErr.StatusCode)
			assert.Equal(t, tutor.ProviderOpenAI, providerErr.Provider)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, tutor.IsProviderUnavailable(err))
		})
	}
}

func TestStreamResponse_ErrorMidStream(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, "",
		chunk("f1"), chunk("f2"), `{"error":{"message":"server overloaded"}}`)
	p := newTestProvider(t, srv)

	text, err := tutor.CollectFragments(p.StreamResponse(context.Background(), newRequest()))
	require.Error(t, err)
	assert.Equal(t, "f1f2", text)
	assert.ErrorIs(t, err, tutor.ErrProviderUnavailable)
}

func TestStreamResponse_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(url+"/v1/"), WithMaxRetries(0))
	require.NoError(t, err)

	_, err = tutor.CollectFragments(p.StreamResponse(context.Background(), newRequest()))
	require.Error(t, err)
	assert.ErrorIs(t, err, tutor.ErrProviderUnavailable)
}

func TestStreamResponse_EarlyBreak(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, "", chunk("one "), chunk("two "), chunk("three"), "[DONE]")
	p := newTestProvider(t, srv)

	for f, err := range p.StreamResponse(context.Background(), newRequest()) {
		require.NoError(t, err)
		assert.Equal(t, "one ", f)
		break
	}
}

func TestBuildChatParams_Defaults(t *testing.T) {
	params := buildChatParams(&tutor.GenerateRequest{})
	assert.Equal(t, DefaultModel, string(params.Model))
	assert.Len(t, params.Messages, 2)
}
