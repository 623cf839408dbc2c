package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	tutor "github.com/haowjy/meridian-tutor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func line(content string, done bool) string {
	b, _ := json.Marshal(map[string]any{
		"model":      "llama3.2",
		"created_at": "2026-01-01T00:00:00Z",
		"message":    map[string]any{"role": "assistant", "content": content},
		"done":       done,
	})
	return string(b)
}

func newDaemon(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func streamLines(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, l := range lines {
			if r.Context().Err() != nil {
				return
			}
			fmt.Fprintln(w, l)
			flusher.Flush()
		}
	}
}

func newTestProvider(t *testing.T, host string) *Provider {
	t.Helper()
	p, err := NewProvider(host, &http.Client{Transport: &http.Transport{DisableKeepAlives: true}})
	require.NoError(t, err)
	return p
}

func newRequest() *tutor.GenerateRequest {
	return &tutor.GenerateRequest{
		Prompt: tutor.BuildPrompt(tutor.ExplanationRequest{Language: tutor.LanguageJavaScript, Code: "console.log(1)"}),
		Model:  "llama3.2",
	}
}

func TestNewProvider_Host(t *testing.T) {
	tests := []struct {
		host    string
		want    string
		wantErr bool
	}{
		{"", DefaultHost, false},
		{"http://127.0.0.1:11434", "http://127.0.0.1:11434", false},
		{"127.0.0.1:9999", "http://127.0.0.1:9999", false},
		{"http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			p, err := NewProvider(tt.host, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Host())
		})
	}
}

func TestStreamResponse_NDJSON(t *testing.T) {
	captured := make(chan api.ChatRequest, 1)
	srv := newDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &req)
		captured <- req

		streamLines(line("This ", false), line("", false), line("logs ", false), line("1.", false), line("", true))(w, r)
	})
	p := newTestProvider(t, srv.URL)

	var fragments []string
	for f, err := range p.StreamResponse(context.Background(), newRequest()) {
		require.NoError(t, err)
		fragments = append(fragments, f)
	}
	assert.Equal(t, []string{"This ", "logs ", "1."}, fragments)

	req := <-captured
	assert.Equal(t, "llama3.2", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, tutor.SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "console.log(1)")
	require.NotNil(t, req.Stream)
	assert.True(t, *req.Stream)
	assert.InDelta(t, tutor.DefaultTemperature, req.Options["temperature"], 1e-9)
	assert.EqualValues(t, tutor.DefaultMaxTokens, req.Options["num_predict"])
}

func TestStreamResponse_EarlyBreakReleasesCall(t *testing.T) {
	lines := make([]string, 0, 50)
	for i := range 50 {
		lines = append(lines, line(fmt.Sprintf("w%d ", i), false))
	}
	srv := newDaemon(t, streamLines(lines...))
	p := newTestProvider(t, srv.URL)

	var got []string
	for f, err := range p.StreamResponse(context.Background(), newRequest()) {
		require.NoError(t, err)
		got = append(got, f)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"w0 ", "w1 "}, got)
}

func TestStreamResponse_ModelNotFound(t *testing.T) {
	srv := newDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model \"llama9\" not found, try pulling it first"}`)
	})
	p := newTestProvider(t, srv.URL)

	text, err := tutor.CollectFragments(p.StreamResponse(context.Background(), newRequest()))
	require.Error(t, err)
	assert.Empty(t, text)

	var providerErr *tutor.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusNotFound, providerErr.StatusCode)
	assert.Contains(t, providerErr.Message, "not found")
	assert.True(t, tutor.IsProviderUnavailable(err))
}

func TestStreamResponse_DaemonNotRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host := "http://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	p := newTestProvider(t, host)

	_, err = tutor.CollectFragments(p.StreamResponse(context.Background(), newRequest()))
	require.Error(t, err)

	assert.ErrorIs(t, err, tutor.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "ollama serve")
	assert.Equal(t, tutor.KindProviderUnavailable, tutor.ErrorKind(err))
}

func TestStreamResponse_ContextCancelled(t *testing.T) {
	srv := newDaemon(t, streamLines(line("never", false)))
	p := newTestProvider(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tutor.CollectFragments(p.StreamResponse(ctx, newRequest()))
	assert.ErrorIs(t, err, context.Canceled)
}
