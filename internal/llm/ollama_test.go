package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"compass.dev/tracker/internal/config"
)

type fakeOllama struct {
	tagsStatus int
	chatStatus int
	reply      string
	delay      time.Duration

	probes atomic.Int32
	mu     sync.Mutex
	last   ollamaChatRequest
}

func (f *fakeOllama) lastRequest() ollamaChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/tags":
		f.probes.Add(1)
		w.WriteHeader(f.tagsStatus)
		w.Write([]byte(`{"models":[]}`))
	case "/api/chat":
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.last = req
		f.mu.Unlock()
		if f.chatStatus != http.StatusOK {
			w.WriteHeader(f.chatStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":   req.Model,
			"message": map[string]string{"role": "assistant", "content": f.reply},
			"done":    true,
		})
	default:
		http.NotFound(w, r)
	}
}

func newFake(t *testing.T, f *fakeOllama) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewOllamaClient(srv.URL+"/", "mistral:latest", time.Minute, zap.NewNop())
}

var prompt = []Message{
	{Role: RoleSystem, Content: "Be brief."},
	{Role: RoleUser, Content: "How was my week?"},
}

func TestOllamaGenerate(t *testing.T) {
	f := &fakeOllama{tagsStatus: http.StatusOK, chatStatus: http.StatusOK, reply: "  A calm, steady week.\n"}
	c := newFake(t, f)

	resp, err := c.Generate(context.Background(), prompt, 150)
	require.NoError(t, err)
	assert.True(t, resp.Usable())
	assert.Equal(t, "A calm, steady week.", resp.Content)
	assert.Equal(t, "mistral:latest", resp.Metadata["model"])

	last := f.lastRequest()
	assert.False(t, last.Stream)
	assert.Equal(t, 150, last.Options.NumPredict)
	assert.Equal(t, 0.7, last.Options.Temperature)
	assert.Len(t, last.Messages, 2)
	assert.Equal(t, RoleSystem, last.Messages[0].Role)
}

func TestOllamaAvailabilityIsCached(t *testing.T) {
	f := &fakeOllama{tagsStatus: http.StatusOK}
	c := newFake(t, f)

	assert.True(t, c.IsAvailable(context.Background()))
	assert.True(t, c.IsAvailable(context.Background()))
	assert.EqualValues(t, 1, f.probes.Load())
}

func TestOllamaFailuresBecomeMarkers(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		c := newFake(t, &fakeOllama{tagsStatus: http.StatusServiceUnavailable})
		resp, err := c.Generate(context.Background(), prompt, 10)
		require.NoError(t, err)
		assert.Equal(t, MarkerServiceUnavailable, resp.Metadata["error"])
		assert.Error(t, resp.Err())
	})

	t.Run("api error", func(t *testing.T) {
		c := newFake(t, &fakeOllama{tagsStatus: http.StatusOK, chatStatus: http.StatusInternalServerError})
		resp, err := c.Generate(context.Background(), prompt, 10)
		require.NoError(t, err)
		assert.Equal(t, MarkerAPIError, resp.Metadata["error"])
		assert.Equal(t, http.StatusInternalServerError, resp.Metadata["status_code"])
		assert.False(t, resp.Usable())
	})

	t.Run("timeout", func(t *testing.T) {
		c := newFake(t, &fakeOllama{tagsStatus: http.StatusOK, chatStatus: http.StatusOK, delay: time.Second})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		// Warm the availability cache so the probe does not eat the deadline.
		require.True(t, c.IsAvailable(context.Background()))

		resp, err := c.Generate(ctx, prompt, 10)
		require.NoError(t, err)
		assert.Equal(t, MarkerTimeout, resp.Metadata["error"])
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(&fakeOllama{tagsStatus: http.StatusOK})
		c := NewOllamaClient(srv.URL, "m", time.Minute, zap.NewNop())
		require.True(t, c.IsAvailable(context.Background()))
		srv.Close()

		resp, err := c.Generate(context.Background(), prompt, 10)
		require.NoError(t, err)
		assert.Equal(t, MarkerCommunication, resp.Metadata["error"])
	})
}

func TestOllamaRejectsEmptyPrompt(t *testing.T) {
	c := newFake(t, &fakeOllama{tagsStatus: http.StatusOK})
	_, err := c.Generate(context.Background(), nil, 10)
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestResponseUsable(t *testing.T) {
	assert.True(t, Response{Content: "hi"}.Usable())
	assert.False(t, Response{Content: "   "}.Usable())
	assert.False(t, Response{Content: "hi", Metadata: map[string]any{"error": "timeout"}}.Usable())
	assert.NoError(t, Response{Content: "hi", Metadata: map[string]any{"model": "m"}}.Err())
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()
	c, err := NewClient(ctx, config.LLMConfig{Provider: config.ProviderNone}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, c.IsAvailable(ctx))
	resp, err := c.Generate(ctx, prompt, 10)
	require.NoError(t, err)
	assert.Equal(t, MarkerServiceUnavailable, resp.Metadata["error"])

	c, err = NewClient(ctx, config.LLMConfig{
		Provider:        config.ProviderOllama,
		OllamaHost:      "http://localhost:11434",
		OllamaModel:     "mistral:latest",
		AvailabilityTTL: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "mistral:latest", c.Model())

	_, err = NewClient(ctx, config.LLMConfig{Provider: "openai"}, zap.NewNop())
	assert.Error(t, err)
}
