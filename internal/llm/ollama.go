package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ollamaProbeTimeout = 5 * time.Second
	ollamaTemperature  = 0.7
)

// OllamaClient talks to a local Ollama server over its HTTP API.
type OllamaClient struct {
	host         string
	model        string
	httpClient   *http.Client
	availability *availabilityCache
	logger       *zap.Logger
}

func NewOllamaClient(host, model string, availabilityTTL time.Duration, logger *zap.Logger) *OllamaClient {
	return &OllamaClient{
		host:         strings.TrimRight(host, "/"),
		model:        model,
		httpClient:   &http.Client{},
		availability: newAvailabilityCache(availabilityTTL),
		logger:       logger,
	}
}

func (c *OllamaClient) Model() string { return c.model }

func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	return c.availability.check(ctx, c.host, c.probe)
}

func (c *OllamaClient) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Ollama probe failed", zap.String("host", c.host), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (c *OllamaClient) Generate(ctx context.Context, messages []Message, maxTokens int) (Response, error) {
	if len(messages) == 0 {
		return Response{}, ErrNoMessages
	}
	if !c.IsAvailable(ctx) {
		return unavailable(), nil
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{NumPredict: maxTokens, Temperature: ollamaTemperature},
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure(MarkerTimeout, "LLM request timed out"), nil
		}
		// The server may have gone away since the last probe.
		c.availability.forget(c.host)
		return failure(MarkerCommunication, fmt.Sprintf("Error communicating with LLM: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r := failure(MarkerAPIError, fmt.Sprintf("Ollama API error: %d", resp.StatusCode))
		r.Metadata["status_code"] = resp.StatusCode
		return r, nil
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if isTimeout(err) {
			return failure(MarkerTimeout, "LLM request timed out"), nil
		}
		return failure(MarkerUnexpected, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	return Response{
		Content: strings.TrimSpace(out.Message.Content),
		Metadata: map[string]any{
			"model": c.model,
			"done":  out.Done,
		},
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
