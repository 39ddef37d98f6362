// Package llm is the text generation capability used to enrich the
// dashboard. Backends never fail loudly for transport or model problems:
// those come back as a Response whose metadata carries an error marker.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Error markers stored under Response.Metadata["error"].
const (
	MarkerServiceUnavailable = "service_unavailable"
	MarkerAPIError           = "api_error"
	MarkerTimeout            = "timeout"
	MarkerCommunication      = "communication_error"
	MarkerEmptyResponse      = "empty_response"
	MarkerUnexpected         = "unexpected_error"
)

var ErrNoMessages = errors.New("llm: no messages to send")

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Response struct {
	Content  string
	Metadata map[string]any
}

// Err reports the error marker carried in the metadata, if any.
func (r Response) Err() error {
	marker, ok := r.Metadata["error"]
	if !ok {
		return nil
	}
	return fmt.Errorf("llm %v: %s", marker, r.Content)
}

// Usable reports whether the response has text and no error marker.
func (r Response) Usable() bool {
	return r.Err() == nil && strings.TrimSpace(r.Content) != ""
}

// Client is a chat-style text generator.
type Client interface {
	// IsAvailable reports whether the backend is reachable. Results may be
	// cached for a short period.
	IsAvailable(ctx context.Context) bool
	// Generate returns an error only for unusable input; backend failures are
	// reported through the response metadata.
	Generate(ctx context.Context, messages []Message, maxTokens int) (Response, error)
	Model() string
}

func failure(marker, content string) Response {
	return Response{
		Content:  content,
		Metadata: map[string]any{"error": marker},
	}
}

func unavailable() Response {
	return failure(MarkerServiceUnavailable, "LLM service is not available")
}

// Disabled is the Client used when no provider is configured.
type Disabled struct{}

func (Disabled) IsAvailable(context.Context) bool { return false }
func (Disabled) Model() string                    { return "none" }

func (Disabled) Generate(context.Context, []Message, int) (Response, error) {
	return unavailable(), nil
}
