package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// GeminiClient generates text with Google's Gemini models.
type GeminiClient struct {
	client       *genai.Client
	model        string
	availability *availabilityCache
	logger       *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, availabilityTTL time.Duration, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		client:       client,
		model:        model,
		availability: newAvailabilityCache(availabilityTTL),
		logger:       logger,
	}, nil
}

func (c *GeminiClient) Close() {
	if err := c.client.Close(); err != nil {
		c.logger.Warn("Error closing GenAI client", zap.Error(err))
	}
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) IsAvailable(ctx context.Context) bool {
	return c.availability.check(ctx, "gemini:"+c.model, c.probe)
}

// probe lists models; any answer, even an empty list, means the API key and
// endpoint work.
func (c *GeminiClient) probe(ctx context.Context) bool {
	_, err := c.client.ListModels(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		c.logger.Debug("Gemini probe failed", zap.Error(err))
		return false
	}
	return true
}

func (c *GeminiClient) Generate(ctx context.Context, messages []Message, maxTokens int) (Response, error) {
	var (
		system []string
		turns  []Message
	)
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return Response{}, ErrNoMessages
	}
	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return Response{}, fmt.Errorf("last message is from %q, not the user", last.Role)
	}
	if !c.IsAvailable(ctx) {
		return unavailable(), nil
	}

	model := c.client.GenerativeModel(c.model)
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}
	temp := float32(0.7)
	tokens := int32(maxTokens)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &tokens,
		Temperature:     &temp,
	}

	chatSession := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		if isTimeout(err) {
			return failure(MarkerTimeout, "LLM request timed out"), nil
		}
		return failure(MarkerAPIError, fmt.Sprintf("Gemini API error: %v", err)), nil
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return failure(MarkerEmptyResponse, ""), nil
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return failure(MarkerEmptyResponse, ""), nil
	}
	return Response{
		Content:  strings.TrimSpace(text.String()),
		Metadata: map[string]any{"model": c.model},
	}, nil
}
