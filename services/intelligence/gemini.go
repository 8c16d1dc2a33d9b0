package intelligence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"moyobot/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Collaborator failure modes surfaced to the flow controller.
var (
	ErrRateLimited = errors.New("language model rate limited")
	ErrUnavailable = errors.New("language model unavailable")
)

// GeminiClient is the language-model collaborator backed by Gemini.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelName: modelName}, nil
}

// GenerateReply produces the next assistant reply for a conversation. The
// last history entry must be the pending user turn; earlier entries are sent
// as chat history.
func (g *GeminiClient) GenerateReply(ctx context.Context, systemPrompt string, history []models.Turn) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	temperature := float32(0.7)
	model.Temperature = &temperature
	maxTokens := int32(800)
	model.MaxOutputTokens = &maxTokens

	message := "Start"
	prior := history
	if len(history) > 0 {
		last := history[len(history)-1]
		if last.Role == models.RoleUser {
			message = last.Text
			prior = history[:len(history)-1]
		}
	}

	chat := model.StartChat()
	chat.History = toGenaiHistory(prior)

	resp, err := chat.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

func toGenaiHistory(turns []models.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return out
}

func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
