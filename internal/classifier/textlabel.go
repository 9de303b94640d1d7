package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/justestif/go-moodify/internal/mood"
)

// DefaultTextModel is the Gemini model used when none is configured.
const DefaultTextModel = "gemini-2.0-flash"

// ErrEmptyResponse is returned when the text labeller produces no text.
var ErrEmptyResponse = errors.New("empty labeller response")

// TextLabeler maps free-form text onto a label string.
type TextLabeler interface {
	LabelText(ctx context.Context, text string) (string, error)
}

// GeminiLabeler asks a Gemini model to pick one label from a table.
type GeminiLabeler struct {
	client *genai.Client
	model  string
	table  mood.Table
	logger *zap.Logger
}

// NewGeminiLabeler creates a labeller restricted to the labels in table.
func NewGeminiLabeler(ctx context.Context, apiKey, model string, table mood.Table, logger *zap.Logger) (*GeminiLabeler, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = DefaultTextModel
	}
	return &GeminiLabeler{
		client: client,
		model:  model,
		table:  table,
		logger: logger,
	}, nil
}

// LabelText returns the model's one-word answer.
func (g *GeminiLabeler) LabelText(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(labelPrompt(g.table), genai.RoleUser),
		genai.NewContentFromText(text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 8,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generating label: %w", err)
	}

	label, err := responseText(resp)
	if err != nil {
		return "", err
	}
	g.logger.Debug("text labelled", zap.String("model", g.model), zap.String("label", label))
	return label, nil
}

func labelPrompt(table mood.Table) string {
	names := make([]string, len(table))
	for i, l := range table {
		names[i] = l.String()
	}
	return "Classify the mood of the next message. Answer with exactly one word from this list: " +
		strings.Join(names, ", ") + "."
}

// responseText returns the first non-empty text part, trimmed of
// whitespace and trailing punctuation.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", ErrEmptyResponse
	}
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if s := strings.Trim(strings.TrimSpace(part.Text), ".!\"'"); s != "" {
			return s, nil
		}
	}
	return "", ErrEmptyResponse
}

var _ TextLabeler = (*GeminiLabeler)(nil)
