package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/model"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	genaiName    = "genai"
	DefaultModel = "gemini-3-flash-preview"
)

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClient generates text with the Google Gemini API.
type GenAIClient struct {
	models contentGenerator
	model  string
	logger *zap.Logger
}

// NewGenAIClient creates a Gemini client for apiKey. An empty model selects DefaultModel.
func NewGenAIClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGenAIClient(client.Models, modelName, logger), nil
}

func newGenAIClient(models contentGenerator, modelName string, logger *zap.Logger) *GenAIClient {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenAIClient{models: models, model: modelName, logger: logger}
}

// Generate sends the prompt with prior turns and returns the concatenated text parts.
func (c *GenAIClient) Generate(ctx context.Context, prompt, systemInstruction string, history []model.Turn) (string, error) {
	contents := append(contentsFromHistory(history), genai.NewContentFromText(prompt, genai.RoleUser))

	var cfg *genai.GenerateContentConfig
	if systemInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", &ProviderError{Provider: genaiName, Message: err.Error(), Err: err}
	}

	text, err := textFromResponse(resp)
	c.logger.Debug("genai generate",
		zap.String("model", c.model),
		zap.Int("turns", len(contents)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	if err != nil {
		return "", err
	}
	return text, nil
}

// contentsFromHistory maps turns onto user/model contents. System turns are dropped.
func contentsFromHistory(history []model.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		switch t.Role {
		case model.SpeakerUser:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleUser))
		case model.SpeakerAssistant:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleModel))
		}
	}
	return contents
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &ProviderError{Provider: genaiName, Message: "nil response"}
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", &ProviderError{Provider: genaiName, Message: fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)}
		}
		return "", &ProviderError{Provider: genaiName, Message: "no candidates returned"}
	}

	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", &ProviderError{Provider: genaiName, Message: "empty candidate"}
	}

	var parts []string
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		parts = append(parts, p.Text)
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", &ProviderError{Provider: genaiName, Message: "Empty Gemini response"}
	}
	return text, nil
}
