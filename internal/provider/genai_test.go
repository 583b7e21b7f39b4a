package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, m string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = m
	f.contents = contents
	f.config = cfg
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: genai.RoleModel, Parts: parts}}},
	}
}

func TestGenAIClient_Generate(t *testing.T) {
	fm := &fakeModels{resp: textResponse(&genai.Part{Text: "thinking", Thought: true}, &genai.Part{Text: "const x = 1;"})}
	c := newGenAIClient(fm, "", nil)

	history := []model.Turn{
		{Role: model.SpeakerUser, Text: "q1"},
		{Role: model.SpeakerSystem, Text: "local error"},
		{Role: model.SpeakerAssistant, Text: "a1"},
	}
	text, err := c.Generate(context.Background(), "q2", "be brief", history)

	require.NoError(t, err)
	assert.Equal(t, "const x = 1;", text)
	assert.Equal(t, DefaultModel, fm.model)
	require.Len(t, fm.contents, 3)
	assert.Equal(t, genai.RoleUser, fm.contents[0].Role)
	assert.Equal(t, genai.RoleModel, fm.contents[1].Role)
	assert.Equal(t, "q2", fm.contents[2].Parts[0].Text)
	require.NotNil(t, fm.config)
	assert.Equal(t, "be brief", fm.config.SystemInstruction.Parts[0].Text)
}

func TestGenAIClient_ProviderFailure(t *testing.T) {
	fm := &fakeModels{err: errors.New("403 PERMISSION_DENIED")}
	_, err := newGenAIClient(fm, "gemini-pro", nil).Generate(context.Background(), "q", "", nil)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "403 PERMISSION_DENIED", pe.Message)
	assert.Nil(t, fm.config)
}

func TestTextFromResponse_Unusable(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil", nil, "nil response"},
		{"no candidates", &genai.GenerateContentResponse{}, "no candidates returned"},
		{"blocked", &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "SAFETY"}}, "prompt blocked: SAFETY"},
		{"whitespace only", textResponse(&genai.Part{Text: "  \n"}), "Empty Gemini response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := textFromResponse(tt.resp)
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Message)
		})
	}
}

func TestNew_SelectsKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "genai"}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	g, err := New(context.Background(), Config{Kind: "PROXY", BaseURL: "http://127.0.0.1:5174"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ProxyClient{}, g)

	_, err = New(context.Background(), Config{Kind: "proxy"}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Kind: "openai"}, nil)
	assert.Error(t, err)
}

func TestProviderError_Format(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &ProviderError{Provider: "proxy", Err: inner}
	assert.Equal(t, "proxy: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, inner)
}
