package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"roboka-backend/internal/config"
)

const systemInstruction = `You are a professional social media manager assistant.
Task:
1. Create a public reply to the user comment in Persian.
2. Create a private direct message (DM) to the user in Persian.

Requirements:
- The reply must be contextually relevant to the post content and the specific user comment.
- If tone is 'funny', use humor and informal Persian (Tehrani dialect).
- If tone is 'professional', use polite and formal Persian.
- If tone is 'friendly', be warm and use standard informal Persian.
- Always include a clear call to action in the DM.`

// replySchema forces the model into strict structured output with exactly
// the two fields the pipeline needs.
var replySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"publicReply": {
			Type:        genai.TypeString,
			Description: "The public comment reply in Persian.",
		},
		"directMessage": {
			Type:        genai.TypeString,
			Description: "The private DM content in Persian.",
		},
	},
	Required: []string{"publicReply", "directMessage"},
}

type geminiBackend struct {
	client    *genai.Client
	modelName string
}

func newGeminiBackend(cfg *config.Config) (*geminiBackend, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	return &geminiBackend{client: client, modelName: cfg.GeminiModel}, nil
}

func (b *geminiBackend) generateJSON(ctx context.Context, req GenerationRequest) (string, error) {
	model := b.client.GenerativeModel(b.modelName)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(2048)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = replySchema
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}

	prompt := fmt.Sprintf(`Post Content/Caption: %q
User Comment: %q
Keyword Triggered: %q
Tone of voice: %q`, req.PostCaption, req.CommentText, req.Keyword, req.Tone)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok && len(text) > 0 {
				return string(text), nil
			}
		}
	}
	return "", errors.New("no text candidates in response")
}

func (b *geminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
