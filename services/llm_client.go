package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Roles in a model-facing conversation.
const (
	ModelRoleUser  = "user"
	ModelRoleModel = "model"
)

// Message is one turn of a model-facing conversation.
type Message struct {
	Role string
	Text string
}

// CompletionRequest asks the model for the turn that follows History + Prompt.
type CompletionRequest struct {
	History     []Message
	Prompt      string
	JSON        bool
	Temperature float32
}

// LanguageModel is the generative model seen by the generators and the chat.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

var errEmptyCompletion = errors.New("model returned an empty message")

// GeminiModel talks to the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (g *GeminiModel) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		var role genai.Role = genai.RoleUser
		if m.Role == ModelRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr[float32](req.Temperature)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", err
	}
	text := extractGeminiText(resp)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		// Only the first candidate with content is used.
		if text.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(text.String())
}

// OpenAIModel talks to the OpenAI chat completions API.
type OpenAIModel struct {
	client openai.Client
	model  string
}

func NewOpenAIModel(apiKey, model string) *OpenAIModel {
	return &OpenAIModel{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (o *OpenAIModel) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.JSON {
		messages = append(messages, openai.SystemMessage("Respond with a single JSON object only."))
	}
	for _, m := range req.History {
		if m.Role == ModelRoleModel {
			messages = append(messages, openai.AssistantMessage(m.Text))
		} else {
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}
