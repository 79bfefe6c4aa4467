package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/model"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DeepSeek exposes an OpenAI-compatible chat API.
const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"
)

// Configuration holds the chat completion settings.
type Configuration struct {
	BaseURL string
	Model   string
	APIKey  string
}

// NewConfiguration reads the LLM configuration from the environment
// (optionally from a .env file). Only the API key is required.
func NewConfiguration() (*Configuration, error) {
	godotenv.Load()

	configuration := &Configuration{
		BaseURL: os.Getenv("LLM_BASE_URL"),
		Model:   os.Getenv("LLM_MODEL"),
		APIKey:  os.Getenv("LLM_API_KEY"),
	}
	if configuration.APIKey == "" {
		return nil, helper.NewError("llm configuration validation", fmt.Errorf("missing environment variable LLM_API_KEY"))
	}
	if configuration.BaseURL == "" {
		configuration.BaseURL = DefaultBaseURL
	}
	if configuration.Model == "" {
		configuration.Model = DefaultModel
	}

	return configuration, nil
}

// ChatGenerator generates answers through an OpenAI-compatible chat
// completion endpoint.
type ChatGenerator struct {
	client openai.Client
	model  string
}

// NewChatGenerator creates a generator for the configured endpoint.
func NewChatGenerator(configuration *Configuration) *ChatGenerator {
	client := openai.NewClient(
		option.WithBaseURL(configuration.BaseURL),
		option.WithAPIKey(configuration.APIKey),
	)

	return &ChatGenerator{
		client: client,
		model:  configuration.Model,
	}
}

// Generate answers the question from the fused evidence. Empty evidence
// yields the fixed no-context answer without calling the model.
func (g *ChatGenerator) Generate(ctx context.Context, question string, evidence *model.FusedContext) (*Answer, error) {
	if evidence.Empty() {
		return &Answer{Text: NoContextAnswer, UsedContext: false}, nil
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(question, evidence)),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return nil, helper.NewError("chat completion", err)
	}
	if len(completion.Choices) == 0 {
		return nil, helper.NewError("chat completion", fmt.Errorf("no choices returned"))
	}

	return &Answer{
		Text:        completion.Choices[0].Message.Content,
		Sources:     evidence.Sources(),
		UsedContext: true,
	}, nil
}
