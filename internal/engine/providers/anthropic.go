package providers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"matchbot/internal/config"
	"matchbot/internal/store"
	"matchbot/internal/types"
)

// AnthropicStrategy implements the engine.Strategy interface using Anthropic's
// Claude API
type AnthropicStrategy struct {
	client   *anthropic.Client
	provider string // e.g. "anthropic"
	model    string
}

// NewAnthropicStrategy creates a new Anthropic strategy
func NewAnthropicStrategy(apiKey, model string) *AnthropicStrategy {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicStrategy{
		client:   &client,
		provider: config.ProviderAnthropic,
		model:    model,
	}
}

// Judge sends the profile to Claude for a like/comment/pass verdict
func (c *AnthropicStrategy) Judge(ctx context.Context, rec *types.ProfileRecord, criteria config.Criteria) (types.Decision, error) {
	prompt := buildPrompt(rec, criteria)

	// Use prefilling to ensure Claude continues with valid JSON (starting after the "{")
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
		},
	})
	if err != nil {
		return types.Decision{}, fmt.Errorf("failed to call Claude API: %w", err)
	}

	// Extract text from response
	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	// Cache the prompt/response for debugging
	if cachePath, err := store.SaveLLMExchange(store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  c.provider,
		Model:     c.model,
		Prompt:    prompt,
		Response:  responseText,
	}); err != nil {
		log.Printf("Failed to cache LLM exchange: %v", err)
	} else {
		log.Printf("Cached LLM exchange to: %s", cachePath)
	}

	if responseText == "" {
		return types.Decision{}, fmt.Errorf("Claude returned empty response")
	}

	// Prepend "{" since we used prefilling - the response continues from after the "{"
	fullJSON := "{" + responseText
	return ParseJudgmentResponse([]byte(fullJSON))
}
