package oracle

import (
	"context"
	"fmt"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OpenAIOracle verifies legal references with the OpenAI chat completion API
type OpenAIOracle struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	limiter       *rate.Limiter
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIOracle creates an OpenAI-backed oracle
func NewOpenAIOracle(
	client *openai.Client,
	cfg config.OpenAIConfig,
	ratePerSecond float64,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIOracle {
	return &OpenAIOracle{
		client:        client,
		modelName:     cfg.ModelName,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxBodySize:   cfg.MaxBodySize,
		limiter:       newLimiter(ratePerSecond),
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Verify implements core.VerificationOracle
func (o *OpenAIOracle) Verify(ctx context.Context, span string) (*core.Verification, error) {
	if err := wait(ctx, o.limiter); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(promptFormat, o.textProcessor.ProcessText(span, o.maxBodySize))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You verify legal citations and respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		TopP:        o.topP,
	})
	if err != nil {
		return nil, unavailable("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, unavailable("openai", fmt.Errorf("empty response"))
	}

	text := resp.Choices[0].Message.Content
	o.logger.Debug("Received OpenAI verification response", zap.String("response", text))
	return parseResponse(text)
}
