package oracle

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AnthropicOracle verifies legal references with the Anthropic Messages API
type AnthropicOracle struct {
	client        sdk.Client
	modelName     string
	maxTokens     int
	temperature   float64
	maxBodySize   int
	limiter       *rate.Limiter
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAnthropicOracle creates an Anthropic-backed oracle. Extra request options such as a
// base URL are passed through to the SDK client.
func NewAnthropicOracle(
	cfg config.AnthropicConfig,
	ratePerSecond float64,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	opts ...option.RequestOption,
) *AnthropicOracle {
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &AnthropicOracle{
		client:        sdk.NewClient(opts...),
		modelName:     cfg.ModelName,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		maxBodySize:   cfg.MaxBodySize,
		limiter:       newLimiter(ratePerSecond),
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Verify implements core.VerificationOracle
func (o *AnthropicOracle) Verify(ctx context.Context, span string) (*core.Verification, error) {
	if err := wait(ctx, o.limiter); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(promptFormat, o.textProcessor.ProcessText(span, o.maxBodySize))

	msg, err := o.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(o.modelName),
		MaxTokens:   int64(o.maxTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Temperature: sdk.Float(o.temperature),
	})
	if err != nil {
		return nil, unavailable("anthropic", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, unavailable("anthropic", fmt.Errorf("empty response"))
	}

	o.logger.Debug("Received Anthropic verification response",
		zap.String("response", sb.String()),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))
	return parseResponse(sb.String())
}
