package oracle

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiOracle verifies legal references with Google Gemini
type GeminiOracle struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	maxBodySize   int
	limiter       *rate.Limiter
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiOracle creates a Gemini-backed oracle
func NewGeminiOracle(
	ctx context.Context,
	cfg config.GeminiConfig,
	ratePerSecond float64,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))

	return &GeminiOracle{
		client:        client,
		model:         model,
		maxBodySize:   cfg.MaxBodySize,
		limiter:       newLimiter(ratePerSecond),
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Verify implements core.VerificationOracle
func (o *GeminiOracle) Verify(ctx context.Context, span string) (*core.Verification, error) {
	if err := wait(ctx, o.limiter); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(promptFormat, o.textProcessor.ProcessText(span, o.maxBodySize))

	resp, err := o.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, unavailable("gemini", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, unavailable("gemini", fmt.Errorf("empty response"))
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	o.logger.Debug("Received Gemini verification response", zap.String("response", text))
	return parseResponse(text)
}

// Close releases the Gemini client
func (o *GeminiOracle) Close() error {
	return o.client.Close()
}
