package factory

import (
	"context"
	"fmt"
	"io"

	"github.com/mikey/forensic-intel/internal/adapters/oracle"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OracleFactory creates verification oracles
type OracleFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	closers       []io.Closer
}

// NewOracleFactory creates a new oracle factory
func NewOracleFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *OracleFactory {
	return &OracleFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateOracle creates a verification oracle based on the configuration
func (f *OracleFactory) CreateOracle(ctx context.Context) (core.VerificationOracle, error) {
	vc := f.cfg.GetVerification()

	switch vc.Provider {
	case "heuristic", "":
		return oracle.NewHeuristic(vc.KnownAuthorities, f.logger), nil
	case "none":
		return oracle.None{}, nil
	case "openai":
		oc := f.cfg.GetOpenAI()
		if oc.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return oracle.NewOpenAIOracle(openai.NewClient(oc.APIKey), oc, vc.RatePerSecond, f.logger, f.textProcessor), nil
	case "gemini":
		gc := f.cfg.GetGemini()
		if gc.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		o, err := oracle.NewGeminiOracle(ctx, gc, vc.RatePerSecond, f.logger, f.textProcessor)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, o)
		return o, nil
	case "bedrock":
		bc := f.cfg.GetBedrock()
		client, err := oracle.NewBedrockRuntime(ctx, bc.Region)
		if err != nil {
			return nil, err
		}
		return oracle.NewBedrockOracle(client, bc, vc.RatePerSecond, f.logger, f.textProcessor), nil
	case "anthropic":
		ac := f.cfg.GetAnthropic()
		if ac.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		return oracle.NewAnthropicOracle(ac, vc.RatePerSecond, f.logger, f.textProcessor), nil
	default:
		return nil, fmt.Errorf("unsupported verification provider: %s", vc.Provider)
	}
}

// Close releases clients opened by CreateOracle
func (f *OracleFactory) Close() error {
	var first error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}
