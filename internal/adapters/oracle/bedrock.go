package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BedrockInvoker is the part of the bedrockruntime client the oracle uses
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockOracle verifies legal references with a model hosted on Amazon Bedrock
type BedrockOracle struct {
	client        BedrockInvoker
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	limiter       *rate.Limiter
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockRuntime loads the default AWS configuration for the region and creates a runtime client
func NewBedrockRuntime(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

// NewBedrockOracle creates a Bedrock-backed oracle
func NewBedrockOracle(
	client BedrockInvoker,
	cfg config.BedrockConfig,
	ratePerSecond float64,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockOracle {
	return &BedrockOracle{
		client:        client,
		modelID:       cfg.ModelID,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxBodySize:   cfg.MaxBodySize,
		limiter:       newLimiter(ratePerSecond),
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func (o *BedrockOracle) isAnthropicModel() bool {
	return strings.HasPrefix(o.modelID, "anthropic.")
}

func (o *BedrockOracle) isAmazonTitanModel() bool {
	return strings.HasPrefix(o.modelID, "amazon.titan")
}

// Verify implements core.VerificationOracle
func (o *BedrockOracle) Verify(ctx context.Context, span string) (*core.Verification, error) {
	if err := wait(ctx, o.limiter); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(promptFormat, o.textProcessor.ProcessText(span, o.maxBodySize))

	var body map[string]interface{}
	switch {
	case o.isAnthropicModel():
		body = map[string]interface{}{
			"prompt":               "\n\nHuman: " + prompt + "\n\nAssistant:",
			"max_tokens_to_sample": o.maxTokens,
			"temperature":          o.temperature,
			"top_p":                o.topP,
		}
	case o.isAmazonTitanModel():
		body = map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": o.maxTokens,
				"temperature":   o.temperature,
				"topP":          o.topP,
			},
		}
	default:
		body = map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  o.maxTokens,
			"temperature": o.temperature,
			"top_p":       o.topP,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := o.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(o.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, unavailable("bedrock", err)
	}

	text, err := o.responseText(resp.Body)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Received Bedrock verification response", zap.String("response", text))
	return parseResponse(text)
}

func (o *BedrockOracle) responseText(body []byte) (string, error) {
	switch {
	case o.isAnthropicModel():
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	case o.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", unavailable("bedrock", fmt.Errorf("empty response from Titan model"))
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return string(body), nil
		}
		for _, s := range []string{genericResp.Output, genericResp.Text, genericResp.Response} {
			if s != "" {
				return s, nil
			}
		}
		return string(body), nil
	}
}
