package oracle

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mikey/forensic-intel/internal/core"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const promptFormat = `You are a legal citation verification system for Australian tenancy matters.
Check every case citation and statutory reference in the text below and decide whether each one
is a real, correctly cited authority.
Respond with a JSON object containing:
- verified: boolean (true only if every reference is accurate)
- confidence: number between 0 and 100 (how confident you are that the references are accurate)
- warnings: array of strings (one entry per inaccurate, unverifiable or speculative reference)

Text:
%s

Respond only with the JSON object and nothing else.`

// verificationResponse is the structured answer requested from the LLM providers
type verificationResponse struct {
	Verified   bool     `json:"verified"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

// parseResponse decodes the provider text, falling back to the outermost JSON object
// when the model wrapped its answer in prose
func parseResponse(text string) (*core.Verification, error) {
	var resp verificationResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse verification response: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
		}
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	warnings := resp.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &core.Verification{Verified: resp.Verified, Confidence: confidence, Warnings: warnings}, nil
}

// newLimiter returns a limiter allowing perSecond calls; zero or less disables throttling
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// wait blocks until the limiter admits another provider call
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", core.ErrOracleUnavailable, err)
	}
	return nil
}

// unavailable marks a provider failure so callers can match core.ErrOracleUnavailable
func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrOracleUnavailable, provider, err)
}

// None is the oracle used when verification is disabled; every call is unavailable
type None struct{}

// Verify implements core.VerificationOracle
func (None) Verify(context.Context, string) (*core.Verification, error) {
	return nil, fmt.Errorf("%w: verification disabled", core.ErrOracleUnavailable)
}
