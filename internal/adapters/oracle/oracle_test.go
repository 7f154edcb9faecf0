package oracle

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var defaultAuthorities = []string{"Residential Tenancies Act 1997", "Section 86", "Section 91ZZ"}

func TestHeuristic_AllKnown(t *testing.T) {
	h := NewHeuristic(defaultAuthorities, zap.NewNop())

	v, err := h.Verify(context.Background(), "Under section 86 of the Residential Tenancies Act 1997 you must give notice.")
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.InDelta(t, 100.0, v.Confidence, 1e-9)
	assert.Empty(t, v.Warnings)
}

func TestHeuristic_UnknownAndRedFlags(t *testing.T) {
	h := NewHeuristic(defaultAuthorities, zap.NewNop())

	v, err := h.Verify(context.Background(), "It is likely that Smith v Jones (2019) supports section 99.")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.Zero(t, v.Confidence)
	require.Len(t, v.Warnings, 3)

	flags := 0
	for _, w := range v.Warnings {
		if strings.HasPrefix(w, "potential hallucination") {
			flags++
		}
	}
	assert.Equal(t, 1, flags)
}

func TestHeuristic_PartialMatchRespectsNumberBoundary(t *testing.T) {
	h := NewHeuristic([]string{"Section 86"}, zap.NewNop())

	v, err := h.Verify(context.Background(), "See section 86 and section 8.")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.InDelta(t, 50.0, v.Confidence, 1e-9)
	assert.Equal(t, []string{"unverified reference: section 8"}, v.Warnings)

	h = NewHeuristic([]string{"Section 8"}, zap.NewNop())
	v, err = h.Verify(context.Background(), "See section 86.")
	require.NoError(t, err)
	assert.Zero(t, v.Confidence)
}

func TestHeuristic_NothingToVerify(t *testing.T) {
	h := NewHeuristic(defaultAuthorities, zap.NewNop())

	v, err := h.Verify(context.Background(), "Please fix the heater.")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.Zero(t, v.Confidence)
	assert.Empty(t, v.Warnings)
}

func TestReferences(t *testing.T) {
	refs := References("Per [2021] VCAT 412 and section  86, see also Section 91ZZ and section 86.")
	assert.Equal(t, []string{"Section 91ZZ", "[2021] VCAT 412", "section 86"}, refs)
}

func TestParseResponse(t *testing.T) {
	v, err := parseResponse(`{"verified":true,"confidence":92.5,"warnings":["check s 91ZZ"]}`)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.InDelta(t, 92.5, v.Confidence, 1e-9)
	assert.Equal(t, []string{"check s 91ZZ"}, v.Warnings)

	v, err = parseResponse("Here is my answer:\n{\"verified\":false,\"confidence\":140}\nThanks")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.InDelta(t, 100.0, v.Confidence, 1e-9)
	assert.NotNil(t, v.Warnings)

	_, err = parseResponse("no json here")
	assert.Error(t, err)
}

func TestNone(t *testing.T) {
	_, err := None{}.Verify(context.Background(), "Section 86")
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
}

func TestOpenAIOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-4","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"verified\":true,\"confidence\":88,\"warnings\":[]}"}}]}`)
	}))
	defer srv.Close()

	clientCfg := openai.DefaultConfig("test-key")
	clientCfg.BaseURL = srv.URL + "/v1"
	o := NewOpenAIOracle(openai.NewClientWithConfig(clientCfg), config.OpenAIConfig{ModelName: "gpt-4", MaxTokens: 100}, 0,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	v, err := o.Verify(context.Background(), "Section 86")
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.InDelta(t, 88.0, v.Confidence, 1e-9)
}

func TestOpenAIOracle_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	clientCfg := openai.DefaultConfig("test-key")
	clientCfg.BaseURL = srv.URL + "/v1"
	o := NewOpenAIOracle(openai.NewClientWithConfig(clientCfg), config.OpenAIConfig{ModelName: "gpt-4"}, 0,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	_, err := o.Verify(context.Background(), "Section 86")
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
}

func TestOpenAIOracle_CancelledContext(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	clientCfg := openai.DefaultConfig("test-key")
	clientCfg.BaseURL = srv.URL + "/v1"
	o := NewOpenAIOracle(openai.NewClientWithConfig(clientCfg), config.OpenAIConfig{ModelName: "gpt-4"}, 1,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Verify(ctx, "Section 86")
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAnthropicOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",`+
			`"content":[{"type":"text","text":"Sure. {\"verified\":false,\"confidence\":40,\"warnings\":[\"s 91ZZ misquoted\"]}"}],`+
			`"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	o := NewAnthropicOracle(config.AnthropicConfig{APIKey: "test-key", ModelName: "claude-3-5-haiku-latest", MaxTokens: 100}, 0,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()), option.WithBaseURL(srv.URL))

	v, err := o.Verify(context.Background(), "Section 91ZZ")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.InDelta(t, 40.0, v.Confidence, 1e-9)
	assert.Equal(t, []string{"s 91ZZ misquoted"}, v.Warnings)
}

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockOracle_ClaudePayload(t *testing.T) {
	inv := &fakeInvoker{body: `{"completion":" {\"verified\":true,\"confidence\":95,\"warnings\":[]}"}`}
	o := NewBedrockOracle(inv, config.BedrockConfig{ModelID: "anthropic.claude-v2", MaxTokens: 200}, 0,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	v, err := o.Verify(context.Background(), "Section 86")
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.InDelta(t, 95.0, v.Confidence, 1e-9)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(inv.input.Body, &sent))
	assert.Contains(t, sent, "max_tokens_to_sample")
	assert.Equal(t, "anthropic.claude-v2", *inv.input.ModelId)
}

func TestBedrockOracle_TitanEmptyResults(t *testing.T) {
	inv := &fakeInvoker{body: `{"results":[]}`}
	o := NewBedrockOracle(inv, config.BedrockConfig{ModelID: "amazon.titan-text-express-v1"}, 0,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	_, err := o.Verify(context.Background(), "Section 86")
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
}

func TestBedrockOracle_InvokeError(t *testing.T) {
	inv := &fakeInvoker{err: io.ErrUnexpectedEOF}
	o := NewBedrockOracle(inv, config.BedrockConfig{ModelID: "meta.llama3"}, 0,
		zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	_, err := o.Verify(context.Background(), "Section 86")
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
