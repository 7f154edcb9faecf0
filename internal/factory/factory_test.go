package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikey/forensic-intel/internal/adapters/oracle"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(overrides map[string]interface{}) *config.Config {
	cfg := config.NewFromViper(config.NewEmptyViper())
	for k, v := range overrides {
		cfg.Set(k, v)
	}
	return cfg
}

func TestOracleFactory(t *testing.T) {
	tp := NewTextProcessorFactory(zap.NewNop()).CreateTextProcessor()

	cases := []struct {
		provider string
		wantErr  bool
		check    func(t *testing.T, o core.VerificationOracle)
	}{
		{provider: "heuristic", check: func(t *testing.T, o core.VerificationOracle) {
			assert.IsType(t, &oracle.Heuristic{}, o)
		}},
		{provider: "none", check: func(t *testing.T, o core.VerificationOracle) {
			assert.IsType(t, oracle.None{}, o)
		}},
		{provider: "openai", wantErr: true},
		{provider: "anthropic", wantErr: true},
		{provider: "gemini", wantErr: true},
		{provider: "carrier-pigeon", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			f := NewOracleFactory(testConfig(map[string]interface{}{"verification.provider": tc.provider}), zap.NewNop(), tp)
			defer f.Close() //nolint:errcheck

			o, err := f.CreateOracle(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, o)
		})
	}
}

func TestOracleFactory_OpenAIWithKey(t *testing.T) {
	cfg := testConfig(map[string]interface{}{"verification.provider": "openai", "openai.api_key": "sk-test"})
	o, err := NewOracleFactory(cfg, zap.NewNop(), nil).CreateOracle(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &oracle.OpenAIOracle{}, o)
}

func TestStoreFactory(t *testing.T) {
	s, err := NewStoreFactory(testConfig(nil), zap.NewNop()).CreateStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	path := filepath.Join(t.TempDir(), "nested", "forensic.db")
	s, err = NewStoreFactory(testConfig(map[string]interface{}{
		"store.type":        "sqlite",
		"store.sqlite_path": path,
	}), zap.NewNop()).CreateStore(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
	require.NoError(t, s.Close())

	_, err = NewStoreFactory(testConfig(map[string]interface{}{"store.type": "tape"}), zap.NewNop()).CreateStore(context.Background())
	assert.Error(t, err)
}

func TestGraphFactory_Disabled(t *testing.T) {
	exp, err := NewGraphFactory(testConfig(nil), zap.NewNop()).CreateExporter(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, exp)
}

func TestPipelineFactory(t *testing.T) {
	cfg := testConfig(map[string]interface{}{"case.id": "VCAT-1", "pipeline.workers": 2})
	f := NewPipelineFactory(cfg, zap.NewNop())

	classifier, err := f.CreateClassifier()
	require.NoError(t, err)
	stages, err := f.CreateStages(classifier)
	require.NoError(t, err)
	assert.NotNil(t, stages.Ingestor)
	assert.NotNil(t, stages.Synthesizer)

	sc := f.ServiceConfig()
	assert.Equal(t, "VCAT-1", sc.CaseID)
	assert.Equal(t, 2, sc.Workers)
	assert.InDelta(t, 80.0, sc.ReviewThreshold, 1e-9)

	_, err = NewPipelineFactory(testConfig(map[string]interface{}{
		"pipeline.patterns_file": filepath.Join(t.TempDir(), "missing.yaml"),
	}), zap.NewNop()).CreateAnalyzer()
	assert.Error(t, err)
}
