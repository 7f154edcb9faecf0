package factory

import (
	"github.com/mikey/forensic-intel/internal/analyzer"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/extract"
	"github.com/mikey/forensic-intel/internal/graph"
	"github.com/mikey/forensic-intel/internal/ingest"
	"github.com/mikey/forensic-intel/internal/roles"
	"github.com/mikey/forensic-intel/internal/strategy"
	"github.com/mikey/forensic-intel/internal/synthesis"
	"github.com/mikey/forensic-intel/internal/timeline"
	"go.uber.org/zap"
)

// PipelineFactory creates the analysis stages
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates the actor role classifier
func (f *PipelineFactory) CreateClassifier() (*roles.Classifier, error) {
	rc, err := f.cfg.GetRoles()
	if err != nil {
		return nil, err
	}
	return roles.NewClassifier(rc, f.logger), nil
}

// CreateAnalyzer creates the content analyzer, merging the configured pattern file over the defaults
func (f *PipelineFactory) CreateAnalyzer() (*analyzer.Analyzer, error) {
	patterns, err := analyzer.LoadPatterns(f.cfg.GetPipeline().PatternsFile)
	if err != nil {
		return nil, err
	}
	return analyzer.New(patterns, f.logger)
}

// CreateStages creates every pipeline stage
func (f *PipelineFactory) CreateStages(classifier core.RoleClassifier) (core.Stages, error) {
	contentAnalyzer, err := f.CreateAnalyzer()
	if err != nil {
		return core.Stages{}, err
	}

	pc := f.cfg.GetPipeline()
	return core.Stages{
		Ingestor:    ingest.New(f.logger),
		Extractor:   extract.NewExtractor(f.logger),
		Analyzer:    contentAnalyzer,
		Timeline:    timeline.NewBuilder(pc.CausalWindow, pc.CausalThreshold, f.logger),
		Graph:       graph.NewBuilder(f.cfg.GetGraph(), f.logger),
		Strategy:    strategy.NewSimulator(f.cfg.GetStrategy(), classifier, f.logger),
		Synthesizer: synthesis.NewSynthesizer(classifier, f.logger),
	}, nil
}

// ServiceConfig returns the run-level service settings
func (f *PipelineFactory) ServiceConfig() core.ServiceConfig {
	cc := f.cfg.GetCase()
	pc := f.cfg.GetPipeline()
	return core.ServiceConfig{
		CaseID:          cc.ID,
		CaseName:        cc.Name,
		Workers:         pc.Workers,
		ReviewThreshold: f.cfg.GetVerification().ReviewThreshold,
		MaxOracleSpan:   pc.MaxOracleSpan,
	}
}
