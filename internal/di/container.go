package di

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/factory"
	"github.com/mikey/forensic-intel/internal/roles"
	"github.com/mikey/forensic-intel/internal/utils"
)

// Closers collects the shutdown hooks of resources opened by the container
type Closers struct {
	mu  sync.Mutex
	fns []func(context.Context) error
}

// Add registers a shutdown hook
func (c *Closers) Add(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// Close runs the hooks in reverse registration order
func (c *Closers) Close(ctx context.Context) error {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildContainer creates and configures a dependency injection container for the
// analysis pipeline. Resources are opened lazily on first Invoke and released by Closers.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container := dig.New()

	// Register configuration and logger
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *zap.Logger { return logger }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *Closers { return &Closers{} }); err != nil {
		return nil, err
	}

	// Register factories
	for _, ctor := range []interface{}{
		factory.NewTextProcessorFactory,
		factory.NewOracleFactory,
		factory.NewStoreFactory,
		factory.NewGraphFactory,
		factory.NewPipelineFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return nil, err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register role classifier
	if err := container.Provide(func(f *factory.PipelineFactory) (*roles.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register pipeline stages
	if err := container.Provide(func(f *factory.PipelineFactory, classifier *roles.Classifier) (core.Stages, error) {
		return f.CreateStages(classifier)
	}); err != nil {
		return nil, err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory, closers *Closers) (factory.Store, error) {
		s, err := f.CreateStore(ctx)
		if err != nil {
			return nil, err
		}
		closers.Add(func(context.Context) error { return s.Close() })
		return s, nil
	}); err != nil {
		return nil, err
	}

	// Register verification oracle
	if err := container.Provide(func(f *factory.OracleFactory, closers *Closers) (core.VerificationOracle, error) {
		o, err := f.CreateOracle(ctx)
		if err != nil {
			return nil, err
		}
		closers.Add(func(context.Context) error { return f.Close() })
		return o, nil
	}); err != nil {
		return nil, err
	}

	// Register graph sink; a nil sink disables export
	if err := container.Provide(func(f *factory.GraphFactory, classifier *roles.Classifier, closers *Closers) (core.GraphSink, error) {
		exp, err := f.CreateExporter(ctx, classifier)
		if err != nil {
			return nil, err
		}
		if exp == nil {
			return nil, nil
		}
		closers.Add(exp.Close)
		return exp, nil
	}); err != nil {
		return nil, err
	}

	// Register forensic service
	if err := container.Provide(func(
		stages core.Stages,
		s factory.Store,
		oracle core.VerificationOracle,
		sink core.GraphSink,
		tp *utils.TextProcessor,
		f *factory.PipelineFactory,
		logger *zap.Logger,
	) *core.ForensicService {
		return core.NewForensicService(stages, s, oracle, sink, tp, f.ServiceConfig(), logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
