package app

import (
	"context"
	"fmt"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/services/classifier"
	"github.com/cozy-creator/classify-server/internal/services/inference"
	"github.com/cozy-creator/classify-server/internal/services/modelfetcher"
	"github.com/cozy-creator/classify-server/pkg/logger"

	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc
	predictor  classifier.Predictor
	analyzer   *inference.Analyzer

	Logger *zap.Logger
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithPredictor injects an already built predictor, skipping fetch and load.
func WithPredictor(predictor classifier.Predictor) OptionFunc {
	return func(app *App) error {
		app.predictor = predictor
		return nil
	}
}

// WithModel makes sure the model artifact is on disk, then loads it.
// Both steps block until done.
func WithModel() OptionFunc {
	return func(app *App) error {
		if err := FetchModel(app.ctx, app.config, app.Logger); err != nil {
			return err
		}

		predictor, err := classifier.Load(classifier.OptionsFromConfig(app.config), app.Logger)
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}

		app.predictor = predictor
		return nil
	}
}

// FetchModel downloads the configured model unless it is already on disk.
func FetchModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	fetcher := modelfetcher.NewFromConfig(cfg, logger)
	if _, err := fetcher.EnsureModel(ctx, cfg.Model.URL, cfg.Model.Path()); err != nil {
		return fmt.Errorf("failed to fetch model: %w", err)
	}

	return nil
}

func NewApp(config *config.Config, options ...OptionFunc) (*App, error) {
	logger, err := logger.NewLogger(config.Environment)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     config,
		Logger:     logger,
		cancelFunc: cancel,
	}

	// Startup is all-or-nothing: any failing option aborts.
	for _, opt := range options {
		if err := opt(app); err != nil {
			app.Close()
			return nil, err
		}
	}

	if app.predictor != nil {
		app.analyzer = inference.NewAnalyzer(app.predictor, config.Inference.TopN)
	}

	return app, nil
}

func (app *App) Close() {
	app.cancelFunc()

	if app.predictor != nil {
		if err := app.predictor.Close(); err != nil {
			app.Logger.Error("failed to close predictor", zap.Error(err))
		}
	}

	app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) Predictor() classifier.Predictor {
	return app.predictor
}

func (app *App) Analyzer() *inference.Analyzer {
	return app.analyzer
}
