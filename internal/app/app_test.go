package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/services/classifier/classifiertest"
	"github.com/cozy-creator/classify-server/internal/services/modelfetcher"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	cfg.Environment = "test"
	cfg.Model.Dir = t.TempDir()
	cfg.Model.Progress = false
	return cfg
}

func TestNewApp_WithPredictor(t *testing.T) {
	cfg := testConfig(t)
	predictor := classifiertest.NewColorPredictor(cfg.Model.Labels)

	app, err := NewApp(cfg, WithLogger(zap.NewNop()), WithPredictor(predictor))
	require.NoError(t, err)
	defer app.Close()

	assert.Same(t, cfg, app.Config())
	assert.Same(t, predictor, app.Predictor())
	require.NotNil(t, app.Analyzer())
	assert.NoError(t, app.Context().Err())
}

func TestNewApp_WithoutPredictorHasNoAnalyzer(t *testing.T) {
	app, err := NewApp(testConfig(t), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	assert.Nil(t, app.Analyzer())
	app.Close()
	assert.ErrorIs(t, app.Context().Err(), context.Canceled)
}

func TestNewApp_FetchFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Model.URL = srv.URL + "/missing.onnx"

	_, err := NewApp(cfg, WithLogger(zap.NewNop()), WithModel())
	require.Error(t, err)
	assert.ErrorIs(t, err, modelfetcher.ErrBadStatus)
	assert.NoFileExists(t, filepath.Join(cfg.Model.Dir, cfg.Model.FileName))
}

func TestFetchModel_SkipsExisting(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Model.URL = srv.URL
	require.NoError(t, os.WriteFile(cfg.Model.Path(), []byte("weights"), 0o644))

	require.NoError(t, FetchModel(context.Background(), cfg, zap.NewNop()))
	assert.Zero(t, hits)
}
