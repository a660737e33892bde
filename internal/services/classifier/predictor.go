package classifier

import (
	"context"
	"errors"
	"image"

	"github.com/cozy-creator/classify-server/internal/config"
)

var (
	ErrIncompatibleModel = errors.New("incompatible model")
	ErrNoLabels          = errors.New("predictor needs at least one label")
	ErrOutputMismatch    = errors.New("model output does not match label count")
	ErrClosed            = errors.New("predictor is closed")
)

// Predictor maps an image to one probability per label, in label order.
// Implementations must be safe for concurrent use.
type Predictor interface {
	Labels() []string
	Predict(ctx context.Context, img image.Image) ([]float64, error)
	Close() error
}

type Options struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	Labels      []string
	ImageSize   int
	Mean        [3]float32
	Std         [3]float32
	Softmax     bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	m := cfg.Model
	opts := Options{
		ModelPath:   m.Path(),
		LibraryPath: m.OnnxLibrary,
		InputName:   m.InputName,
		OutputName:  m.OutputName,
		Labels:      append([]string(nil), m.Labels...),
		ImageSize:   m.ImageSize,
		Softmax:     m.Softmax,
	}

	for i := 0; i < 3 && i < len(m.Mean) && i < len(m.Std); i++ {
		opts.Mean[i] = float32(m.Mean[i])
		opts.Std[i] = float32(m.Std[i])
	}

	return opts
}
