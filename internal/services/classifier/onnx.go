package classifier

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

const incompatibleModelHelp = "This model was exported for a GPU-only runtime or with an incompatible framework version " +
	"and will not run in a CPU environment.\n\n" +
	"Update the training environment, export the model to ONNX again for CPU inference, and redeploy it."

// Error fragments that point at a model built for another runtime rather than a broken file.
var incompatibleSignatures = []string{
	"CPU-only machine",
	"CUDAExecutionProvider",
	"Unsupported model IR version",
	"opset",
}

var envMu sync.Mutex

// ONNXPredictor runs a classification model through ONNX Runtime.
// The session is bound to a single pair of tensors, so runs are serialised.
type ONNXPredictor struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	labels  []string
	size    int
	mean    [3]float32
	std     [3]float32
	softmax bool
	logger  *zap.Logger
}

// Load builds a predictor from the model file at opts.ModelPath.
func Load(opts Options, logger *zap.Logger) (*ONNXPredictor, error) {
	if len(opts.Labels) == 0 {
		return nil, ErrNoLabels
	}

	logger = logger.Named("classifier")
	logger.Info("Loading model",
		zap.String("path", opts.ModelPath),
		zap.Int("image_size", opts.ImageSize),
		zap.Strings("labels", opts.Labels),
	)

	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	size := int64(opts.ImageSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(opts.Labels))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		loadErr := explainLoadError(err)
		if loadErr != err {
			logger.Error("Model is incompatible with this runtime", zap.Error(err))
		}
		return nil, loadErr
	}

	logger.Info("Model loaded", zap.Int("classes", len(opts.Labels)))

	return &ONNXPredictor{
		session: session,
		input:   input,
		output:  output,
		labels:  opts.Labels,
		size:    opts.ImageSize,
		mean:    opts.Mean,
		std:     opts.Std,
		softmax: opts.Softmax,
		logger:  logger,
	}, nil
}

func (p *ONNXPredictor) Labels() []string {
	return p.labels
}

func (p *ONNXPredictor) Predict(ctx context.Context, img image.Image) ([]float64, error) {
	data := Preprocess(img, p.size, p.mean, p.std)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.session == nil {
		return nil, ErrClosed
	}

	copy(p.input.GetData(), data)
	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	raw := p.output.GetData()
	if len(raw) != len(p.labels) {
		return nil, fmt.Errorf("%w: got %d values for %d labels", ErrOutputMismatch, len(raw), len(p.labels))
	}

	probs := make([]float64, len(raw))
	for i, v := range raw {
		probs[i] = float64(v)
	}

	if p.softmax {
		probs = Softmax(probs)
	}

	return probs, nil
}

func (p *ONNXPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	if p.input != nil {
		p.input.Destroy()
		p.input = nil
	}
	if p.output != nil {
		p.output.Destroy()
		p.output = nil
	}

	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}

	return nil
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	return nil
}

// explainLoadError swaps a known runtime-incompatibility failure for a
// user-facing explanation. Any other error is returned as is.
func explainLoadError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	for _, sig := range incompatibleSignatures {
		if strings.Contains(msg, sig) {
			return fmt.Errorf("%w: %s\n\n%s", ErrIncompatibleModel, msg, incompatibleModelHelp)
		}
	}

	return err
}
