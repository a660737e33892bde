package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cozy-creator/classify-server/internal/services/classifier"
)

var (
	ErrEmptyImage    = errors.New("empty image upload")
	ErrNotAnImage    = errors.New("upload is not an image")
	ErrLabelMismatch = errors.New("label count does not match predictor output")
)

// Analyzer runs uploaded images through a shared predictor.
type Analyzer struct {
	predictor classifier.Predictor
	topN      int
}

func NewAnalyzer(predictor classifier.Predictor, topN int) *Analyzer {
	return &Analyzer{predictor: predictor, topN: topN}
}

// Decode sniffs and decodes raw upload bytes.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, "", fmt.Errorf("%w: detected %s", ErrNotAnImage, mtype.String())
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	return img, format, nil
}

// Analyze decodes data, classifies it and returns the ranked top predictions.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (Predictions, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	probs, err := a.predictor.Predict(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	preds, err := Rank(a.predictor.Labels(), probs)
	if err != nil {
		return nil, err
	}

	return preds.Top(a.topN), nil
}
