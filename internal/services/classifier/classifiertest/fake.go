// Package classifiertest provides predictors for tests that cannot load a real model.
package classifiertest

import (
	"context"
	"image"
	"sync/atomic"
)

// ColorPredictor favours the label whose index equals the red value of the
// image's top-left pixel, modulo the label count. The favoured label gets
// 0.92 and the remaining mass is split evenly.
type ColorPredictor struct {
	labels []string
	calls  atomic.Int64
	Err    error
}

func NewColorPredictor(labels []string) *ColorPredictor {
	return &ColorPredictor{labels: labels}
}

func (p *ColorPredictor) Labels() []string {
	return p.labels
}

func (p *ColorPredictor) Predict(ctx context.Context, img image.Image) ([]float64, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}

	n := len(p.labels)
	probs := make([]float64, n)
	if n == 0 {
		return probs, nil
	}

	b := img.Bounds()
	r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
	top := int(r>>8) % n

	rest := 0.08 / float64(max(n-1, 1))
	for i := range probs {
		probs[i] = rest
	}
	probs[top] = 0.92
	if n == 1 {
		probs[top] = 1
	}

	return probs, nil
}

func (p *ColorPredictor) Close() error {
	return nil
}

// Calls reports how many times Predict ran.
func (p *ColorPredictor) Calls() int64 {
	return p.calls.Load()
}
