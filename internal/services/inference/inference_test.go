package inference

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/services/classifier/classifiertest"
)

func encodePNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRank(t *testing.T) {
	preds, err := Rank(
		[]string{"a", "b", "c", "d"},
		[]float64{0.1, 0.4, 0.1, 0.4},
	)
	require.NoError(t, err)

	labels := make([]string, len(preds))
	for i, p := range preds {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, labels)
}

func TestRank_Mismatch(t *testing.T) {
	_, err := Rank([]string{"a"}, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, ErrLabelMismatch)
}

func TestPredictionString(t *testing.T) {
	tests := []struct {
		prob     float64
		expected string
	}{
		{prob: 0.971349, expected: "kiss (97.13%)"},
		{prob: 0.025, expected: "kiss (2.5%)"},
		{prob: 0.12, expected: "kiss (12.0%)"},
		{prob: 1, expected: "kiss (100.0%)"},
		{prob: 0, expected: "kiss (0.0%)"},
		{prob: 0.000049, expected: "kiss (0.0%)"},
		{prob: 0.29, expected: "kiss (29.0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Prediction{Label: "kiss", Probability: tt.prob}.String())
		})
	}
}

func TestPredictionsString(t *testing.T) {
	preds := Predictions{
		{Label: "kiss", Probability: 0.9713},
		{Label: "neutral", Probability: 0.025},
		{Label: "it's", Probability: 0.0037},
	}

	assert.Equal(t, `['kiss (97.13%)', 'neutral (2.5%)', "it's (0.37%)"]`, preds.String())
	assert.Equal(t, "[]", Predictions{}.String())
}

func TestPredictionsTop(t *testing.T) {
	preds := Predictions{{Label: "a"}, {Label: "b"}, {Label: "c"}}

	assert.Len(t, preds.Top(2), 2)
	assert.Len(t, preds.Top(9), 3)
	assert.Len(t, preds.Top(-1), 3)
}

func TestDecode(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		img, format, err := Decode(encodePNG(t, color.RGBA{R: 10, A: 255}))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 16, img.Bounds().Dx())
	})

	t.Run("jpeg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))

		_, format, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := Decode(nil)
		assert.ErrorIs(t, err, ErrEmptyImage)
	})

	t.Run("text", func(t *testing.T) {
		_, _, err := Decode([]byte("definitely not a picture"))
		assert.ErrorIs(t, err, ErrNotAnImage)
	})

	t.Run("truncated png", func(t *testing.T) {
		data := encodePNG(t, color.RGBA{A: 255})
		_, _, err := Decode(data[:40])
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotAnImage)
	})
}

func TestAnalyze(t *testing.T) {
	predictor := classifiertest.NewColorPredictor(config.DefaultLabels)
	analyzer := NewAnalyzer(predictor, 9)

	preds, err := analyzer.Analyze(context.Background(), encodePNG(t, color.RGBA{R: 4, A: 255}))
	require.NoError(t, err)
	require.Len(t, preds, 9)

	assert.Equal(t, "neutral", preds[0].Label)
	assert.Equal(t, "neutral (92.0%)", preds[0].String())

	var total float64
	seen := map[string]bool{}
	for _, p := range preds {
		total += p.Percent()
		seen[p.Label] = true
	}
	assert.InDelta(t, 100, total, 0.1)
	assert.Len(t, seen, 9)
}

func TestAnalyze_TopN(t *testing.T) {
	analyzer := NewAnalyzer(classifiertest.NewColorPredictor(config.DefaultLabels), 3)

	preds, err := analyzer.Analyze(context.Background(), encodePNG(t, color.RGBA{R: 8, A: 255}))
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, "sex", preds[0].Label)
}

func TestAnalyze_Errors(t *testing.T) {
	predictor := classifiertest.NewColorPredictor(config.DefaultLabels)
	analyzer := NewAnalyzer(predictor, 9)

	_, err := analyzer.Analyze(context.Background(), []byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Zero(t, predictor.Calls())

	predictor.Err = errors.New("runtime exploded")
	_, err = analyzer.Analyze(context.Background(), encodePNG(t, color.RGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime exploded")
}
