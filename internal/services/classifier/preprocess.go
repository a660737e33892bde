package classifier

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
)

// Preprocess resizes img to size x size and lays it out as a normalised CHW
// float32 tensor: all red values, then green, then blue.
func Preprocess(img image.Image, size int, mean, std [3]float32) []float32 {
	resized := transform.Resize(img, size, size, transform.Linear)

	plane := size * size
	data := make([]float32, 3*plane)
	if resized.Bounds().Empty() {
		return data
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := resized.RGBAAt(x, y)
			i := y*size + x

			data[i] = (float32(c.R)/255 - mean[0]) / std[0]
			data[plane+i] = (float32(c.G)/255 - mean[1]) / std[1]
			data[2*plane+i] = (float32(c.B)/255 - mean[2]) / std[2]
		}
	}

	return data
}

// Softmax turns raw logits into a probability distribution.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	peak := logits[0]
	for _, v := range logits[1:] {
		if v > peak {
			peak = v
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}

	return out
}
