package inference

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Percent is the probability as a percentage rounded to two decimals.
func (p Prediction) Percent() float64 {
	return math.Round(p.Probability*100*100) / 100
}

// String renders the prediction as "label (xx.xx%)".
func (p Prediction) String() string {
	return fmt.Sprintf("%s (%s%%)", p.Label, formatFloat(p.Percent()))
}

type Predictions []Prediction

// Rank pairs labels with their probabilities and sorts them, most likely first.
// Equal probabilities keep label order.
func Rank(labels []string, probs []float64) (Predictions, error) {
	if len(labels) != len(probs) {
		return nil, fmt.Errorf("%w: %d labels, %d probabilities", ErrLabelMismatch, len(labels), len(probs))
	}

	preds := make(Predictions, len(labels))
	for i := range labels {
		preds[i] = Prediction{Label: labels[i], Probability: probs[i]}
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})

	return preds, nil
}

// Top returns at most n predictions.
func (p Predictions) Top(n int) Predictions {
	if n < 0 || n > len(p) {
		n = len(p)
	}
	return p[:n]
}

func (p Predictions) Strings() []string {
	out := make([]string, len(p))
	for i, pred := range p {
		out[i] = pred.String()
	}
	return out
}

// String renders the predictions as a bracketed list of quoted entries,
// e.g. ['kiss (97.13%)', 'neutral (2.5%)'].
func (p Predictions) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range p.Strings() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(s))
	}
	b.WriteByte(']')
	return b.String()
}

// formatFloat prints the shortest decimal form of v, always with a fractional part.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// quote uses single quotes unless the text contains one and no double quote.
func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return "'" + s + "'"
}
