package modelfetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected *Source
		wantErr  bool
	}{
		{
			name:   "https",
			source: "https://drive.google.com/uc?export=download&id=abc",
			expected: &Source{
				Type:     SourceTypeDirect,
				Location: "https://drive.google.com/uc?export=download&id=abc",
			},
		},
		{
			name:     "http",
			source:   "http://127.0.0.1:9000/model.onnx",
			expected: &Source{Type: SourceTypeDirect, Location: "http://127.0.0.1:9000/model.onnx"},
		},
		{
			name:   "s3",
			source: "s3://models/nsfw/rn50.onnx",
			expected: &Source{
				Type:     SourceTypeS3,
				Location: "s3://models/nsfw/rn50.onnx",
				Bucket:   "models",
				Key:      "nsfw/rn50.onnx",
			},
		},
		{name: "s3 without key", source: "s3://models", wantErr: true},
		{name: "empty", source: "", wantErr: true},
		{name: "unknown scheme", source: "hf:user/repo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSource(tt.source)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedSource)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
