package modelfetcher

import (
	"fmt"
	"net/url"
	"strings"
)

type SourceType string

const (
	SourceTypeDirect SourceType = "direct"
	SourceTypeS3     SourceType = "s3"
)

type Source struct {
	Type     SourceType
	Location string
	Bucket   string
	Key      string
}

func ParseSource(source string) (*Source, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: empty source string", ErrUnsupportedSource)
	}

	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return &Source{Type: SourceTypeDirect, Location: source}, nil
	case strings.HasPrefix(source, "s3://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("failed to parse s3 source: %w", err)
		}

		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("%w: expected s3://<bucket>/<key>, got %s", ErrUnsupportedSource, source)
		}

		return &Source{Type: SourceTypeS3, Location: source, Bucket: u.Host, Key: key}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}
