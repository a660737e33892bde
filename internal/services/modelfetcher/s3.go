package modelfetcher

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cozy-creator/classify-server/internal/config"
)

type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func NewS3Client(ctx context.Context, cfg *config.S3Config) (*s3.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 config is not set")
	}

	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		credentialsProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsConfig.WithCredentialsProvider(credentialsProvider))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointUrl != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointUrl)
			o.UsePathStyle = true
		}
	}), nil
}

func (f *Fetcher) openS3(ctx context.Context, src *Source) (io.ReadCloser, int64, error) {
	if f.s3 == nil {
		client, err := NewS3Client(ctx, f.s3Config)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create s3 client: %w", err)
		}
		f.s3 = client
	}

	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get s3 object: %w", err)
	}

	return out.Body, aws.ToInt64(out.ContentLength), nil
}
