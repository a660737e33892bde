package modelfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/utils/hashutil"
	"github.com/cozy-creator/classify-server/internal/utils/pathutil"

	"github.com/cenkalti/backoff/v4"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedSource = errors.New("unsupported model source")
	ErrBadStatus         = errors.New("unexpected download status")
	ErrChecksumMismatch  = errors.New("model checksum mismatch")
)

// Fetcher makes sure a model artifact is present on local disk.
type Fetcher struct {
	logger     *zap.Logger
	client     *http.Client
	s3         ObjectGetter
	s3Config   *config.S3Config
	retries    uint64
	progress   bool
	checksum   string
	newBackOff func() backoff.BackOff
}

type Option func(f *Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithS3Client(client ObjectGetter) Option {
	return func(f *Fetcher) {
		f.s3 = client
	}
}

func WithS3Config(cfg *config.S3Config) Option {
	return func(f *Fetcher) {
		f.s3Config = cfg
	}
}

// WithRetries sets how many extra attempts a failed download gets. Zero disables retrying.
func WithRetries(retries uint64) Option {
	return func(f *Fetcher) {
		f.retries = retries
	}
}

func WithProgress(progress bool) Option {
	return func(f *Fetcher) {
		f.progress = progress
	}
}

// WithChecksum enables blake3 verification of the downloaded file against a hex digest.
func WithChecksum(checksum string) Option {
	return func(f *Fetcher) {
		f.checksum = strings.ToLower(strings.TrimSpace(checksum))
	}
}

func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(f *Fetcher) {
		f.newBackOff = newBackOff
	}
}

func New(logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		logger: logger.Named("model_fetcher"),
		client: &http.Client{
			Timeout: 0, // large artifacts, no total timeout
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: 60 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   60 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       60 * time.Second,
			},
		},
		newBackOff: defaultBackOff,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func NewFromConfig(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return New(logger,
		WithS3Config(cfg.S3),
		WithRetries(cfg.Model.DownloadRetries),
		WithProgress(cfg.Model.Progress),
		WithChecksum(cfg.Model.Blake3),
	)
}

// EnsureModel downloads source to dest unless dest already exists.
// It reports whether a download took place.
func (f *Fetcher) EnsureModel(ctx context.Context, source, dest string) (bool, error) {
	if pathutil.Exists(dest) {
		f.logger.Info("Model already present", zap.String("path", dest))
		return false, nil
	}

	src, err := ParseSource(source)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, fmt.Errorf("failed to create model directory: %w", err)
	}

	f.logger.Info("Downloading model",
		zap.String("source_type", string(src.Type)),
		zap.String("source", src.Location),
		zap.String("path", dest),
	)

	if err := f.download(ctx, src, dest); err != nil {
		return false, err
	}

	f.logger.Info("Model downloaded", zap.String("path", dest))
	return true, nil
}

func (f *Fetcher) download(ctx context.Context, src *Source, dest string) error {
	tmpPath := dest + ".tmp"

	b := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), f.retries), ctx)
	err := backoff.RetryNotify(func() error {
		return f.downloadOnce(ctx, src, tmpPath)
	}, b, func(err error, wait time.Duration) {
		f.logger.Warn("Download failed, retrying",
			zap.Error(err),
			zap.Duration("wait", wait),
		)
	})
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to download model: %w", err)
	}

	if f.checksum != "" {
		sum, err := hashutil.Blake3File(tmpPath)
		if err != nil {
			os.Remove(tmpPath)
			return err
		}
		if sum != f.checksum {
			os.Remove(tmpPath)
			return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, f.checksum, sum)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

func (f *Fetcher) downloadOnce(ctx context.Context, src *Source, tmpPath string) error {
	body, size, err := f.open(ctx, src)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(tmpPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to open file: %w", err))
	}
	defer out.Close()

	var reader io.Reader = body
	var bar *mpb.Bar
	if f.progress {
		progress := mpb.NewWithContext(ctx,
			mpb.WithWidth(60),
			mpb.WithRefreshRate(180*time.Millisecond),
			mpb.WithOutput(os.Stderr),
		)
		defer progress.Wait()

		bar = progress.AddBar(size,
			mpb.PrependDecorators(
				decor.Name(filepath.Base(strings.TrimSuffix(tmpPath, ".tmp")), decor.WC{W: 40, C: decor.DidentRight}),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.EwmaETA(decor.ET_STYLE_GO, 90),
				decor.Name(" ] "),
				decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
			),
		)
		reader = bar.ProxyReader(body)
	}

	written, err := io.Copy(out, reader)
	if bar != nil {
		if err != nil {
			bar.Abort(false)
		} else {
			bar.SetTotal(-1, true)
		}
	}
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	if size > 0 && written != size {
		return fmt.Errorf("download size mismatch: expected %d, got %d", size, written)
	}

	return out.Sync()
}

func (f *Fetcher) open(ctx context.Context, src *Source) (io.ReadCloser, int64, error) {
	switch src.Type {
	case SourceTypeDirect:
		return f.openHTTP(ctx, src)
	case SourceTypeS3:
		return f.openS3(ctx, src)
	default:
		return nil, 0, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnsupportedSource, src.Type))
	}
}

func (f *Fetcher) openHTTP(ctx context.Context, src *Source) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return nil, 0, backoff.Permanent(err)
		}
		return nil, 0, err
	}

	return resp.Body, resp.ContentLength, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Minute
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	return b
}
