package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/logger"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

const (
	// ArchiveExtension is appended to the archive name to form the download file name.
	ArchiveExtension = ".tar.bz2"

	// partialSuffix marks a download that has not completed yet.
	partialSuffix = ".part"

	// tempDirName is the download directory inside the libs directory.
	tempDirName = "temp"
)

var (
	errBadHTTPStatus = errors.New("unexpected http status")
	errEmptyDownload = errors.New("downloaded archive is empty")
)

// Fetcher downloads and unpacks CEF archives.
type Fetcher struct {
	cfg    *config.Config
	client *http.Client
	runner toolchain.Runner
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithRunner overrides the runner used for post-processing tools such as strip.
func WithRunner(runner toolchain.Runner) Option {
	return func(f *Fetcher) {
		if runner != nil {
			f.runner = runner
		}
	}
}

// New creates a Fetcher for the given settings.
func New(cfg *config.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		client: http.DefaultClient,
		runner: toolchain.NewExecRunner(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the archive for platformToken and extracts it into the
// platform's libs directory, returning the absolute extraction root.
// It is a single best-effort attempt: no retries, no timeouts.
func (f *Fetcher) Fetch(ctx context.Context, platformToken string) (string, error) {
	ctx = logger.WithKV(logger.WithName(ctx, "fetcher"), "platform", platformToken)

	version, err := ReadEngineVersion(f.cfg.Path(f.cfg.VersionSourceFile))
	if err != nil {
		return "", err
	}

	identifier := ArchiveName(f.cfg.ArchivePrefix, version, platformToken)

	downloadURL, err := f.archiveURL(identifier)
	if err != nil {
		return "", err
	}

	tempDir := filepath.Join(f.cfg.Path(f.cfg.LibsDir), tempDirName)
	if err = os.MkdirAll(tempDir, config.DefaultDirPermissions); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	archivePath := filepath.Join(tempDir, identifier+ArchiveExtension)

	logger.InfoKV(ctx, "Downloading CEF archive", "url", downloadURL, "path", archivePath)

	if err = f.download(ctx, downloadURL, archivePath); err != nil {
		return "", err
	}

	destination, err := filepath.Abs(f.cfg.ExtractedPath(platformToken))
	if err != nil {
		return "", fmt.Errorf("resolve extraction directory: %w", err)
	}

	logger.InfoKV(ctx, "Extracting CEF archive", "archive", archivePath, "destination", destination)

	if err = Extract(ctx, archivePath, identifier, destination); err != nil {
		return "", err
	}

	return destination, nil
}

// archiveURL joins the CDN base URL and the archive file name.
func (f *Fetcher) archiveURL(identifier string) (string, error) {
	base, err := url.Parse(f.cfg.CDNBaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid CDN URL: %w", release.ErrConfiguration, err)
	}

	base.Path = path.Join("/", base.Path, identifier+ArchiveExtension)

	return base.String(), nil
}

// download stores the response body at dest. The body is written to a
// partial file first and only renamed into place once it is complete and
// non-empty, so a failed fetch never leaves a file at dest.
func (f *Fetcher) download(ctx context.Context, downloadURL, dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove stale archive: %w", release.ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", release.ErrFetch, err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", release.ErrFetch, downloadURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s, %s: %w", release.ErrFetch, downloadURL, response.Status, errBadHTTPStatus)
	}

	partial := dest + partialSuffix

	written, err := writeFile(partial, response.Body)
	if err != nil {
		_ = os.Remove(partial)

		return fmt.Errorf("%w: save %s: %w", release.ErrFetch, downloadURL, err)
	}

	if written == 0 {
		_ = os.Remove(partial)

		return fmt.Errorf("%w: %s: %w", release.ErrFetch, downloadURL, errEmptyDownload)
	}

	if err = os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)

		return fmt.Errorf("%w: %w", release.ErrFetch, err)
	}

	logger.DebugKV(ctx, "Downloaded archive", "bytes", written)

	return nil
}

func writeFile(path string, body io.Reader) (int64, error) {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, body)
	if err != nil {
		_ = out.Close()

		return written, err
	}

	return written, out.Close()
}
