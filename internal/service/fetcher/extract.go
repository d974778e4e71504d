package fetcher

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/domain/release"
	"github.com/oshokin/uwb-release/internal/logger"
)

var (
	errOutsideRoot     = errors.New("member is outside the archive root folder")
	errEscapesDest     = errors.New("member escapes the extraction directory")
	errUnsupportedType = errors.New("unsupported member type")
)

//nolint:gochecknoglobals // Magic numbers.
var (
	bzip2Magic = []byte("BZh")
	gzipMagic  = []byte{0x1f, 0x8b}
)

// Extract unpacks archivePath into dest, stripping the leading
// "<identifier>/" from every member. Any previous content of dest is removed.
func Extract(ctx context.Context, archivePath, identifier, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("%w: clear %s: %w", release.ErrExtraction, dest, err)
	}

	if err := os.MkdirAll(dest, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("%w: create %s: %w", release.ErrExtraction, dest, err)
	}

	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("%w: open archive: %w", release.ErrExtraction, err)
	}

	defer func() {
		_ = file.Close()
	}()

	stream, err := decompress(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", release.ErrExtraction, archivePath, err)
	}

	reader := tar.NewReader(stream)
	prefix := identifier + "/"

	var (
		header  *tar.Header
		target  string
		members int
	)

	for {
		if err = ctx.Err(); err != nil {
			return err
		}

		header, err = reader.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("%w: read %s: %w", release.ErrExtraction, archivePath, err)
		}

		name := strings.TrimPrefix(header.Name, "./")
		if name == identifier || name == prefix {
			continue
		}

		if !strings.HasPrefix(name, prefix) {
			return fmt.Errorf("%w: %q: %w", release.ErrExtraction, header.Name, errOutsideRoot)
		}

		target, err = memberPath(dest, name[len(prefix):])
		if err != nil {
			return fmt.Errorf("%w: %q: %w", release.ErrExtraction, header.Name, err)
		}

		if err = writeMember(reader, header, dest, prefix, target); err != nil {
			return fmt.Errorf("%w: %q: %w", release.ErrExtraction, header.Name, err)
		}

		members++
	}

	logger.DebugKV(ctx, "Extracted archive", "members", members, "destination", dest)

	return nil
}

// decompress picks the decoder by the stream's magic bytes.
func decompress(r *bufio.Reader) (io.Reader, error) {
	head, err := r.Peek(len(bzip2Magic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, bzip2Magic):
		return bzip2.NewReader(r), nil
	case bytes.HasPrefix(head, gzipMagic):
		return gzip.NewReader(r)
	default:
		return r, nil
	}
}

// memberPath joins a stripped member name onto dest and refuses anything
// that would land outside of it.
func memberPath(dest, rel string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))

	inside, err := filepath.Rel(dest, target)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", errEscapesDest
	}

	return target, nil
}

func writeMember(reader io.Reader, header *tar.Header, dest, prefix, target string) error {
	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, config.DefaultDirPermissions)
	case tar.TypeReg:
		return writeRegular(reader, target, mode)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
			return err
		}

		linked := filepath.Join(filepath.Dir(target), header.Linkname)
		if filepath.IsAbs(header.Linkname) {
			return errEscapesDest
		}

		if _, err := memberPath(dest, mustRel(dest, linked)); err != nil {
			return err
		}

		return os.Symlink(header.Linkname, target)
	case tar.TypeLink:
		linkName := strings.TrimPrefix(header.Linkname, "./")
		if !strings.HasPrefix(linkName, prefix) {
			return errOutsideRoot
		}

		source, err := memberPath(dest, linkName[len(prefix):])
		if err != nil {
			return err
		}

		if err = os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
			return err
		}

		return os.Link(source, target)
	case tar.TypeXGlobalHeader:
		return nil
	default:
		return fmt.Errorf("%w: %c", errUnsupportedType, header.Typeflag)
	}
}

func writeRegular(reader io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	//nolint:gosec // Archive size is bounded by the CDN artifact.
	if _, err = io.Copy(out, reader); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return ".."
	}

	return filepath.ToSlash(rel)
}
