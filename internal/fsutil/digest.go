package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// DigestTree returns an xxhash digest over relative paths, permissions and
// contents of every entry below root. Modification times are ignored, so two
// trees with identical layout and bytes produce the same digest.
func DigestTree(root string) (string, error) {
	digest := xxhash.New()

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(digest, "%s\x00%s\x00", filepath.ToSlash(rel), info.Mode().String())

		switch {
		case entry.IsDir():
			return nil
		case entry.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			_, _ = digest.WriteString(link)

			return nil
		default:
			return hashFile(digest, path)
		}
	})
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", root, err)
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

func hashFile(w io.Writer, path string) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = file.Close()
	}()

	_, err = io.Copy(w, file)

	return err
}
