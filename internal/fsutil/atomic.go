package fsutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// WriteFileAtomic replaces path with data. The new contents are written next to
// the target and swapped in by rename, so readers never see a truncated file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	path = filepath.Clean(path)

	// go-update renames the current target aside first, so it has to exist.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
			return fmt.Errorf("create parent of %s: %w", path, err)
		}

		placeholder, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}

// CopyFileAtomic replaces dst with the contents of src using WriteFileAtomic.
func CopyFileAtomic(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	return WriteFileAtomic(dst, data, mode)
}
