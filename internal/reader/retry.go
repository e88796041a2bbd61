package reader

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
)

// OpenLocked attempts open up to RetryConfig.MaxAttempts times with
// exponential backoff bounded by RetryConfig.MaxElapsed before giving up.
// None of the platform readers calls it: they open their store once and
// fall back to CopyToTemp on failure.
func OpenLocked(ctx context.Context, open func() (io.Closer, error)) (io.Closer, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = RetryConfig.MaxElapsed

	var closer io.Closer
	attempt := 0
	operation := func() error {
		attempt++
		c, err := open()
		if err != nil {
			if attempt >= RetryConfig.MaxAttempts {
				return backoff.Permanent(err)
			}
			return err
		}
		closer = c
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return closer, nil
}

// CopyToTemp copies srcPath (file or directory) into a fresh temp directory
// under os.TempDir, returning the copy's path. Used when a store is held
// exclusively by its host process: the reader opens the copy read-only
// instead of the live file. The caller must os.RemoveAll the returned path
// when done.
func CopyToTemp(srcPath, prefix string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(tmpDir, filepath.Base(srcPath))
	if info.IsDir() {
		if err := copyDir(srcPath, dst); err != nil {
			os.RemoveAll(tmpDir)
			return "", err
		}
	} else {
		if err := copyFile(srcPath, dst); err != nil {
			os.RemoveAll(tmpDir)
			return "", err
		}
	}

	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}
