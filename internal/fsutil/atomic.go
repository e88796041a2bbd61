package fsutil

import (
	"os"
	"path/filepath"
)

// WriteAtomic writes data to path by writing to path+".tmp", fsyncing, then
// renaming over path. Every AICF and cache-chunk write goes through this so
// a crash mid-write never leaves a partial file at the real path.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// AppendAtomic appends a single line (newline-terminated) to path by
// reading the existing content, appending in memory, and rewriting via
// WriteAtomic. AICF files are small enough (per-conversation, per-day) that
// this is simpler and safer than relying on O_APPEND across processes.
func AppendAtomic(path string, line string, perm os.FileMode) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	data := append(existing, []byte(line)...)
	return WriteAtomic(path, data, perm)
}
