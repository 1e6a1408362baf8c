package fileutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
)

// WriteFile replaces the content of path with data. The data is
// written to a temporary file in the same directory which is renamed
// over path once it has been flushed, so readers never observe a
// partially written file.
func WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		log.Error(err, "failed to create temporary file")
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	log.V(5).Info("writing temporary file", "tmp", tmpPath)

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		log.Error(err, "failed to write file")
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		return fail(fmt.Errorf("setting permissions: %w", err))
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("writing: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		log.Error(err, "failed to replace file")
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}
