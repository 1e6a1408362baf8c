package fileutil

import (
	"os"
	"path/filepath"
)

func IsSymbolicLink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return true, nil
	}
	return false, nil
}

// Resolve follows path if it is a symbolic link, so that a file
// which gets replaced is the target and the link itself survives.
func Resolve(path string) (string, error) {
	ok, err := IsSymbolicLink(path)
	if err != nil {
		return "", err
	}
	if !ok {
		return path, nil
	}
	return filepath.EvalSymlinks(path)
}
