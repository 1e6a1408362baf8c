package packages

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("path not found")
	ErrDescriptorNotFound = errors.New("descriptor not found")
)

// Package is a single package on disk, either packed
// into an archive or unpacked into a directory.
type Package interface {
	// RemoveDependencies strips the named dependencies from the
	// package descriptor and returns the names that were removed.
	RemoveDependencies(ctx context.Context, names []string) ([]string, error)
	// ReadDescriptor returns the text of the package descriptor.
	ReadDescriptor(ctx context.Context) (string, error)
}
