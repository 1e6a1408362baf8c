// Package remover is the entry point for stripping dependencies from
// a package. It decides whether a location is an archive or an
// unpacked directory, hands it to the matching keeper and folds every
// outcome into a v1.RemovalResult.
package remover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	v1 "github.com/djcass44/depstrip/pkg/api/v1"
	"github.com/djcass44/depstrip/pkg/archiveutil"
	"github.com/djcass44/depstrip/pkg/packages"
	"github.com/djcass44/depstrip/pkg/packages/archive"
	"github.com/djcass44/depstrip/pkg/packages/unpacked"
	"github.com/djcass44/depstrip/pkg/stopwatch"
	"github.com/go-logr/logr"
)

// TimingRemove is the stopwatch entry that removals are recorded under.
const TimingRemove = "remove"

type Remover struct {
	// Sniff enables content detection when choosing the
	// compression method of archive entries.
	Sniff bool
	// Timer receives the duration of each removal. It may be nil.
	Timer *stopwatch.Stopwatch
}

// RemoveDependencies removes dependencies using a zero-value Remover.
func RemoveDependencies(ctx context.Context, location string, names []string) v1.RemovalResult {
	return (&Remover{}).RemoveDependencies(ctx, location, names)
}

// RemoveDependencies strips names from the descriptor of the package at
// location. It never panics or returns an error. Failures are reported
// through the result, and when the result is unsuccessful the package
// on disk has not been modified.
func (r *Remover) RemoveDependencies(ctx context.Context, location string, names []string) (result v1.RemovalResult) {
	log := logr.FromContextOrDiscard(ctx).WithValues("location", location)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("unexpected failure: %v", rec)
			log.Error(err, "recovered from panic")
			result = failure(v1.ErrorUnknown, err)
		}
	}()

	if r.Timer != nil {
		r.Timer.Start(TimingRemove)
		defer r.Timer.Stop(TimingRemove)
	}

	if len(names) == 0 {
		err := fmt.Errorf("%w: at least one dependency name must be given", packages.ErrInvalidInput)
		log.Error(err, "rejecting request")
		return failure(v1.ErrorInvalidInput, err)
	}

	pkg, err := r.Open(location)
	if err != nil {
		log.Error(err, "failed to open package")
		return failure(classify(err), err)
	}

	removed, err := pkg.RemoveDependencies(ctx, names)
	if err != nil {
		log.Error(err, "failed to remove dependencies")
		return failure(classify(err), err)
	}
	return v1.RemovalResult{
		Success:             true,
		RemovedCount:        len(removed),
		RemovedDependencies: removed,
	}
}

// Open picks the keeper that understands location. Regular files are
// treated as archives and directories as unpacked packages.
func (r *Remover) Open(location string) (packages.Package, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: package location must be set", packages.ErrInvalidInput)
	}

	info, err := os.Stat(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", packages.ErrNotFound, location)
		}
		return nil, err
	}
	switch {
	case info.Mode().IsRegular():
		return archive.NewPackageKeeper(location, r.Sniff), nil
	case info.IsDir():
		return unpacked.NewPackageKeeper(location), nil
	default:
		return nil, fmt.Errorf("%w: not a regular file or directory: %s", packages.ErrInvalidInput, location)
	}
}

func failure(kind v1.ErrorKind, err error) v1.RemovalResult {
	return v1.RemovalResult{
		Success:             false,
		Kind:                kind,
		ErrorMessage:        err.Error(),
		RemovedDependencies: []string{},
	}
}

func classify(err error) v1.ErrorKind {
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	switch {
	case errors.Is(err, packages.ErrInvalidInput):
		return v1.ErrorInvalidInput
	case errors.Is(err, packages.ErrNotFound),
		errors.Is(err, packages.ErrDescriptorNotFound),
		errors.Is(err, fs.ErrNotExist):
		return v1.ErrorNotFound
	case errors.Is(err, archiveutil.ErrFormat):
		return v1.ErrorFormat
	case errors.As(err, &pathErr), errors.As(err, &linkErr):
		return v1.ErrorIO
	default:
		return v1.ErrorUnknown
	}
}
