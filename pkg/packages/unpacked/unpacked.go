package unpacked

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/djcass44/depstrip/pkg/api/v1"
	"github.com/djcass44/depstrip/pkg/descriptor"
	"github.com/djcass44/depstrip/pkg/fileutil"
	"github.com/djcass44/depstrip/pkg/packages"
	"github.com/go-logr/logr"
)

// PackageKeeper edits a package that has been unpacked
// into a directory containing a loose descriptor.
type PackageKeeper struct {
	dir string
}

func NewPackageKeeper(dir string) *PackageKeeper {
	return &PackageKeeper{
		dir: dir,
	}
}

// Descriptor returns the path of the descriptor within the
// package directory. The file name is matched ignoring case.
func (p *PackageKeeper) Descriptor() (string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(e.Name(), v1.DescriptorName) {
			return filepath.Join(p.dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s", packages.ErrDescriptorNotFound, filepath.Join(p.dir, v1.DescriptorName))
}

// RemoveDependencies strips names from the loose descriptor. The patched
// text is written to a temporary file in the same directory which is
// then renamed over the descriptor, so the descriptor gets a new inode.
// Hard links to the old file keep the old content and the new file is
// owned by the calling user. The permission bits are carried over.
func (p *PackageKeeper) RemoveDependencies(ctx context.Context, names []string) ([]string, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("pkg", p.dir)
	log.V(2).Info("removing dependencies from unpacked package", "count", len(names))

	path, err := p.Descriptor()
	if err != nil {
		log.Error(err, "failed to locate descriptor")
		return nil, err
	}
	path, err = fileutil.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error(err, "failed to read descriptor", "path", path)
		return nil, err
	}

	out, removed := descriptor.Remove(ctx, string(data), names)
	if len(removed) == 0 {
		log.V(1).Info("no dependencies matched, leaving descriptor untouched")
		return removed, nil
	}

	if err := fileutil.WriteFile(ctx, path, []byte(out), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("writing descriptor: %w", err)
	}
	log.V(1).Info("removed dependencies", "removed", removed)
	return removed, nil
}

func (p *PackageKeeper) ReadDescriptor(context.Context) (string, error) {
	path, err := p.Descriptor()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
