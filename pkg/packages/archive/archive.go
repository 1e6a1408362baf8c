package archive

import (
	"context"
	"fmt"

	v1 "github.com/djcass44/depstrip/pkg/api/v1"
	"github.com/djcass44/depstrip/pkg/archiveutil"
	"github.com/djcass44/depstrip/pkg/descriptor"
	"github.com/djcass44/depstrip/pkg/fileutil"
	"github.com/djcass44/depstrip/pkg/packages"
	"github.com/go-logr/logr"
)

// PackageKeeper edits a package that has been packed
// into a zip archive.
type PackageKeeper struct {
	path  string
	sniff bool
}

func NewPackageKeeper(path string, sniff bool) *PackageKeeper {
	return &PackageKeeper{
		path:  path,
		sniff: sniff,
	}
}

func (p *PackageKeeper) RemoveDependencies(ctx context.Context, names []string) ([]string, error) {
	path, err := fileutil.Resolve(p.path)
	if err != nil {
		return nil, err
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("pkg", path)
	log.V(2).Info("removing dependencies from archive", "count", len(names))

	removed := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	var descriptors int

	err = archiveutil.Rewrite(ctx, path, archiveutil.RewriteOptions{
		Descriptor: v1.DescriptorName,
		Sniff:      p.sniff,
		Patch: func(ctx context.Context, text string) (string, error) {
			descriptors++
			out, r := descriptor.Remove(ctx, text, names)
			// an archive may carry more than one descriptor, but each
			// name is only reported once
			for _, name := range r {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				removed = append(removed, name)
			}
			return out, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if descriptors == 0 {
		log.Info("archive does not contain a descriptor, entries were copied unchanged")
	}
	log.V(1).Info("removed dependencies", "removed", removed)
	return removed, nil
}

func (p *PackageKeeper) ReadDescriptor(ctx context.Context) (string, error) {
	text, ok, err := archiveutil.ReadDescriptor(ctx, p.path, v1.DescriptorName)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", packages.ErrDescriptorNotFound, p.path)
	}
	return text, nil
}
