package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/djcass44/depstrip/pkg/packages"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// interface guard
var _ packages.Package = &PackageKeeper{}

func writeArchive(t *testing.T, path string, entries [][2]string) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e[0], Method: zip.Deflate, Modified: time.Now()})
		require.NoError(t, err)
		_, err = io.WriteString(w, e[1])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestPackageKeeper_RemoveDependencies(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	dir := t.TempDir()
	target := filepath.Join(dir, "package.zip")
	writeArchive(t, target, [][2]string{
		{"meta.json", `{"dependencies":{"A":{},"B":{},"C":{}}}`},
		{"nested/meta.json", `{"dependencies":{"C":{},"A":{}}}`},
		{"image.png", "png"},
	})

	// edit through a symbolic link so that we can check the
	// link is left in place
	link := filepath.Join(dir, "link.zip")
	require.NoError(t, os.Symlink(target, link))

	pkg := NewPackageKeeper(link, false)
	removed, err := pkg.RemoveDependencies(ctx, []string{"C", "A", "Z"})
	require.NoError(t, err)
	assert.EqualValues(t, []string{"C", "A"}, removed)

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	zr, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer zr.Close()

	expected := map[string]string{
		"meta.json":        `{"dependencies":{"B":{}}}`,
		"nested/meta.json": `{"dependencies":{}}`,
		"image.png":        "png",
	}
	require.Len(t, zr.File, len(expected))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		require.NoError(t, err)
		assert.Equal(t, expected[f.Name], string(data), f.Name)
	}
}

func TestPackageKeeper_ReadDescriptor(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	t.Run("present", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "package.zip")
		writeArchive(t, path, [][2]string{
			{"readme.md", "# hello"},
			{"Meta.json", `{"dependencies":{}}`},
		})

		text, err := NewPackageKeeper(path, false).ReadDescriptor(ctx)
		assert.NoError(t, err)
		assert.Equal(t, `{"dependencies":{}}`, text)
	})
	t.Run("absent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "package.zip")
		writeArchive(t, path, [][2]string{
			{"readme.md", "# hello"},
		})

		_, err := NewPackageKeeper(path, false).ReadDescriptor(ctx)
		assert.ErrorIs(t, err, packages.ErrDescriptorNotFound)
	})
}
