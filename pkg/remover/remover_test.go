package remover

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	v1 "github.com/djcass44/depstrip/pkg/api/v1"
	"github.com/djcass44/depstrip/pkg/stopwatch"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDescriptor = `{"dependencies":{"Foo.Bar.1":{"version":"1"},"Baz.Qux.2":{"version":"2"}}}`

func newArchive(t *testing.T, descriptor string) string {
	path := filepath.Join(t.TempDir(), "package.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string]string{
		"script.txt": "echo hello",
	}
	if descriptor != "" {
		entries["meta.json"] = descriptor
	}
	for name, content := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func readDescriptor(t *testing.T, path string) string {
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "meta.json" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		require.NoError(t, err)
		return string(data)
	}
	t.Fatal("archive does not contain a descriptor")
	return ""
}

func TestRemoveDependencies_Archive(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	path := newArchive(t, testDescriptor)
	sw := stopwatch.New(nil)
	r := &Remover{Timer: sw}

	result := r.RemoveDependencies(ctx, path, []string{"Foo.Bar.1", "Missing.Dep"})
	assert.True(t, result.Success)
	assert.Empty(t, result.ErrorMessage)
	assert.EqualValues(t, 1, result.RemovedCount)
	assert.EqualValues(t, []string{"Foo.Bar.1"}, result.RemovedDependencies)
	assert.Equal(t, `{"dependencies":{"Baz.Qux.2":{"version":"2"}}}`, readDescriptor(t, path))
	assert.NoFileExists(t, path+".tmp")

	timing, ok := sw.Get(TimingRemove)
	assert.True(t, ok)
	assert.Equal(t, 1, timing.Count)
}

func TestRemoveDependencies_ArchiveWithoutDescriptor(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	path := newArchive(t, "")
	result := RemoveDependencies(ctx, path, []string{"Foo.Bar.1"})
	assert.True(t, result.Success)
	assert.Zero(t, result.RemovedCount)
	assert.Empty(t, result.RemovedDependencies)
}

func TestRemoveDependencies_Unpacked(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	dir := t.TempDir()
	path := filepath.Join(dir, "META.json")
	require.NoError(t, os.WriteFile(path, []byte(testDescriptor), 0644))

	result := RemoveDependencies(ctx, dir, []string{"Baz.Qux.2"})
	assert.True(t, result.Success)
	assert.EqualValues(t, []string{"Baz.Qux.2"}, result.RemovedDependencies)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"dependencies":{"Foo.Bar.1":{"version":"1"}}}`, string(data))
}

func TestRemoveDependencies_Failures(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	emptyDir := t.TempDir()
	invalid := filepath.Join(t.TempDir(), "package.zip")
	require.NoError(t, os.WriteFile(invalid, []byte("not a zip"), 0644))

	var cases = []struct {
		name     string
		location string
		deps     []string
		kind     v1.ErrorKind
	}{
		{
			"empty location",
			"",
			[]string{"A"},
			v1.ErrorInvalidInput,
		},
		{
			"no dependencies",
			emptyDir,
			nil,
			v1.ErrorInvalidInput,
		},
		{
			"missing path",
			filepath.Join(emptyDir, "missing"),
			[]string{"A"},
			v1.ErrorNotFound,
		},
		{
			"directory without descriptor",
			emptyDir,
			[]string{"A"},
			v1.ErrorNotFound,
		},
		{
			"invalid archive",
			invalid,
			[]string{"A"},
			v1.ErrorFormat,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result := RemoveDependencies(ctx, tt.location, tt.deps)
			assert.False(t, result.Success)
			assert.EqualValues(t, tt.kind, result.Kind)
			assert.NotEmpty(t, result.ErrorMessage)
			assert.Zero(t, result.RemovedCount)
			assert.Empty(t, result.RemovedDependencies)
		})
	}

	// nothing was written to the directory
	entries, err := os.ReadDir(emptyDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	data, err := os.ReadFile(invalid)
	require.NoError(t, err)
	assert.Equal(t, "not a zip", string(data))
}

func TestRemoveDependencies_CorruptEntry(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	path := filepath.Join(t.TempDir(), "package.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, e := range [][2]string{{"script.txt", "echo hello"}, {"meta.json", testDescriptor}} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e[0], Method: zip.Store, Modified: time.Now()})
		require.NoError(t, err)
		_, err = io.WriteString(w, e[1])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	// damage the stored content so that its checksum no longer matches
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	i := bytes.Index(data, []byte("echo hello"))
	require.NotEqual(t, -1, i)
	data[i+5] = 'j'
	require.NoError(t, os.WriteFile(path, data, 0644))

	result := RemoveDependencies(ctx, path, []string{"Foo.Bar.1"})
	assert.False(t, result.Success)
	assert.EqualValues(t, v1.ErrorFormat, result.Kind)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Empty(t, result.RemovedDependencies)
	assert.NoFileExists(t, path+".tmp")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after)
}
