package archiveutil

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-logr/logr"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ErrFormat is returned when the source file cannot be
// read as a zip archive.
var ErrFormat = errors.New("invalid archive")

// extra field blocks that the writer emits itself
const (
	zip64ExtraID         = 0x0001
	extTimeExtraID       = 0x5455
	extraBlockHeaderSize = 4
)

// TempSuffix is appended to the archive path to build the name of the
// file that the new archive is written to.
const TempSuffix = ".tmp"

// PatchFunc rewrites the text of the descriptor entry.
type PatchFunc func(ctx context.Context, text string) (string, error)

type RewriteOptions struct {
	// Descriptor is the base name of the entry handed to Patch.
	Descriptor string
	// Patch is called with the content of the descriptor entry. A nil
	// Patch copies the descriptor unchanged.
	Patch PatchFunc
	// Sniff checks the content of entries that would otherwise be
	// deflated and stores them if they are already compressed.
	Sniff bool

	// afterEntry is called once an entry has been written.
	afterEntry func(index int, name string) error
}

// Rewrite copies the zip archive at path entry by entry into a new
// archive, routing the descriptor entry through opts.Patch. The new
// archive only replaces the original once it has been completely
// written and closed. On error the original file is left untouched
// and the temporary archive is removed.
func Rewrite(ctx context.Context, path string, opts RewriteOptions) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)
	log.V(3).Info("rewriting archive")

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	src, err := zip.OpenReader(path)
	if err != nil {
		log.Error(err, "failed to open archive")
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	tmpPath := path + TempSuffix
	err = rewrite(ctx, &src.Reader, tmpPath, info.Mode().Perm(), opts)
	// the source must be closed before it can be replaced
	_ = src.Close()
	if err != nil {
		log.Error(err, "failed to rewrite archive")
		removeTemp(ctx, tmpPath)
		return err
	}

	log.V(4).Info("replacing archive", "tmp", tmpPath)
	if err := os.Rename(tmpPath, path); err != nil {
		log.Error(err, "failed to replace archive")
		removeTemp(ctx, tmpPath)
		return fmt.Errorf("replacing archive: %w", err)
	}
	return nil
}

func rewrite(ctx context.Context, src *zip.Reader, dst string, perm os.FileMode, opts RewriteOptions) error {
	log := logr.FromContextOrDiscard(ctx)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating temporary archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if src.Comment != "" {
		if err := zw.SetComment(src.Comment); err != nil {
			_ = zw.Close()
			return fmt.Errorf("setting archive comment: %w", err)
		}
	}

	for i, file := range src.File {
		log.V(5).Info("copying entry", "index", i, "name", file.Name)
		if err := copyEntry(ctx, zw, file, opts); err != nil {
			_ = zw.Close()
			return fmt.Errorf("rewriting entry '%s': %w", file.Name, err)
		}
		if opts.afterEntry != nil {
			if err := opts.afterEntry(i, file.Name); err != nil {
				_ = zw.Close()
				return err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalising archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing archive: %w", err)
	}
	return f.Close()
}

func copyEntry(ctx context.Context, zw *zip.Writer, file *zip.File, opts RewriteOptions) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", file.Name)

	header := &zip.FileHeader{
		Name:           file.Name,
		Comment:        file.Comment,
		Modified:       file.Modified,
		ModifiedTime:   file.ModifiedTime,
		ModifiedDate:   file.ModifiedDate,
		CreatorVersion: file.CreatorVersion,
		ExternalAttrs:  file.ExternalAttrs,
		NonUTF8:        file.NonUTF8,
		Extra:          copyExtra(file.Extra),
	}

	if file.FileInfo().IsDir() {
		header.Method = zip.Store
		_, err := zw.CreateHeader(header)
		return err
	}

	rc, err := openEntry(file)
	if err != nil {
		return err
	}
	defer rc.Close()

	if opts.Descriptor != "" && IsDescriptor(file.Name, opts.Descriptor) {
		log.V(3).Info("patching descriptor")
		return writeDescriptor(ctx, zw, header, rc, opts.Patch)
	}

	var content io.Reader = rc
	level := LevelFor(file.Name)
	if opts.Sniff && level != flate.NoCompression {
		var compressed bool
		compressed, content, err = sniff(rc)
		if err != nil {
			return err
		}
		if compressed {
			level = flate.NoCompression
		}
	}

	log.V(6).Info("selected compression", "level", level)
	w, err := create(zw, header, level)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, content)
	return err
}

func writeDescriptor(ctx context.Context, zw *zip.Writer, header *zip.FileHeader, r io.Reader, patch PatchFunc) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	text := string(data)
	if patch != nil {
		text, err = patch(ctx, text)
		if err != nil {
			return fmt.Errorf("patching descriptor: %w", err)
		}
	}
	w, err := create(zw, header, flate.BestCompression)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// create adds an entry to the archive, compressed at the given level.
func create(zw *zip.Writer, header *zip.FileHeader, level int) (io.Writer, error) {
	header.Method = MethodFor(level)
	if header.Method == zip.Deflate {
		// compressors are resolved when the header is created, so
		// swapping the registration here scopes the level to this entry
		zw.RegisterCompressor(zip.Deflate, compressor(level))
	}
	return zw.CreateHeader(header)
}

// openEntry opens the content of an entry. Any failure to decode the
// entry, including a checksum mismatch at the end of the stream, is
// reported as ErrFormat.
func openEntry(file *zip.File) (io.ReadCloser, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return &entryReader{ReadCloser: rc}, nil
}

type entryReader struct {
	io.ReadCloser
}

func (r *entryReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return n, err
}

// copyExtra returns the extra field blocks of an entry without the
// ones that zip.Writer adds on its own.
func copyExtra(extra []byte) []byte {
	var out []byte
	for len(extra) >= extraBlockHeaderSize {
		tag := binary.LittleEndian.Uint16(extra[:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if extraBlockHeaderSize+size > len(extra) {
			// truncated block
			break
		}
		block := extra[:extraBlockHeaderSize+size]
		extra = extra[len(block):]
		if tag == zip64ExtraID || tag == extTimeExtraID {
			continue
		}
		out = append(out, block...)
	}
	return out
}

func removeTemp(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logr.FromContextOrDiscard(ctx).V(1).Info("failed to remove temporary archive", "tmp", path, "error", err.Error())
	}
}

// ReadDescriptor returns the content of the first entry in the archive
// whose base name matches descriptor. The boolean is false when the
// archive has no such entry.
func ReadDescriptor(ctx context.Context, path, descriptor string) (string, bool, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	zr, err := zip.OpenReader(path)
	if err != nil {
		log.Error(err, "failed to open archive")
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", false, err
		}
		return "", false, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.FileInfo().IsDir() || !IsDescriptor(file.Name, descriptor) {
			continue
		}
		log.V(4).Info("reading descriptor", "name", file.Name)
		rc, err := openEntry(file)
		if err != nil {
			return "", false, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", false, err
		}
		return string(data), true, nil
	}
	return "", false, nil
}
