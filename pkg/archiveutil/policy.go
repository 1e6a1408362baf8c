package archiveutil

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// storedExtensions are formats that are already compressed, so
// deflating them again only costs time.
var storedExtensions = map[string]struct{}{
	".png":          {},
	".jpg":          {},
	".jpeg":         {},
	".gif":          {},
	".webp":         {},
	".mp3":          {},
	".ogg":          {},
	".m4a":          {},
	".mp4":          {},
	".webm":         {},
	".mov":          {},
	".unitypackage": {},
}

// storedMIMETypes is the content-sniffing equivalent of
// storedExtensions.
var storedMIMETypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"audio/mpeg",
	"audio/ogg",
	"audio/x-m4a",
	"video/mp4",
	"video/webm",
	"video/quicktime",
	"application/zip",
	"application/gzip",
	"application/x-xz",
	"application/x-bzip2",
	"application/x-7z-compressed",
	"application/zstd",
}

// sniffLen matches the default read limit of mimetype.
const sniffLen = 3072

// LevelFor returns the flate compression level used for an entry
// based on its file extension.
func LevelFor(name string) int {
	ext := strings.ToLower(path.Ext(entryPath(name)))
	if _, ok := storedExtensions[ext]; ok {
		return flate.NoCompression
	}
	return flate.DefaultCompression
}

// MethodFor returns the zip method that goes with a compression level.
func MethodFor(level int) uint16 {
	if level == flate.NoCompression {
		return zip.Store
	}
	return zip.Deflate
}

// sniff inspects the head of r and reports whether its content is
// already compressed. The returned reader replays the inspected bytes.
func sniff(r io.Reader) (bool, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, nil, err
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	return mimetype.EqualsAny(mt.String(), storedMIMETypes...), io.MultiReader(bytes.NewReader(head), r), nil
}

func compressor(level int) zip.Compressor {
	return func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	}
}

// entryPath normalises the separators of an entry name since some
// archivers write Windows paths.
func entryPath(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// IsDescriptor checks whether the base name of an entry matches the
// descriptor file name, ignoring case.
func IsDescriptor(name, descriptor string) bool {
	return strings.EqualFold(path.Base(entryPath(name)), descriptor)
}
