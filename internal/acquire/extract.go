package acquire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrExtraction means the archive could not be decompressed into a raw
// image. Always fatal: a truncated image must never reach the flash stage.
var ErrExtraction = errors.New("image extraction failed")

// Extractor turns a compressed archive into a raw image file under destDir
// and returns the image path.
type Extractor interface {
	Extract(archivePath, destDir string) (string, error)
}

// SuffixExtractor dispatches on the archive filename suffix. Batocera
// publishes .img.gz; .xz and .zst are accepted for locally recompressed
// copies. A path with no known suffix is assumed to already be a raw image
// and is returned unchanged.
type SuffixExtractor struct{}

func (SuffixExtractor) Extract(archivePath, destDir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(archivePath))
	switch ext {
	case ".gz", ".xz", ".zst", ".zstd":
	default:
		return archivePath, nil
	}

	in, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer in.Close()

	var src io.Reader
	switch ext {
	case ".gz":
		r, err := gzip.NewReader(in)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		defer r.Close()
		src = r
	case ".xz":
		r, err := xz.NewReader(in)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		src = r
	case ".zst", ".zstd":
		r, err := zstd.NewReader(in)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		defer r.Close()
		src = r.IOReadCloser()
	}

	out := filepath.Join(destDir, strings.TrimSuffix(filepath.Base(archivePath), ext))
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	_, err = io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("%w: decompressing %s: %v", ErrExtraction, archivePath, err)
	}
	return out, nil
}
