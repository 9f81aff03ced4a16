package acquire

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/batoprep/batoprep/internal/workspace"
)

type fakeDownloader struct {
	calls  int
	gotURL string
	path   string
	err    error
}

func (f *fakeDownloader) Download(rawURL, destDir string) (string, error) {
	f.calls++
	f.gotURL = rawURL
	return f.path, f.err
}

func TestAcquireRejectsBothSources(t *testing.T) {
	a := &Acquirer{Downloader: &fakeDownloader{}}
	_, err := a.Acquire("/local.img.gz", "https://example.org/img.gz", workspace.Workspace{Root: "/w"})
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("error = %v, want ErrAcquisition", err)
	}
}

func TestAcquireRejectsNoSource(t *testing.T) {
	a := &Acquirer{Downloader: &fakeDownloader{}}
	_, err := a.Acquire("", "", workspace.Workspace{Root: "/w"})
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("error = %v, want ErrAcquisition", err)
	}
}

func TestAcquireLocalPassthrough(t *testing.T) {
	dl := &fakeDownloader{}
	a := &Acquirer{Downloader: dl}

	// Deliberately nonexistent: local paths are not re-validated here.
	p, err := a.Acquire("/nonexistent/batocera.img.gz", "", workspace.Workspace{Root: "/w"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "/nonexistent/batocera.img.gz" {
		t.Errorf("path = %q", p)
	}
	if dl.calls != 0 {
		t.Errorf("downloader called %d times for local source", dl.calls)
	}
}

func TestAcquireRemoteDelegates(t *testing.T) {
	dl := &fakeDownloader{path: "/w/batocera.img.gz"}
	a := &Acquirer{Downloader: dl}

	p, err := a.Acquire("", "https://example.org/batocera.img.gz", workspace.Workspace{Root: "/w"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "/w/batocera.img.gz" {
		t.Errorf("path = %q", p)
	}
	if dl.calls != 1 || dl.gotURL != "https://example.org/batocera.img.gz" {
		t.Errorf("downloader calls=%d url=%q", dl.calls, dl.gotURL)
	}
}

func TestAcquireWrapsDownloadError(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("connection reset")}
	a := &Acquirer{Downloader: dl}

	_, err := a.Acquire("", "https://example.org/x.gz", workspace.Workspace{Root: "/w"})
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("error = %v, want ErrAcquisition wrap", err)
	}
}

func TestExtractGzip(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("batocera"), 1024)

	archive := filepath.Join(dir, "batocera.img.gz")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := SuffixExtractor{}.Extract(archive, dir)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if filepath.Base(out) != "batocera.img" {
		t.Errorf("output name = %q, want batocera.img", filepath.Base(out))
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("decompressed payload mismatch")
	}
}

func TestExtractUnknownSuffixPassthrough(t *testing.T) {
	out, err := SuffixExtractor{}.Extract("/staging/batocera.img", "/staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "/staging/batocera.img" {
		t.Errorf("out = %q", out)
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "junk.img.gz")
	if err := os.WriteFile(archive, []byte("not gzip at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := SuffixExtractor{}.Extract(archive, dir)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("error = %v, want ErrExtraction", err)
	}
}
