package acquire

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/batoprep/batoprep/internal/workspace"
)

// ErrAcquisition means the image archive could not be obtained.
var ErrAcquisition = errors.New("image acquisition failed")

// Downloader fetches a remote archive into destDir and returns the local
// path it wrote.
type Downloader interface {
	Download(rawURL, destDir string) (string, error)
}

// Acquirer obtains the compressed image archive from exactly one of a local
// path or a remote URL. The caller validates mutual exclusion up front; the
// check here is a guard against misuse, not the user-facing validation.
type Acquirer struct {
	Downloader Downloader
}

// Acquire returns the local archive path. A local path is used as-is without
// re-validating existence: a bad path surfaces at extraction, which is the
// stage that actually reads it.
func (a *Acquirer) Acquire(localPath, rawURL string, ws workspace.Workspace) (string, error) {
	switch {
	case localPath != "" && rawURL != "":
		return "", fmt.Errorf("%w: both local path and URL supplied", ErrAcquisition)
	case localPath == "" && rawURL == "":
		return "", fmt.Errorf("%w: no image source supplied", ErrAcquisition)
	case localPath != "":
		return localPath, nil
	}

	p, err := a.Downloader.Download(rawURL, ws.Root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	return p, nil
}

// HTTPDownloader streams an archive over HTTP(S) to a file in destDir named
// after the last URL path element.
type HTTPDownloader struct {
	Out io.Writer // progress/status output; nil silences it
}

func (d *HTTPDownloader) Download(rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "batocera.img.gz"
	}
	dest := filepath.Join(destDir, name)

	resp, err := http.Get(rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s fetching %s", resp.Status, rawURL)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if d.Out != nil {
		fmt.Fprintf(d.Out, "Downloaded %s (%s)\n", name, humanize.Bytes(uint64(n)))
	}
	return dest, nil
}
