package filesync

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrCopy means a copy sub-operation failed. It is fatal to that
// sub-operation only; other sub-operations are still attempted and nothing
// already copied is rolled back.
var ErrCopy = errors.New("copy failed")

// Share subdirectory names on the Batocera data partition.
const (
	BIOSDirName = "bios"
	ROMDirName  = "roms"
)

// Request describes the optional copy work after partition repair. Empty
// fields mean "skip that copy", never an error.
type Request struct {
	// MountPath is the repaired data partition root. Empty means no mount
	// path was derived and every copy targeting the card is skipped.
	MountPath string
	// BIOSPath and ROMPath are personal file trees copied onto the card.
	BIOSPath string
	ROMPath  string
	// SecondCard is an already-mounted volume mirroring the card's own
	// bios/roms trees. The caller validates it exists before asking.
	SecondCard string
}

// Sync runs the requested copy operations and returns how many were
// performed. Failures are joined and returned after all sub-operations have
// been attempted.
func Sync(fsys afero.Fs, req Request) (int, error) {
	var (
		ops  int
		errs []error
	)

	copyOp := func(src, dst string) {
		if err := CopyTree(fsys, src, dst); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s -> %s: %v", ErrCopy, src, dst, err))
			return
		}
		ops++
	}

	// Mirror the card's own trees to the second card first, so a failure
	// copying personal files doesn't block the mirror.
	if req.SecondCard != "" && req.MountPath != "" {
		for _, sub := range []string{BIOSDirName, ROMDirName} {
			src := filepath.Join(req.MountPath, sub)
			if ok, _ := afero.DirExists(fsys, src); !ok {
				continue
			}
			copyOp(src, filepath.Join(req.SecondCard, sub))
		}
	}

	if req.MountPath != "" {
		if req.BIOSPath != "" {
			copyOp(req.BIOSPath, filepath.Join(req.MountPath, BIOSDirName))
		}
		if req.ROMPath != "" {
			copyOp(req.ROMPath, filepath.Join(req.MountPath, ROMDirName))
		}
	}

	return ops, errors.Join(errs...)
}

// CopyTree mirrors src into dst recursively, creating dst as needed.
// Existing files in dst are overwritten; files only present in dst are left
// alone.
func CopyTree(fsys afero.Fs, src, dst string) error {
	return afero.Walk(fsys, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fsys.MkdirAll(target, 0o755)
		}
		return copyFile(fsys, path, target, info.Mode())
	})
}

func copyFile(fsys afero.Fs, src, dst string, mode os.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
