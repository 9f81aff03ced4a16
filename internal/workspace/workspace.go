package workspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrWorkspace means the scratch directory could not be brought into a
// usable state.
var ErrWorkspace = errors.New("workspace unusable")

// StagingDirName is the subdirectory images are staged under. The name is
// fixed so reruns find artifacts from earlier runs.
const StagingDirName = "Batocera"

// Workspace is a prepared scratch area. Root holds downloads; Staging holds
// the extracted image.
type Workspace struct {
	Root    string
	Staging string
}

// Prepare brings the scratch directory into a known state. With clear set,
// any prior contents of root are removed first; this is destructive and the
// caller owns the decision. With clear unset, existing files are left alone
// and Prepare is a no-op beyond creating missing directories.
func Prepare(fsys afero.Fs, root string, clear bool) (Workspace, error) {
	if root == "" {
		return Workspace{}, fmt.Errorf("%w: empty root path", ErrWorkspace)
	}
	if clear {
		if err := fsys.RemoveAll(root); err != nil {
			return Workspace{}, fmt.Errorf("%w: clearing %s: %v", ErrWorkspace, root, err)
		}
	}
	staging := filepath.Join(root, StagingDirName)
	if err := fsys.MkdirAll(staging, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("%w: creating %s: %v", ErrWorkspace, staging, err)
	}
	return Workspace{Root: root, Staging: staging}, nil
}
