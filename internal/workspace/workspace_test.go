package workspace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestPrepareCreatesStaging(t *testing.T) {
	fsys := afero.NewMemMapFs()

	ws, err := Prepare(fsys, "/tmp/work", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ws.Staging != filepath.Join("/tmp/work", StagingDirName) {
		t.Errorf("staging = %q", ws.Staging)
	}
	ok, err := afero.DirExists(fsys, ws.Staging)
	if err != nil || !ok {
		t.Fatalf("staging dir missing (ok=%v err=%v)", ok, err)
	}
}

func TestPrepareClearRemovesPriorContents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	stale := "/tmp/work/old-image.img"
	if err := afero.WriteFile(fsys, stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := Prepare(fsys, "/tmp/work", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(fsys, stale); ok {
		t.Error("stale file survived clear=true")
	}
	if ok, _ := afero.DirExists(fsys, ws.Staging); !ok {
		t.Error("staging dir missing after clear")
	}
}

func TestPrepareNoClearPreservesContents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	keep := "/tmp/work/keep.txt"
	if err := afero.WriteFile(fsys, keep, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Prepare(fsys, "/tmp/work", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(fsys, keep); !ok {
		t.Error("unrelated file removed with clear=false")
	}
}

func TestPrepareIdempotentWithoutClear(t *testing.T) {
	fsys := afero.NewMemMapFs()

	ws1, err := Prepare(fsys, "/tmp/work", false)
	if err != nil {
		t.Fatal(err)
	}
	staged := filepath.Join(ws1.Staging, "batocera.img")
	if err := afero.WriteFile(fsys, staged, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws2, err := Prepare(fsys, "/tmp/work", false)
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if ws2 != ws1 {
		t.Errorf("workspace changed across prepares: %+v vs %+v", ws1, ws2)
	}
	if ok, _ := afero.Exists(fsys, staged); !ok {
		t.Error("staged artifact removed by second prepare")
	}
}

func TestPrepareEmptyRoot(t *testing.T) {
	_, err := Prepare(afero.NewMemMapFs(), "", true)
	if !errors.Is(err, ErrWorkspace) {
		t.Fatalf("error = %v, want ErrWorkspace", err)
	}
}
