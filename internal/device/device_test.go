package device

import (
	"errors"
	"testing"
)

type fakeEnumerator struct {
	disks []Device
	err   error
	calls int
}

func (f *fakeEnumerator) Disks() ([]Device, error) {
	f.calls++
	return f.disks, f.err
}

func TestValidateIndexBounds(t *testing.T) {
	for _, idx := range []int{0, -1, 100, 1000} {
		if err := ValidateIndex(idx); err == nil {
			t.Errorf("index %d: expected error, got nil", idx)
		}
	}
	for _, idx := range []int{1, 2, 99} {
		if err := ValidateIndex(idx); err != nil {
			t.Errorf("index %d: unexpected error: %v", idx, err)
		}
	}
}

func TestResolveRejectsOutOfRangeBeforeEnumerating(t *testing.T) {
	enum := &fakeEnumerator{}
	r := NewResolver(enum)

	if _, err := r.Resolve(0); err == nil {
		t.Fatal("expected error for index 0")
	}
	if _, err := r.Resolve(100); err == nil {
		t.Fatal("expected error for index 100")
	}
	if enum.calls != 0 {
		t.Errorf("enumerator called %d times for invalid indices, want 0", enum.calls)
	}
}

func TestResolveFindsMatchingIndex(t *testing.T) {
	enum := &fakeEnumerator{disks: []Device{
		{Index: 1, Path: "/dev/sda"},
		{Index: 2, Path: "/dev/sdb", Removable: true},
	}}
	r := NewResolver(enum)

	d, err := r.Resolve(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Path != "/dev/sdb" {
		t.Errorf("resolved path = %q, want /dev/sdb", d.Path)
	}
}

func TestResolveMissingIndex(t *testing.T) {
	enum := &fakeEnumerator{disks: []Device{{Index: 1, Path: "/dev/sda"}}}
	r := NewResolver(enum)

	_, err := r.Resolve(5)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("error = %v, want ErrDeviceNotFound", err)
	}
}

func TestResolvePropagatesEnumerationError(t *testing.T) {
	enum := &fakeEnumerator{err: errors.New("lsblk exploded")}
	r := NewResolver(enum)

	if _, err := r.Resolve(1); err == nil {
		t.Fatal("expected enumeration error to propagate")
	}
}

func TestIsVirtual(t *testing.T) {
	virtual := []string{"loop0", "dm-3", "zram0", "sr0", "md127"}
	for _, name := range virtual {
		if !isVirtual(name) {
			t.Errorf("%s should be virtual", name)
		}
	}
	physical := []string{"sda", "sdb", "mmcblk0", "nvme0n1"}
	for _, name := range physical {
		if isVirtual(name) {
			t.Errorf("%s should not be virtual", name)
		}
	}
}
