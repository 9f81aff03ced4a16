package device

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound means no physical disk matched the requested index.
var ErrDeviceNotFound = errors.New("device not found")

// Index bounds accepted for a provisioning target. The range mirrors the
// host's small-integer disk numbering; anything outside it is a typo, not a
// disk.
const (
	MinIndex = 1
	MaxIndex = 99
)

// Device describes a physical disk eligible as a provisioning target. The
// Path is the identifier handed to the flashing layer and must stay stable
// for the whole run.
type Device struct {
	Index     int    // position in enumeration order, 1-based
	Path      string // block device node, e.g. /dev/sdb
	SizeBytes uint64
	Model     string
	Removable bool
}

// Enumerator lists the physical disks currently visible to the host, in a
// stable order. Implementations must be read-only.
type Enumerator interface {
	Disks() ([]Device, error)
}

// ValidateIndex rejects indices outside [MinIndex, MaxIndex] before any
// enumeration or destructive call happens.
func ValidateIndex(index int) error {
	if index < MinIndex || index > MaxIndex {
		return fmt.Errorf("disk index %d out of range [%d,%d]", index, MinIndex, MaxIndex)
	}
	return nil
}

// Resolver maps a user-supplied disk index to a concrete device.
type Resolver struct {
	enum Enumerator
}

func NewResolver(enum Enumerator) *Resolver {
	return &Resolver{enum: enum}
}

// Resolve returns the disk at the given index. The index refers to the
// position in the Enumerator's listing (the same numbering the `disks`
// command prints), which may diverge from the numbering other tools use.
func (r *Resolver) Resolve(index int) (Device, error) {
	if err := ValidateIndex(index); err != nil {
		return Device{}, err
	}
	disks, err := r.enum.Disks()
	if err != nil {
		return Device{}, fmt.Errorf("enumerate disks: %w", err)
	}
	for _, d := range disks {
		if d.Index == index {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("disk %d: %w", index, ErrDeviceNotFound)
}
