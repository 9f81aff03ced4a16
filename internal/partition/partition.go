package partition

import (
	"fmt"
)

// Info describes one partition of the target disk, read fresh from the OS.
// Snapshots taken before the flash are worthless afterwards, so nothing in
// this package caches across calls.
type Info struct {
	DiskPath   string // parent disk node, e.g. /dev/sdb
	Number     int    // partition number on the disk
	DevicePath string // partition node, e.g. /dev/sdb2
	SizeBytes  uint64
	FSType     string
	Label      string
	MountPoint string // empty when not mounted
}

// Source reads the current partition state of a disk.
type Source interface {
	Partitions(diskPath string) ([]Info, error)
}

// Selector picks the data partition among those present. It reports false
// when nothing matches, which the repair stage treats as a failure.
type Selector func(parts []Info) (Info, bool)

// LastByNumber is the default heuristic: the highest-numbered partition is
// the data partition. Batocera images put the user share last, but nothing
// guarantees that across image versions; callers can swap in a selector
// keyed on size or filesystem type instead.
func LastByNumber(parts []Info) (Info, bool) {
	if len(parts) == 0 {
		return Info{}, false
	}
	best := parts[0]
	for _, p := range parts[1:] {
		if p.Number > best.Number {
			best = p
		}
	}
	return best, true
}

// Mounter mutates partition metadata: mount point assignment and filesystem
// labels. Implementations touch live OS state and are only called when the
// corresponding attribute is missing.
type Mounter interface {
	// Mount attaches the partition and returns the mounted root path. The
	// designator is honored on hosts that assign drive letters; elsewhere
	// the mount service picks the path.
	Mount(p Info, designator string) (string, error)
	SetLabel(p Info, label string) error
}

// Status classifies a repair attempt.
type Status int

const (
	// StatusOK: mount path derived, label present.
	StatusOK Status = iota
	// StatusDegraded: mount path derived but some metadata could not be
	// fixed. Later stages can still use the mount path.
	StatusDegraded
	// StatusFailed: no mount path could be derived. Later stages that need
	// one must be skipped.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the typed result of the repair stage. It is never an abort
// signal: the orchestrator reports it and continues, because the user may
// have mounted or labeled the partition by hand already.
type Outcome struct {
	Status    Status
	MountPath string
	Err       error
}

// Repairer inspects the data partition after the card has been re-seated
// and assigns whatever metadata the flash left missing.
type Repairer struct {
	Source  Source
	Select  Selector // nil means LastByNumber
	Mounter Mounter
}

// Repair runs the four repair substeps under a single failure boundary:
// enumerate, select, mount if unmounted, label if unlabeled. Already-correct
// state is left alone, so a second run against a mounted, labeled partition
// makes no mutating calls.
func (r *Repairer) Repair(diskPath, designator, label string) Outcome {
	parts, err := r.Source.Partitions(diskPath)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("enumerate partitions of %s: %w", diskPath, err)}
	}
	if len(parts) == 0 {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("no partitions visible on %s (was the card re-inserted?)", diskPath)}
	}

	sel := r.Select
	if sel == nil {
		sel = LastByNumber
	}
	data, ok := sel(parts)
	if !ok {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("no data partition identified on %s among %d partitions", diskPath, len(parts))}
	}

	mountPath := data.MountPoint
	if mountPath == "" {
		mountPath, err = r.Mounter.Mount(data, designator)
		if err != nil {
			return Outcome{Status: StatusFailed, Err: fmt.Errorf("mount %s: %w", data.DevicePath, err)}
		}
	}

	if data.Label == "" && label != "" {
		if err := r.Mounter.SetLabel(data, label); err != nil {
			// The mount path is still good; report degraded and move on.
			return Outcome{
				Status:    StatusDegraded,
				MountPath: mountPath,
				Err:       fmt.Errorf("label %s as %q: %w", data.DevicePath, label, err),
			}
		}
	}

	return Outcome{Status: StatusOK, MountPath: mountPath}
}
