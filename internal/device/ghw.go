package device

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jaypipes/ghw"
)

// GHWEnumerator lists physical disks via the ghw hardware inspection
// library. Virtual block devices (loop, device-mapper, ram, optical) are
// filtered out so the index space only covers real disks.
type GHWEnumerator struct{}

func (GHWEnumerator) Disks() ([]Device, error) {
	block, err := ghw.Block()
	if err != nil {
		return nil, fmt.Errorf("read block device info: %w", err)
	}

	var devices []Device
	for _, d := range block.Disks {
		if isVirtual(d.Name) {
			continue
		}
		devices = append(devices, Device{
			Path:      "/dev/" + d.Name,
			SizeBytes: d.SizeBytes,
			Model:     strings.TrimSpace(d.Model),
			Removable: d.IsRemovable,
		})
	}

	// Stable ordering so the same card gets the same index across the
	// listing and the provisioning run.
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	for i := range devices {
		devices[i].Index = i + 1
	}
	return devices, nil
}

func isVirtual(name string) bool {
	for _, prefix := range []string{"loop", "dm-", "ram", "zram", "sr", "fd", "md"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
