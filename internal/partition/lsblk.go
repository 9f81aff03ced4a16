package partition

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LsblkSource reads partition state from lsblk. Every call re-execs lsblk
// so the view is always current; the post-flash partition table is only
// visible after the card has been re-seated.
type LsblkSource struct{}

// lsblkOutput represents the JSON output from lsblk.
type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

// lsblkDevice represents a single device in lsblk output. Numeric fields
// use flexNumber because util-linux emits them as quoted strings in older
// releases and bare numbers in newer ones.
type lsblkDevice struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Type       string        `json:"type"`
	Size       flexNumber    `json:"size"`
	PartN      flexNumber    `json:"partn"`
	PKName     string        `json:"pkname"`
	Label      string        `json:"label"`
	FSType     string        `json:"fstype"`
	MountPoint string        `json:"mountpoint"`
	Children   []lsblkDevice `json:"children,omitempty"`
}

// flexNumber tolerates both encodings and decodes junk or null to zero,
// letting callers fall back instead of failing the whole enumeration.
type flexNumber int64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

func (s LsblkSource) Partitions(diskPath string) ([]Info, error) {
	cmd := exec.Command("lsblk", "-J", "-b", "-o",
		"NAME,PATH,TYPE,SIZE,PARTN,PKNAME,LABEL,FSTYPE,MOUNTPOINT", diskPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("lsblk %s: %w", diskPath, err)
	}
	return parseLsblk(out, diskPath)
}

func parseLsblk(out []byte, diskPath string) ([]Info, error) {
	var parsed lsblkOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}

	var parts []Info
	for _, dev := range parsed.Blockdevices {
		collectPartitions(dev, diskPath, &parts)
	}
	return parts, nil
}

func collectPartitions(dev lsblkDevice, diskPath string, parts *[]Info) {
	if dev.Type == "part" {
		info := Info{
			DiskPath:   diskPath,
			DevicePath: dev.Path,
			FSType:     dev.FSType,
			Label:      dev.Label,
			MountPoint: dev.MountPoint,
		}
		info.Number = int(dev.PartN)
		if info.Number == 0 {
			// Some lsblk builds omit PARTN; fall back to the trailing
			// digits of the node name (sdb2 -> 2, mmcblk0p2 -> 2).
			info.Number = trailingNumber(dev.Name)
		}
		if dev.Size > 0 {
			info.SizeBytes = uint64(dev.Size)
		}
		*parts = append(*parts, info)
	}
	for _, child := range dev.Children {
		collectPartitions(child, diskPath, parts)
	}
}

func trailingNumber(name string) int {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0
	}
	return n
}
