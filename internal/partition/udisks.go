package partition

import (
	"fmt"
	"os/exec"
	"strings"
)

// UdisksMounter assigns mount points through udisksctl and labels through
// the filesystem-specific label tools. udisks picks the mount path itself,
// so the drive-letter designator is ignored here; it only applies on hosts
// that assign letters.
type UdisksMounter struct{}

func (UdisksMounter) Mount(p Info, designator string) (string, error) {
	out, err := exec.Command("udisksctl", "mount", "-b", p.DevicePath).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("udisksctl mount %s: %v: %s", p.DevicePath, err, strings.TrimSpace(string(out)))
	}
	return parseMountOutput(string(out))
}

// parseMountOutput extracts the mount path from udisksctl's
// "Mounted /dev/sdb2 at /run/media/user/SHARE" line.
func parseMountOutput(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, " at ")
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(line[idx+len(" at "):])
		path = strings.TrimSuffix(path, ".")
		if path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("no mount path in udisksctl output: %q", strings.TrimSpace(out))
}

func (UdisksMounter) SetLabel(p Info, label string) error {
	var cmd *exec.Cmd
	switch p.FSType {
	case "vfat":
		cmd = exec.Command("fatlabel", p.DevicePath, label)
	case "exfat":
		cmd = exec.Command("exfatlabel", p.DevicePath, label)
	case "ext2", "ext3", "ext4":
		cmd = exec.Command("e2label", p.DevicePath, label)
	default:
		return fmt.Errorf("don't know how to label %s filesystem on %s", p.FSType, p.DevicePath)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %v: %s", cmd.Args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
