package image

import (
	"fmt"

	diskfs "github.com/diskfs/go-diskfs"
)

// Layout summarizes the partition table found inside a raw image file.
type Layout struct {
	TableType  string
	Partitions int
	SizeBytes  int64
}

// Inspect opens a staged image read-only and reads its partition table. A
// failure here usually means the file is still compressed or is not a disk
// image at all; the caller treats it as advisory, not fatal, since the user
// may know better.
func Inspect(path string) (Layout, error) {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return Layout{}, fmt.Errorf("open image %s: %w", path, err)
	}
	defer d.Close()

	table, err := d.GetPartitionTable()
	if err != nil {
		return Layout{}, fmt.Errorf("read partition table of %s: %w", path, err)
	}
	return Layout{
		TableType:  table.Type(),
		Partitions: len(table.GetPartitions()),
		SizeBytes:  d.Size,
	}, nil
}
