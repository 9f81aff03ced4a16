package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/batoprep/batoprep/internal/device"
)

var disksCmd = &cobra.Command{
	Use:   "disks",
	Short: "List physical disks and their provisioning indices",
	Long: `List the physical disks currently visible to the host. The INDEX
column is the number 'provision --disk' expects. Nothing here touches the
disks; the listing is read-only.`,
	Run: runDisks,
}

func runDisks(cmd *cobra.Command, args []string) {
	disks, err := device.GHWEnumerator{}.Disks()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error enumerating disks: %v\n", err)
		os.Exit(1)
	}
	if len(disks) == 0 {
		fmt.Println("No physical disks found.")
		return
	}

	fmt.Printf("%-6s %-14s %-10s %-10s %s\n", "INDEX", "PATH", "SIZE", "REMOVABLE", "MODEL")
	for _, d := range disks {
		removable := "no"
		if d.Removable {
			removable = "yes"
		}
		model := d.Model
		if model == "" {
			model = "-"
		}
		fmt.Printf("%-6d %-14s %-10s %-10s %s\n", d.Index, d.Path, humanize.Bytes(d.SizeBytes), removable, model)
	}
}
