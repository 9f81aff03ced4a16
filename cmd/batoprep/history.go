package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/batoprep/batoprep/internal/config"
	"github.com/batoprep/batoprep/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent provisioning runs",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	historyCmd.Flags().String("events", "", "show the stage events of the given run id")
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("events")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := history.Open(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if runID != "" {
		events, err := db.Events(runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading events: %v\n", err)
			os.Exit(1)
		}
		for _, ev := range events {
			detail := ev.Detail
			if detail != "" {
				detail = "  " + detail
			}
			fmt.Printf("%-10s %-9s %s%s\n", ev.Stage, ev.Status, ev.Timestamp.Format("15:04:05"), detail)
		}
		return
	}

	records, err := db.RecentRuns(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	fmt.Printf("%-36s %-6s %-12s %-10s %-16s %s\n", "ID", "DISK", "DEVICE", "STATUS", "STARTED", "IMAGE")
	for _, rec := range records {
		dev := rec.DevicePath
		if dev == "" {
			dev = "-"
		}
		fmt.Printf("%-36s %-6d %-12s %-10s %-16s %s\n",
			rec.ID, rec.DiskIndex, dev, rec.Status, humanize.Time(rec.StartedAt), rec.ImageSource)
	}
}
