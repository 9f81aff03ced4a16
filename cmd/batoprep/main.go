package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/batoprep/batoprep/internal/acquire"
	"github.com/batoprep/batoprep/internal/config"
	"github.com/batoprep/batoprep/internal/device"
	"github.com/batoprep/batoprep/internal/flash"
	"github.com/batoprep/batoprep/internal/history"
	"github.com/batoprep/batoprep/internal/image"
	"github.com/batoprep/batoprep/internal/partition"
	"github.com/batoprep/batoprep/internal/provision"
	"github.com/batoprep/batoprep/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "batoprep",
	Short: "Batocera SD card provisioning tool",
	Long: `batoprep writes a Batocera image onto a removable card, repairs the
data-partition metadata that a raw write leaves behind (mount point and
volume label), and copies personal BIOS and ROM trees onto the repaired
share partition.`,
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Flash a card and populate its data partition",
	Long: `Run the full provisioning workflow against one card:

  1. resolve the target disk by index
  2. prepare the scratch workspace
  3. obtain the image (local file or download)
  4. extract it into the staging directory
  5. write it to the device (after confirmation)
  6. wait for the card to be ejected and re-inserted
  7. mount and label the data partition
  8. copy BIOS/ROM trees onto the share

The flash step destroys everything on the target disk. Check the index
with 'batoprep disks' first.`,
	Run: runProvision,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the batoprep version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/batoprep/config.yaml)")

	f := provisionCmd.Flags()
	f.IntP("disk", "d", 0, "target disk index as listed by 'batoprep disks' (required)")
	f.StringP("image", "i", "", "local image archive (mutually exclusive with --url)")
	f.StringP("url", "u", "", "image archive URL (mutually exclusive with --image)")
	f.String("workdir", "", "scratch directory (default: <tmp>/batoprep)")
	f.Bool("keep-workdir", false, "do not clear the scratch directory before use")
	f.String("bios", "", "personal BIOS tree to copy onto the card")
	f.String("roms", "", "personal ROM tree to copy onto the card")
	f.String("designator", "", "mount designator for the data partition (drive-letter hosts only)")
	f.String("label", "", "volume label assigned when the data partition has none")
	f.String("second-card", "", "already-mounted volume to mirror the card's bios/roms trees onto")
	f.BoolP("yes", "y", false, "skip the flash confirmation prompt")
	provisionCmd.MarkFlagRequired("disk")

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(disksCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func runProvision(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	flagStr := func(name, fallback string) string {
		v, _ := cmd.Flags().GetString(name)
		if v != "" {
			return v
		}
		return fallback
	}

	diskIndex, _ := cmd.Flags().GetInt("disk")
	imagePath, _ := cmd.Flags().GetString("image")
	imageURL, _ := cmd.Flags().GetString("url")
	keepWork, _ := cmd.Flags().GetBool("keep-workdir")
	assumeYes, _ := cmd.Flags().GetBool("yes")

	// The configured default URL only kicks in when no source was given on
	// the command line at all.
	if imagePath == "" && imageURL == "" {
		imageURL = cfg.ImageURL
	}

	params := provision.Params{
		DiskIndex:       diskIndex,
		ImagePath:       imagePath,
		ImageURL:        imageURL,
		WorkRoot:        flagStr("workdir", cfg.WorkDir),
		ClearWork:       !keepWork,
		BIOSPath:        flagStr("bios", cfg.BIOSDir),
		ROMPath:         flagStr("roms", cfg.ROMDir),
		MountDesignator: flagStr("designator", cfg.MountDesignator),
		VolumeLabel:     flagStr("label", cfg.VolumeLabel),
		SecondCard:      flagStr("second-card", ""),
	}

	deps := provision.Deps{
		Enumerator: device.GHWEnumerator{},
		Fs:         afero.NewOsFs(),
		Downloader: &acquire.HTTPDownloader{Out: os.Stdout},
		Extractor:  acquire.SuffixExtractor{},
		Flasher:    &flash.RawFlasher{},
		Partitions: partition.LsblkSource{},
		Mounter:    partition.UdisksMounter{},
		Prompter:   &provision.TerminalPrompter{In: os.Stdin, Out: os.Stdout, AssumeYes: assumeYes},
		Inspect:    image.Inspect,
		Out:        os.Stdout,
	}

	// Run history is best-effort bookkeeping; never block provisioning on it.
	var run *history.Run
	db, dbErr := history.Open(cfg.HistoryPath)
	if dbErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: run history unavailable: %v\n", dbErr)
	} else {
		defer db.Close()
		source := imagePath
		if source == "" {
			source = imageURL
		}
		if run, dbErr = db.BeginRun(diskIndex, "", source); dbErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record run: %v\n", dbErr)
		}
	}
	if run != nil {
		deps.Recorder = run
	}

	res, err := provision.Run(deps, params)
	if err != nil {
		run.Finish(history.StatusFailed)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	run.Finish(history.StatusCompleted)

	fmt.Println()
	if res.Flashed {
		fmt.Printf("Provisioned %s with %s.\n", res.Device.Path, res.ImagePath)
	} else {
		fmt.Printf("Finished without flashing %s.\n", res.Device.Path)
	}
	if res.Repair.MountPath != "" {
		fmt.Printf("Data partition mounted at %s.\n", res.Repair.MountPath)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
