package provision

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/batoprep/batoprep/internal/acquire"
	"github.com/batoprep/batoprep/internal/device"
	"github.com/batoprep/batoprep/internal/filesync"
	"github.com/batoprep/batoprep/internal/flash"
	"github.com/batoprep/batoprep/internal/image"
	"github.com/batoprep/batoprep/internal/partition"
	"github.com/batoprep/batoprep/internal/workspace"
)

// Stage names used for reporting and the run-history event log.
const (
	StageResolve   = "resolve"
	StageWorkspace = "workspace"
	StageAcquire   = "acquire"
	StageExtract   = "extract"
	StageFlash     = "flash"
	StageBarrier   = "barrier"
	StageRepair    = "repair"
	StageSync      = "sync"
)

// Recorder receives stage events for the run-history log. Implementations
// must be best-effort; the workflow never checks for errors here.
type Recorder interface {
	Event(stage, status, detail string)
}

type nopRecorder struct{}

func (nopRecorder) Event(stage, status, detail string) {}

// Deps are the collaborators of one provisioning run. Every destructive or
// host-dependent operation sits behind an interface so the workflow can run
// against fakes.
type Deps struct {
	Enumerator device.Enumerator
	Fs         afero.Fs
	Downloader acquire.Downloader
	Extractor  acquire.Extractor
	Flasher    flash.Flasher
	Partitions partition.Source
	Selector   partition.Selector // nil means partition.LastByNumber
	Mounter    partition.Mounter
	Prompter   Prompter
	Recorder   Recorder                           // nil means no recording
	Inspect    func(string) (image.Layout, error) // nil disables image inspection
	Out        io.Writer                          // nil silences status output
}

// Params are the per-invocation inputs of a run.
type Params struct {
	DiskIndex int
	// Exactly one of ImagePath (local archive) and ImageURL must be set.
	ImagePath string
	ImageURL  string

	WorkRoot  string
	ClearWork bool

	BIOSPath        string
	ROMPath         string
	MountDesignator string
	VolumeLabel     string
	SecondCard      string
}

// Validate rejects bad input before anything is enumerated or touched.
func (p Params) Validate() error {
	if err := device.ValidateIndex(p.DiskIndex); err != nil {
		return err
	}
	if p.ImagePath != "" && p.ImageURL != "" {
		return fmt.Errorf("give either a local image or an image URL, not both")
	}
	if p.ImagePath == "" && p.ImageURL == "" {
		return fmt.Errorf("an image source is required: local path or URL")
	}
	return nil
}

// Result reports what a run actually did.
type Result struct {
	Device    device.Device
	ImagePath string
	Flashed   bool
	Repair    partition.Outcome
	Copies    int
}

// Run executes the provisioning workflow top to bottom. Stages run strictly
// in order and data flows forward only; nothing loops back. Fatal errors
// abort the remaining stages and name the stage that failed. Partition
// repair is the one exception: its outcome is reported and the run
// continues, because a user may have repaired the card by hand and the sync
// stage can still do useful work.
func Run(deps Deps, p Params) (Result, error) {
	var res Result

	out := deps.Out
	if out == nil {
		out = io.Discard
	}
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	if err := p.Validate(); err != nil {
		return res, err
	}

	// Stage 1: resolve the target device. Read-only; must succeed before
	// anything destructive is even proposed.
	resolver := device.NewResolver(deps.Enumerator)
	target, err := resolver.Resolve(p.DiskIndex)
	if err != nil {
		rec.Event(StageResolve, "failed", err.Error())
		return res, fmt.Errorf("resolve device: %w", err)
	}
	res.Device = target
	rec.Event(StageResolve, "done", target.Path)
	fmt.Fprintf(out, "Target: disk %d at %s (%s)\n", target.Index, target.Path, humanize.Bytes(target.SizeBytes))
	if !target.Removable {
		fmt.Fprintf(out, "Warning: %s does not report as removable media.\n", target.Path)
	}

	// Stage 2: prepare the scratch workspace.
	ws, err := workspace.Prepare(deps.Fs, p.WorkRoot, p.ClearWork)
	if err != nil {
		rec.Event(StageWorkspace, "failed", err.Error())
		return res, fmt.Errorf("prepare workspace: %w", err)
	}
	rec.Event(StageWorkspace, "done", ws.Root)

	// Stage 3: obtain the image archive.
	acq := &acquire.Acquirer{Downloader: deps.Downloader}
	archive, err := acq.Acquire(p.ImagePath, p.ImageURL, ws)
	if err != nil {
		rec.Event(StageAcquire, "failed", err.Error())
		return res, fmt.Errorf("acquire image: %w", err)
	}
	rec.Event(StageAcquire, "done", archive)

	// Stage 4: extract the raw image into staging. A corrupt archive is
	// fatal; a truncated image must never reach the device.
	imgPath, err := deps.Extractor.Extract(archive, ws.Staging)
	if err != nil {
		rec.Event(StageExtract, "failed", err.Error())
		return res, fmt.Errorf("extract image: %w", err)
	}
	res.ImagePath = imgPath
	rec.Event(StageExtract, "done", imgPath)

	// Advisory sanity check on the staged image before offering to flash.
	if deps.Inspect != nil {
		if layout, err := deps.Inspect(imgPath); err != nil {
			fmt.Fprintf(out, "Warning: no partition table readable in %s: %v\n", imgPath, err)
			fmt.Fprintln(out, "The file may not be a raw disk image; a flashed card is unlikely to boot.")
		} else {
			fmt.Fprintf(out, "Image: %s partition table, %d partitions, %s\n",
				layout.TableType, layout.Partitions, humanize.Bytes(uint64(layout.SizeBytes)))
		}
	}

	// Stage 5: the destructive write, behind the confirmation gate. A
	// decline skips the write but the run continues, so an already-flashed
	// card can be repaired and populated on a rerun.
	ok, err := deps.Prompter.ConfirmFlash(target, imgPath)
	if err != nil {
		return res, fmt.Errorf("flash confirmation: %w", err)
	}
	if !ok {
		rec.Event(StageFlash, "skipped", "declined by user")
		fmt.Fprintln(out, "Flash skipped.")
		fmt.Fprintf(out, "Warning: later stages will act on whatever currently occupies %s; make sure it is the intended card.\n", target.Path)
	} else {
		if err := deps.Flasher.Flash(imgPath, target.Path); err != nil {
			rec.Event(StageFlash, "failed", err.Error())
			return res, fmt.Errorf("flash stage: %w (the device may be partially written; do not boot from it)", err)
		}
		res.Flashed = true
		rec.Event(StageFlash, "done", target.Path)
		fmt.Fprintln(out, "Flash complete.")
	}

	// Stage 6: the re-enumeration barrier. Partition state read before this
	// point is invalid; the OS only refreshes it on a physical re-seat.
	if err := deps.Prompter.WaitReinsert(); err != nil {
		return res, fmt.Errorf("re-enumeration barrier: %w", err)
	}
	rec.Event(StageBarrier, "done", "")

	// Stage 7: partition repair. Non-fatal by design: every failure here is
	// reported and the run continues with whatever mount path was derived.
	repairer := &partition.Repairer{
		Source:  deps.Partitions,
		Select:  deps.Selector,
		Mounter: deps.Mounter,
	}
	res.Repair = repairer.Repair(target.Path, p.MountDesignator, p.VolumeLabel)
	switch res.Repair.Status {
	case partition.StatusOK:
		rec.Event(StageRepair, "done", res.Repair.MountPath)
		fmt.Fprintf(out, "Data partition ready at %s\n", res.Repair.MountPath)
	case partition.StatusDegraded:
		rec.Event(StageRepair, "degraded", res.Repair.Err.Error())
		fmt.Fprintf(out, "Warning: partition repair incomplete: %v (continuing)\n", res.Repair.Err)
	case partition.StatusFailed:
		rec.Event(StageRepair, "failed", res.Repair.Err.Error())
		fmt.Fprintf(out, "Warning: partition repair failed: %v (continuing)\n", res.Repair.Err)
	}

	// Stage 8: file sync. Consults the repair outcome instead of trying
	// blindly: without a mount path there is nowhere to copy to.
	secondCard := p.SecondCard
	if secondCard != "" {
		if ok, _ := afero.DirExists(deps.Fs, secondCard); !ok {
			fmt.Fprintf(out, "Warning: second card path %s does not exist; skipping mirror copy.\n", secondCard)
			secondCard = ""
		}
	}
	wantsSync := p.BIOSPath != "" || p.ROMPath != "" || secondCard != ""
	if wantsSync && res.Repair.MountPath == "" {
		rec.Event(StageSync, "skipped", "no mount path derived")
		fmt.Fprintln(out, "Skipping file sync: no mount path was derived for the data partition.")
		return res, nil
	}

	ops, err := filesync.Sync(deps.Fs, filesync.Request{
		MountPath:  res.Repair.MountPath,
		BIOSPath:   p.BIOSPath,
		ROMPath:    p.ROMPath,
		SecondCard: secondCard,
	})
	res.Copies = ops
	if err != nil {
		rec.Event(StageSync, "failed", err.Error())
		return res, fmt.Errorf("file sync: %w", err)
	}
	rec.Event(StageSync, "done", fmt.Sprintf("%d copies", ops))
	if ops > 0 {
		fmt.Fprintf(out, "Copied %d file tree(s).\n", ops)
	}

	return res, nil
}
