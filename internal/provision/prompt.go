package provision

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/batoprep/batoprep/internal/device"
)

// Prompter handles the two human-in-the-loop suspension points of the
// workflow. Both block indefinitely; the only cancellation is killing the
// process.
type Prompter interface {
	// ConfirmFlash asks whether the destructive write may proceed. A false
	// answer is a deliberate skip, not an error.
	ConfirmFlash(target device.Device, imagePath string) (bool, error)
	// WaitReinsert blocks until the user confirms the card has been
	// physically ejected and re-inserted. There is no software substitute:
	// the OS only refreshes its view of the partition table on re-seat.
	WaitReinsert() error
}

// TerminalPrompter prompts on a terminal. AssumeYes bypasses the flash
// confirmation but never the re-insertion wait, which acknowledges a
// physical action.
type TerminalPrompter struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool

	r *bufio.Reader
}

func (p *TerminalPrompter) readLine() (string, error) {
	if p.r == nil {
		p.r = bufio.NewReader(p.In)
	}
	line, err := p.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *TerminalPrompter) ConfirmFlash(target device.Device, imagePath string) (bool, error) {
	if p.AssumeYes {
		fmt.Fprintf(p.Out, "Flashing disk %d (%s) without confirmation (--yes).\n", target.Index, target.Path)
		return true, nil
	}
	if f, ok := p.In.(*os.File); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return false, fmt.Errorf("stdin is not a terminal; rerun with --yes to confirm non-interactively")
		}
	}

	desc := target.Model
	if desc == "" {
		desc = "unknown model"
	}
	fmt.Fprintf(p.Out, "\nAbout to write %s\n", imagePath)
	fmt.Fprintf(p.Out, "  to disk %d: %s (%s, %s)\n", target.Index, target.Path, desc, humanize.Bytes(target.SizeBytes))
	fmt.Fprintln(p.Out, "ALL DATA ON THIS DEVICE WILL BE LOST.")
	fmt.Fprint(p.Out, "Proceed? [y/N]: ")

	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *TerminalPrompter) WaitReinsert() error {
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, "Eject the card now, then insert it again so the new partition table is visible.")
	fmt.Fprint(p.Out, "Press Enter once the card has been re-inserted... ")
	_, err := p.readLine()
	return err
}
