package provision

import (
	"bytes"
	"strings"
	"testing"

	"github.com/batoprep/batoprep/internal/device"
)

func testTarget() device.Device {
	return device.Device{Index: 2, Path: "/dev/sdb", SizeBytes: 16 << 30, Model: "SD Card Reader"}
}

func TestConfirmFlashAccept(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalPrompter{In: strings.NewReader("y\n"), Out: &out}

	ok, err := p.ConfirmFlash(testTarget(), "/work/Batocera/batocera.img")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("y should accept")
	}
	if !strings.Contains(out.String(), "disk 2") || !strings.Contains(out.String(), "/dev/sdb") {
		t.Errorf("prompt does not name the target: %q", out.String())
	}
	if !strings.Contains(out.String(), "LOST") {
		t.Error("prompt does not warn about data loss")
	}
}

func TestConfirmFlashDeclineVariants(t *testing.T) {
	for _, answer := range []string{"n\n", "\n", "no\n", "whatever\n"} {
		p := &TerminalPrompter{In: strings.NewReader(answer), Out: &bytes.Buffer{}}
		ok, err := p.ConfirmFlash(testTarget(), "img")
		if err != nil {
			t.Fatalf("answer %q: %v", answer, err)
		}
		if ok {
			t.Errorf("answer %q accepted, want decline", answer)
		}
	}
}

func TestConfirmFlashAssumeYes(t *testing.T) {
	var out bytes.Buffer
	// No input available at all; must not read.
	p := &TerminalPrompter{In: strings.NewReader(""), Out: &out, AssumeYes: true}

	ok, err := p.ConfirmFlash(testTarget(), "img")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestWaitReinsertReadsOneLine(t *testing.T) {
	p := &TerminalPrompter{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}
	if err := p.WaitReinsert(); err != nil {
		t.Fatal(err)
	}
}

func TestConfirmThenBarrierShareReader(t *testing.T) {
	// Both prompts read from the same stream; buffering must not swallow
	// the second answer.
	p := &TerminalPrompter{In: strings.NewReader("y\n\n"), Out: &bytes.Buffer{}}

	ok, err := p.ConfirmFlash(testTarget(), "img")
	if err != nil || !ok {
		t.Fatalf("confirm: ok=%v err=%v", ok, err)
	}
	if err := p.WaitReinsert(); err != nil {
		t.Fatalf("barrier: %v", err)
	}
}
