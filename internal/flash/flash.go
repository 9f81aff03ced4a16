package flash

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFlash means the raw write to the device failed. There is no retry: a
// partially written card is in an undefined state and the user must be told.
var ErrFlash = errors.New("flash failed")

// Flasher writes a raw image onto a block device, destroying its contents.
type Flasher interface {
	Flash(imagePath, devicePath string) error
}

const defaultBufferSize = 4 * 1024 * 1024

// RawFlasher streams the image onto the device node and fsyncs before
// close, the same write path dd takes with a large block size.
type RawFlasher struct {
	BufferSize int
}

func (f *RawFlasher) Flash(imagePath, devicePath string) error {
	src, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("%w: open image: %v", ErrFlash, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(devicePath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: open device %s: %v", ErrFlash, devicePath, err)
	}

	size := f.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	buf := make([]byte, size)
	_, err = io.CopyBuffer(dst, src, buf)
	if err == nil {
		// Sync before close so a yanked card after "done" is actually done.
		err = dst.Sync()
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: writing %s to %s: %v", ErrFlash, imagePath, devicePath, err)
	}
	return nil
}
