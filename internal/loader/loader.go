// Package loader turns on-disk binaries into images the rest of the toolkit
// can analyze. The container format is sniffed from the leading magic bytes:
// ELF and PE get full segment/section/symbol extraction, anything else is
// treated as a raw flat image.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/MatthewObi/baretk/internal/image"
)

// ErrUnsupportedFormat reports a file that claims a known container format
// but cannot be parsed as one.
var ErrUnsupportedFormat = errors.New("unsupported container format")

var (
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
	peMagic  = []byte{'M', 'Z'}
)

// Load reads path and parses it into an image. machineHint is only consulted
// for raw images, whose architecture cannot be sniffed.
func Load(path, machineHint string) (*image.Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return LoadBytes(path, raw, machineHint)
}

// LoadBytes parses an in-memory binary. path is recorded on the image for
// reporting only.
func LoadBytes(path string, raw []byte, machineHint string) (*image.Image, error) {
	switch {
	case bytes.HasPrefix(raw, elfMagic):
		return loadELF(path, raw)
	case bytes.HasPrefix(raw, peMagic):
		return loadPE(path, raw)
	}
	return loadRaw(path, raw, machineHint), nil
}
