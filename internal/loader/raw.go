package loader

import (
	"github.com/MatthewObi/baretk/internal/image"
)

// rawBits maps a machine hint to its natural word size.
var rawBits = map[string]int{
	"x86":   32,
	"arm":   32,
	"amd64": 64,
	"arm64": 64,
	"riscv": 64,
}

// loadRaw wraps an unrecognized file as a flat image: one readable and
// executable segment covering the whole file, mapped at address zero.
func loadRaw(path string, raw []byte, machineHint string) *image.Image {
	machine := machineHint
	if machine == "" {
		machine = "unknown"
	}
	bits, ok := rawBits[machine]
	if !ok {
		bits = 64
	}

	im := image.New(path, image.LittleEndian, machine, bits, raw)
	// An empty file maps to an image with no segments.
	if len(raw) > 0 {
		im.Segments = []image.Segment{
			{Perm: image.PermRead | image.PermExec, Offset: 0, Vaddr: 0, Size: uint64(len(raw))},
		}
		im.AddSection(image.Section{Name: "file", Addr: 0, Bytes: raw})
	}
	return im
}
