package loader

import (
	"bytes"
	"debug/pe"
	"fmt"

	"github.com/MatthewObi/baretk/internal/image"
)

var peMachines = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_I386:  "x86",
	pe.IMAGE_FILE_MACHINE_AMD64: "amd64",
	pe.IMAGE_FILE_MACHINE_ARM:   "arm",
	pe.IMAGE_FILE_MACHINE_ARM64: "arm64",
}

const (
	peSecExec  = 0x20000000
	peSecRead  = 0x40000000
	peSecWrite = 0x80000000
)

func loadPE(path string, raw []byte) (*image.Image, error) {
	f, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: pe: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	machine, ok := peMachines[f.Machine]
	if !ok {
		machine = "unknown"
	}

	var base, entry uint64
	bits := 32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		base = uint64(oh.ImageBase)
		entry = base + uint64(oh.AddressOfEntryPoint)
	case *pe.OptionalHeader64:
		base = oh.ImageBase
		entry = base + uint64(oh.AddressOfEntryPoint)
		bits = 64
	}

	im := image.New(path, image.LittleEndian, machine, bits, raw)
	im.Entry = entry

	for _, s := range f.Sections {
		// Sections without raw data (.bss) have nothing to map.
		if s.Size == 0 {
			continue
		}
		im.Segments = append(im.Segments, image.Segment{
			Perm:   permFromSection(s.Characteristics),
			Offset: uint64(s.Offset),
			Vaddr:  base + uint64(s.VirtualAddress),
			Size:   uint64(s.Size),
		})
		data, err := s.Data()
		if err != nil {
			continue
		}
		im.AddSection(image.Section{Name: s.Name, Addr: base + uint64(s.VirtualAddress), Bytes: data})
	}

	im.Symbols = peSymbols(f, base)
	return im, nil
}

// peSymbols resolves COFF symbols to virtual addresses. Symbol values are
// offsets into their section.
func peSymbols(f *pe.File, base uint64) []image.Symbol {
	var out []image.Symbol
	for _, s := range f.Symbols {
		if s.Name == "" || s.SectionNumber <= 0 || int(s.SectionNumber) > len(f.Sections) {
			continue
		}
		sect := f.Sections[s.SectionNumber-1]
		out = append(out, image.Symbol{
			Name:      s.Name,
			Demangled: s.Name,
			Addr:      base + uint64(sect.VirtualAddress) + uint64(s.Value),
			Func:      sect.Characteristics&peSecExec != 0,
		})
	}
	return out
}

func permFromSection(ch uint32) image.Perm {
	var p image.Perm
	if ch&peSecRead != 0 {
		p |= image.PermRead
	}
	if ch&peSecWrite != 0 {
		p |= image.PermWrite
	}
	if ch&peSecExec != 0 {
		p |= image.PermExec
	}
	return p
}
