package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/ianlancetaylor/demangle"

	"github.com/MatthewObi/baretk/internal/image"
)

var elfMachines = map[elf.Machine]string{
	elf.EM_386:     "x86",
	elf.EM_X86_64:  "amd64",
	elf.EM_ARM:     "arm",
	elf.EM_AARCH64: "arm64",
	elf.EM_RISCV:   "riscv",
}

func loadELF(path string, raw []byte) (*image.Image, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: elf: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	order := image.LittleEndian
	if f.Data == elf.ELFDATA2MSB {
		order = image.BigEndian
	}
	bits := 64
	if f.Class == elf.ELFCLASS32 {
		bits = 32
	}
	machine, ok := elfMachines[f.Machine]
	if !ok {
		machine = "unknown"
	}

	im := image.New(path, order, machine, bits, raw)
	im.Entry = f.Entry

	for _, p := range f.Progs {
		// A PT_LOAD with no file bytes (pure BSS) has nothing to map.
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		im.Segments = append(im.Segments, image.Segment{
			Perm:   permFromProg(p.Flags),
			Offset: p.Off,
			Vaddr:  p.Vaddr,
			Paddr:  p.Paddr,
			Size:   p.Filesz,
		})
	}

	for _, s := range f.Sections {
		if s.Name == "" || s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		data, err := s.Data()
		if err != nil {
			continue
		}
		im.AddSection(image.Section{Name: s.Name, Addr: s.Addr, Bytes: data})
	}

	im.Symbols = elfSymbols(f)
	return im, nil
}

// elfSymbols collects static and dynamic symbols. Stripped binaries simply
// yield fewer symbols, never an error.
func elfSymbols(f *elf.File) []image.Symbol {
	var out []image.Symbol
	seen := make(map[string]bool)

	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Name == "" || seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			dem := demangle.Filter(s.Name)
			if dem == "" {
				dem = s.Name
			}
			out = append(out, image.Symbol{
				Name:      s.Name,
				Demangled: dem,
				Addr:      s.Value,
				Size:      s.Size,
				Func:      elf.ST_TYPE(s.Info) == elf.STT_FUNC,
			})
		}
	}

	if syms, err := f.Symbols(); err == nil || errors.Is(err, elf.ErrNoSymbols) {
		add(syms)
	}
	if syms, err := f.DynamicSymbols(); err == nil || errors.Is(err, elf.ErrNoSymbols) {
		add(syms)
	}
	return out
}

func permFromProg(flags elf.ProgFlag) image.Perm {
	var p image.Perm
	if flags&elf.PF_R != 0 {
		p |= image.PermRead
	}
	if flags&elf.PF_W != 0 {
		p |= image.PermWrite
	}
	if flags&elf.PF_X != 0 {
		p |= image.PermExec
	}
	return p
}
