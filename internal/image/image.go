// Package image defines the in-memory representation of a loaded binary:
// segments, sections, symbols, endianness and machine identifier. Images are
// produced by the loader package and treated as immutable by everything
// downstream.
package image

import (
	"sort"
)

// Endianness is the byte order of the loaded binary. The numeric values
// match the original baretk C ABI.
type Endianness uint8

const (
	LittleEndian Endianness = 0x1
	BigEndian    Endianness = 0x2
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// Perm is a combinable segment permission flag set.
type Perm uint8

const (
	PermExec  Perm = 0x1
	PermWrite Perm = 0x2
	PermRead  Perm = 0x4
)

func (p Perm) String() string {
	b := [3]byte{'-', '-', '-'}
	if p&PermRead != 0 {
		b[0] = 'r'
	}
	if p&PermWrite != 0 {
		b[1] = 'w'
	}
	if p&PermExec != 0 {
		b[2] = 'x'
	}
	return string(b[:])
}

// Segment is a contiguous region of the binary's address space.
// Size is always greater than zero for segments emitted by the loader.
type Segment struct {
	Perm   Perm
	Offset uint64 // file offset of the segment content
	Vaddr  uint64
	Paddr  uint64
	Size   uint64
}

// Section is a named, addressed byte range within the binary.
type Section struct {
	Name  string
	Addr  uint64
	Bytes []byte
}

// Symbol is a named address, typically from an ELF/PE symbol table.
// Demangled holds the human-readable form of C++ names and equals Name
// for everything else.
type Symbol struct {
	Name      string
	Demangled string
	Addr      uint64
	Size      uint64
	Func      bool
}

// Image is the normalized view of a loaded executable. It is immutable
// after construction; Clone produces a fully independent copy.
type Image struct {
	Path      string
	ByteOrder Endianness
	Machine   string // "x86", "amd64", "arm", "arm64", "riscv" or "unknown"
	Bits      int    // 32 or 64
	Entry     uint64
	Segments  []Segment
	Symbols   []Symbol

	sections map[string]*Section
	raw      []byte // full file content, backs SegmentBytes
}

// New assembles an Image from loader output. Sections with duplicate names
// keep the first occurrence, preserving unique lookup by name.
func New(path string, order Endianness, machine string, bits int, raw []byte) *Image {
	return &Image{
		Path:      path,
		ByteOrder: order,
		Machine:   machine,
		Bits:      bits,
		sections:  make(map[string]*Section),
		raw:       raw,
	}
}

// AddSection registers a section under its name key. The first section
// registered for a name wins.
func (im *Image) AddSection(s Section) {
	if _, ok := im.sections[s.Name]; ok {
		return
	}
	sec := s
	im.sections[s.Name] = &sec
}

// Section returns the section registered under name, or false if absent.
func (im *Image) Section(name string) (*Section, bool) {
	s, ok := im.sections[name]
	return s, ok
}

// HasSection reports whether a section with the given name exists.
func (im *Image) HasSection(name string) bool {
	_, ok := im.sections[name]
	return ok
}

// SectionNames returns the registered section names in sorted order.
func (im *Image) SectionNames() []string {
	names := make([]string, 0, len(im.sections))
	for name := range im.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SegmentBytes returns the byte window backing segment i, or false if the
// segment's file range lies outside the raw image.
func (im *Image) SegmentBytes(i int) ([]byte, bool) {
	if i < 0 || i >= len(im.Segments) {
		return nil, false
	}
	seg := im.Segments[i]
	end := seg.Offset + seg.Size
	if seg.Offset > uint64(len(im.raw)) || end > uint64(len(im.raw)) {
		return nil, false
	}
	return im.raw[seg.Offset:end], true
}

// Raw returns the full file content the image was built from.
func (im *Image) Raw() []byte {
	return im.raw
}

// VA2Off translates a virtual address into a file offset using the segment
// table. It returns false if the address is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, seg := range im.Segments {
		if va >= seg.Vaddr && va < seg.Vaddr+seg.Size {
			return seg.Offset + (va - seg.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns the bytes mapped at the virtual address range [va, va+size).
func (im *Image) SliceVA(va, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	end := off + size
	if end > uint64(len(im.raw)) {
		return nil, false
	}
	return im.raw[off:end], true
}

// SymbolAt returns the symbol whose address equals va, if any.
func (im *Image) SymbolAt(va uint64) (Symbol, bool) {
	for _, sym := range im.Symbols {
		if sym.Addr == va {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Clone returns a deep copy sharing no storage with the receiver. The
// original and the clone can be consumed or released independently.
func (im *Image) Clone() *Image {
	out := &Image{
		Path:      im.Path,
		ByteOrder: im.ByteOrder,
		Machine:   im.Machine,
		Bits:      im.Bits,
		Entry:     im.Entry,
		Segments:  append([]Segment(nil), im.Segments...),
		Symbols:   append([]Symbol(nil), im.Symbols...),
		sections:  make(map[string]*Section, len(im.sections)),
		raw:       append([]byte(nil), im.raw...),
	}
	for name, sec := range im.sections {
		cp := *sec
		cp.Bytes = append([]byte(nil), sec.Bytes...)
		out.sections[name] = &cp
	}
	return out
}

// Equal reports structural equality: same endianness, machine, segments and
// sections. Symbol tables and raw bytes are compared by content as well.
func (im *Image) Equal(other *Image) bool {
	if im == nil || other == nil {
		return im == other
	}
	if im.ByteOrder != other.ByteOrder || im.Machine != other.Machine ||
		im.Bits != other.Bits || im.Entry != other.Entry ||
		len(im.Segments) != len(other.Segments) || len(im.sections) != len(other.sections) {
		return false
	}
	for i, seg := range im.Segments {
		if seg != other.Segments[i] {
			return false
		}
	}
	for name, sec := range im.sections {
		o, ok := other.sections[name]
		if !ok || o.Addr != sec.Addr || string(o.Bytes) != string(sec.Bytes) {
			return false
		}
	}
	return string(im.raw) == string(other.raw)
}
