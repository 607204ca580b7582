// Package dump summarizes a loaded binary image: target triple, sections,
// segments and symbol count, in an objdump-like text form or as a
// JSON-serializable value.
package dump

import (
	"fmt"
	"strings"

	"github.com/MatthewObi/baretk/internal/image"
)

// Info is the reportable shape of an image.
type Info struct {
	Path      string    `json:"path"`
	Machine   string    `json:"machine"`
	Bits      int       `json:"bits"`
	ByteOrder string    `json:"byte_order"`
	Entry     uint64    `json:"entry"`
	Sections  []Section `json:"sections"`
	Segments  []Segment `json:"segments"`
	Symbols   int       `json:"symbols"`
}

type Section struct {
	Name string `json:"name"`
	Addr uint64 `json:"addr"`
	Size int    `json:"size"`
}

type Segment struct {
	Perm   string `json:"perm"`
	Offset uint64 `json:"offset"`
	Vaddr  uint64 `json:"vaddr"`
	Size   uint64 `json:"size"`
}

// Collect gathers the report data for an image.
func Collect(im *image.Image) Info {
	info := Info{
		Path:      im.Path,
		Machine:   im.Machine,
		Bits:      im.Bits,
		ByteOrder: im.ByteOrder.String(),
		Entry:     im.Entry,
		Symbols:   len(im.Symbols),
	}
	for _, name := range im.SectionNames() {
		s, ok := im.Section(name)
		if !ok {
			continue
		}
		info.Sections = append(info.Sections, Section{Name: s.Name, Addr: s.Addr, Size: len(s.Bytes)})
	}
	for _, seg := range im.Segments {
		info.Segments = append(info.Segments, Segment{
			Perm:   seg.Perm.String(),
			Offset: seg.Offset,
			Vaddr:  seg.Vaddr,
			Size:   seg.Size,
		})
	}
	return info
}

// Text renders the report the way the dump command prints it.
func (info Info) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d-bit, %s, %s executable\n", info.Bits, info.ByteOrder, info.Machine)
	fmt.Fprintf(&sb, "Entry point: %#x\n", info.Entry)

	fmt.Fprintf(&sb, "Sections:\n  %-16s %-8s %-8s\n", " Name", "Addr", "Size")
	for _, s := range info.Sections {
		fmt.Fprintf(&sb, "  %-16s %08x %08x\n", s.Name, s.Addr, s.Size)
	}

	fmt.Fprintf(&sb, "Segments:\n  %-4s %-8s %-16s %-8s\n", "Perm", "Offset", "Vaddr", "Size")
	for _, seg := range info.Segments {
		fmt.Fprintf(&sb, "  %-4s %08x %016x %08x\n", seg.Perm, seg.Offset, seg.Vaddr, seg.Size)
	}

	fmt.Fprintf(&sb, "Symbols: %d\n", info.Symbols)
	return sb.String()
}
