// Package dis walks the executable segments of a loaded binary and decodes
// them into linear instruction streams. A Disassembly owns the image it was
// built from.
package dis

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MatthewObi/baretk/internal/decode"
	"github.com/MatthewObi/baretk/internal/image"
)

// Diagnostic records a recoverable decoding problem. Diagnostics are
// accumulated on the produced artifact, never fatal.
type Diagnostic struct {
	Addr uint64
	Msg  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%#x: %s", d.Addr, d.Msg)
}

// Listing is the decoded instruction stream of one executable segment.
type Listing struct {
	Segment image.Segment
	Index   int // position of the segment in the image's segment table
	Insts   []decode.Instruction
}

// Disassembly is the result of decoding every executable segment of an
// image. It owns the source image; callers inspect it through Image().
type Disassembly struct {
	Arch     string
	Listings []Listing
	Diags    []Diagnostic

	img *image.Image
}

// Image returns a borrowed, read-only view of the source image. The view is
// owned by the disassembly and must not be released independently.
func (d *Disassembly) Image() *image.Image {
	return d.img
}

// InstAt finds the decoded instruction at the exact address va.
func (d *Disassembly) InstAt(va uint64) (decode.Instruction, bool) {
	for _, l := range d.Listings {
		if len(l.Insts) == 0 {
			continue
		}
		if va < l.Insts[0].Addr || va > l.Insts[len(l.Insts)-1].Addr {
			continue
		}
		i := sort.Search(len(l.Insts), func(i int) bool { return l.Insts[i].Addr >= va })
		if i < len(l.Insts) && l.Insts[i].Addr == va {
			return l.Insts[i], true
		}
	}
	return decode.Instruction{}, false
}

// Disassemble decodes img's executable segments and takes ownership of img.
// It fails without consuming the image when no decoder exists for the
// image's machine/endianness combination.
func Disassemble(img *image.Image) (*Disassembly, error) {
	dec, err := decode.New(img.Machine, img.ByteOrder, img.Bits)
	if err != nil {
		return nil, err
	}

	type work struct {
		index int
		seg   image.Segment
		bytes []byte
	}
	var pending []work
	for i, seg := range img.Segments {
		if seg.Perm&image.PermExec == 0 {
			continue
		}
		b, ok := img.SegmentBytes(i)
		if !ok {
			continue
		}
		pending = append(pending, work{index: i, seg: seg, bytes: b})
	}

	// Segments decode independently: the decoder is pure and the image is
	// immutable, so each one gets its own goroutine.
	listings := make([]Listing, len(pending))
	diags := make([][]Diagnostic, len(pending))
	var g errgroup.Group
	for i, w := range pending {
		g.Go(func() error {
			listings[i], diags[i] = decodeSegment(dec, w.seg, w.index, w.bytes)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Disassembly{Arch: dec.Arch(), Listings: listings, img: img}
	for _, ds := range diags {
		d.Diags = append(d.Diags, ds...)
	}
	return d, nil
}

// decodeSegment runs the decoder over one segment from its first byte. A
// decode failure is recorded and the cursor advances a single byte so one
// bad opcode cannot abort the rest of the segment.
func decodeSegment(dec decode.Decoder, seg image.Segment, index int, b []byte) (Listing, []Diagnostic) {
	l := Listing{Segment: seg, Index: index}
	var diags []Diagnostic

	cursor := uint64(0)
	for cursor < seg.Size {
		addr := seg.Vaddr + cursor
		ins, err := dec.Decode(b[cursor:], addr)
		if err != nil {
			diags = append(diags, Diagnostic{Addr: addr, Msg: err.Error()})
			cursor++
			continue
		}
		l.Insts = append(l.Insts, ins)
		cursor += uint64(ins.Len)
	}
	return l, diags
}

// Print renders an objdump-like listing of every decoded segment.
func (d *Disassembly) Print(withBytes bool) string {
	var sb strings.Builder
	for _, l := range d.Listings {
		fmt.Fprintf(&sb, "segment %d (%s) at %#x:\n", l.Index, l.Segment.Perm, l.Segment.Vaddr)
		for _, ins := range l.Insts {
			if withBytes {
				fmt.Fprintf(&sb, "  %8x:  %-24x %s\n", ins.Addr, ins.Bytes, ins.Text())
			} else {
				fmt.Fprintf(&sb, "  %8x:  %s\n", ins.Addr, ins.Text())
			}
		}
	}
	if len(d.Diags) > 0 {
		sb.WriteString("diagnostics:\n")
		for _, diag := range d.Diags {
			fmt.Fprintf(&sb, "  %s\n", diag)
		}
	}
	return sb.String()
}
