package dump

import (
	"strings"
	"testing"

	"github.com/MatthewObi/baretk/internal/image"
)

func testImage() *image.Image {
	raw := []byte{0xc3, 'h', 'i', 0x00}
	im := image.New("prog.bin", image.LittleEndian, "amd64", 64, raw)
	im.Entry = 0x401000
	im.Segments = []image.Segment{
		{Perm: image.PermRead | image.PermExec, Offset: 0, Vaddr: 0x401000, Size: 1},
		{Perm: image.PermRead, Offset: 1, Vaddr: 0x402000, Size: 3},
	}
	im.AddSection(image.Section{Name: ".text", Addr: 0x401000, Bytes: raw[:1]})
	im.AddSection(image.Section{Name: ".rodata", Addr: 0x402000, Bytes: raw[1:]})
	im.Symbols = []image.Symbol{{Name: "main", Addr: 0x401000, Func: true}}
	return im
}

func TestCollect(t *testing.T) {
	info := Collect(testImage())

	if info.Machine != "amd64" || info.Bits != 64 || info.ByteOrder != "little-endian" {
		t.Errorf("target = %s/%d/%s, want amd64/64/little-endian", info.Machine, info.Bits, info.ByteOrder)
	}
	if info.Entry != 0x401000 {
		t.Errorf("entry = %#x, want 0x401000", info.Entry)
	}
	if len(info.Sections) != 2 || info.Sections[0].Name != ".rodata" {
		t.Errorf("sections = %+v, want .rodata and .text in name order", info.Sections)
	}
	if len(info.Segments) != 2 || info.Segments[0].Perm != "r-x" {
		t.Errorf("segments = %+v, want r-x then r--", info.Segments)
	}
	if info.Symbols != 1 {
		t.Errorf("symbol count = %d, want 1", info.Symbols)
	}
}

func TestText(t *testing.T) {
	out := Collect(testImage()).Text()

	for _, want := range []string{
		"64-bit, little-endian, amd64 executable",
		"Entry point: 0x401000",
		".text",
		".rodata",
		"r-x",
		"Symbols: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
