package dis

import (
	"errors"
	"testing"

	"github.com/MatthewObi/baretk/internal/decode"
	"github.com/MatthewObi/baretk/internal/image"
)

// amd64Image wraps raw code bytes in a single-segment image.
func amd64Image(code []byte, extra ...image.Segment) *image.Image {
	im := image.New("test.bin", image.LittleEndian, "amd64", 64, code)
	im.Segments = append([]image.Segment{
		{Perm: image.PermRead | image.PermExec, Offset: 0, Vaddr: 0x401000, Size: uint64(len(code))},
	}, extra...)
	im.AddSection(image.Section{Name: ".text", Addr: 0x401000, Bytes: code})
	return im
}

func TestDisassembleSimple(t *testing.T) {
	// mov eax, 0x1; ret
	code := []byte{0xb8, 0x01, 0x00, 0x00, 0x00, 0xc3}
	d, err := Disassemble(amd64Image(code))
	if err != nil {
		t.Fatal(err)
	}

	if len(d.Listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(d.Listings))
	}
	insts := d.Listings[0].Insts
	if len(insts) != 2 {
		t.Fatalf("instructions = %d, want 2", len(insts))
	}
	if insts[0].Mnemonic != "mov" || insts[0].Addr != 0x401000 {
		t.Errorf("inst 0 = %s at %#x, want mov at 0x401000", insts[0].Mnemonic, insts[0].Addr)
	}
	if insts[1].Mnemonic != "ret" || insts[1].Addr != 0x401005 {
		t.Errorf("inst 1 = %s at %#x, want ret at 0x401005", insts[1].Mnemonic, insts[1].Addr)
	}
	if len(d.Diags) != 0 {
		t.Errorf("diagnostics = %v, want none", d.Diags)
	}
}

func TestDisassembleResync(t *testing.T) {
	// One invalid opcode (0x06 is undefined in 64-bit mode) followed by
	// three valid instructions.
	code := []byte{0x06, 0x90, 0x31, 0xc0, 0xc3} // bad; nop; xor eax,eax; ret
	d, err := Disassemble(amd64Image(code))
	if err != nil {
		t.Fatal(err)
	}

	if len(d.Diags) != 1 {
		t.Fatalf("diagnostics = %d, want exactly 1: %v", len(d.Diags), d.Diags)
	}
	if d.Diags[0].Addr != 0x401000 {
		t.Errorf("diagnostic addr = %#x, want 0x401000", d.Diags[0].Addr)
	}
	insts := d.Listings[0].Insts
	if len(insts) != 3 {
		t.Fatalf("instructions = %d, want 3", len(insts))
	}
	want := []string{"nop", "xor", "ret"}
	for i, m := range want {
		if insts[i].Mnemonic != m {
			t.Errorf("inst %d = %s, want %s", i, insts[i].Mnemonic, m)
		}
	}
}

func TestDisassembleSkipsNonExecSegments(t *testing.T) {
	code := []byte{0xc3, 'h', 'i', 0x00}
	im := image.New("test.bin", image.LittleEndian, "amd64", 64, code)
	im.Segments = []image.Segment{
		{Perm: image.PermRead | image.PermExec, Offset: 0, Vaddr: 0x401000, Size: 1},
		{Perm: image.PermRead, Offset: 1, Vaddr: 0x402000, Size: 3},
	}
	d, err := Disassemble(im)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Listings) != 1 {
		t.Fatalf("listings = %d, want 1 (data segment must not be decoded)", len(d.Listings))
	}
	if d.Listings[0].Index != 0 {
		t.Errorf("listing segment index = %d, want 0", d.Listings[0].Index)
	}
	// The data segment is still reachable through the borrowed image.
	if _, ok := d.Image().SegmentBytes(1); !ok {
		t.Error("data segment bytes not retained")
	}
}

func TestDisassembleUnsupportedTarget(t *testing.T) {
	im := image.New("test.bin", image.LittleEndian, "unknown", 64, []byte{0x00})
	im.Segments = []image.Segment{{Perm: image.PermExec, Size: 1}}

	_, err := Disassemble(im)
	if !errors.Is(err, decode.ErrUnsupportedTarget) {
		t.Fatalf("error = %v, want ErrUnsupportedTarget", err)
	}
	// The image must remain usable after a failed transfer.
	if im.Machine != "unknown" || len(im.Segments) != 1 {
		t.Error("image mutated by failed disassembly")
	}
}

func TestImageRoundTrip(t *testing.T) {
	code := []byte{0xb8, 0x01, 0x00, 0x00, 0x00, 0xc3}
	im := amd64Image(code)
	snapshot := im.Clone()

	d, err := Disassemble(im)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Image().Equal(snapshot) {
		t.Error("borrowed image differs from the consumed input")
	}
}

func TestInstAt(t *testing.T) {
	code := []byte{0x90, 0x90, 0xc3}
	d, err := Disassemble(amd64Image(code))
	if err != nil {
		t.Fatal(err)
	}

	ins, ok := d.InstAt(0x401001)
	if !ok || ins.Mnemonic != "nop" {
		t.Errorf("InstAt(0x401001) = %v, %v", ins.Mnemonic, ok)
	}
	if _, ok := d.InstAt(0x401003); ok {
		t.Error("InstAt past the stream succeeded")
	}
}
