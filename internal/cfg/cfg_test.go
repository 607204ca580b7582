package cfg

import (
	"testing"

	"github.com/MatthewObi/baretk/internal/dis"
	"github.com/MatthewObi/baretk/internal/image"
)

func amd64Disasm(t *testing.T, code []byte, syms ...image.Symbol) *dis.Disassembly {
	t.Helper()
	im := image.New("test.bin", image.LittleEndian, "amd64", 64, code)
	im.Segments = []image.Segment{
		{Perm: image.PermRead | image.PermExec, Offset: 0, Vaddr: 0x401000, Size: uint64(len(code))},
	}
	im.Symbols = syms
	d, err := dis.Disassemble(im)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRecoverStraightLine(t *testing.T) {
	// mov eax, 0x1; ret
	d := amd64Disasm(t, []byte{0xb8, 0x01, 0x00, 0x00, 0x00, 0xc3})

	graphs := Recover(d)
	if len(graphs) != 1 {
		t.Fatalf("got %d graphs, want 1", len(graphs))
	}
	g := graphs[0]
	if g.Entry != 0x401000 {
		t.Errorf("entry = %#x, want 0x401000", g.Entry)
	}
	if g.Name != "sub_401000" {
		t.Errorf("name = %q, want sub_401000", g.Name)
	}
	if len(g.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(g.Blocks))
	}
	blk := g.Blocks[0x401000]
	if blk == nil {
		t.Fatal("missing block at entry")
	}
	if len(blk.Insts) != 2 {
		t.Errorf("got %d instructions, want 2", len(blk.Insts))
	}
	if len(blk.Succs) != 0 {
		t.Errorf("ret block has %d successors, want 0", len(blk.Succs))
	}
}

func TestRecoverDiamond(t *testing.T) {
	// 401000: xor eax, eax
	// 401002: je 0x401006
	// 401004: inc eax
	// 401006: ret
	d := amd64Disasm(t, []byte{0x31, 0xc0, 0x74, 0x02, 0xff, 0xc0, 0xc3})

	graphs := Recover(d)
	if len(graphs) != 1 {
		t.Fatalf("got %d graphs, want 1", len(graphs))
	}
	g := graphs[0]
	want := []uint64{0x401000, 0x401004, 0x401006}
	got := g.BlockAddrs()
	if len(got) != len(want) {
		t.Fatalf("block addrs = %#x, want %#x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("block addrs = %#x, want %#x", got, want)
		}
	}

	head := g.Blocks[0x401000]
	if len(head.Succs) != 2 {
		t.Fatalf("head has %d successors, want 2", len(head.Succs))
	}
	if head.Succs[0].Kind != EdgeTaken || head.Succs[0].To != 0x401006 {
		t.Errorf("taken edge = %+v, want taken to 0x401006", head.Succs[0])
	}
	if head.Succs[1].Kind != EdgeFallthrough || head.Succs[1].To != 0x401004 {
		t.Errorf("fall-through edge = %+v, want fallthrough to 0x401004", head.Succs[1])
	}

	join := g.Blocks[0x401006]
	if len(join.Preds) != 2 {
		t.Errorf("join has %d predecessors, want 2", len(join.Preds))
	}
	if len(g.Diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", g.Diags)
	}
}

func TestRecoverLoop(t *testing.T) {
	// 401000: xor eax, eax
	// 401002: inc eax
	// 401004: jne 0x401002
	// 401006: ret
	d := amd64Disasm(t, []byte{0x31, 0xc0, 0xff, 0xc0, 0x75, 0xfc, 0xc3})

	g := Recover(d)[0]
	body := g.Blocks[0x401002]
	if body == nil {
		t.Fatal("missing loop body block")
	}
	var taken, fall bool
	for _, e := range body.Succs {
		switch {
		case e.Kind == EdgeTaken && e.To == 0x401002:
			taken = true
		case e.Kind == EdgeFallthrough && e.To == 0x401006:
			fall = true
		}
	}
	if !taken || !fall {
		t.Errorf("loop body successors = %+v, want back edge to 0x401002 and fall-through to 0x401006", body.Succs)
	}
	// The back edge makes the body its own predecessor.
	self := false
	for _, p := range body.Preds {
		if p == 0x401002 {
			self = true
		}
	}
	if !self {
		t.Errorf("loop body predecessors = %#x, want to include itself", body.Preds)
	}
}

func TestRecoverCallTargets(t *testing.T) {
	// 401000: call 0x401008
	// 401005: ret
	// 401006: nop; nop
	// 401008: ret
	code := []byte{0xe8, 0x03, 0x00, 0x00, 0x00, 0xc3, 0x90, 0x90, 0xc3}
	d := amd64Disasm(t, code, image.Symbol{Name: "main", Addr: 0x401000, Func: true})

	graphs := Recover(d)
	if len(graphs) != 2 {
		t.Fatalf("got %d graphs, want 2", len(graphs))
	}
	main, callee := graphs[0], graphs[1]
	if main.Name != "main" {
		t.Errorf("first graph name = %q, want main", main.Name)
	}
	if callee.Name != "sub_401008" || callee.Entry != 0x401008 {
		t.Errorf("callee = %q at %#x, want sub_401008 at 0x401008", callee.Name, callee.Entry)
	}

	// The call stays inside its block and is recorded as a call site.
	blk := main.Blocks[0x401000]
	if len(blk.Insts) != 2 {
		t.Errorf("entry block has %d instructions, want call+ret", len(blk.Insts))
	}
	if len(main.Calls) != 1 {
		t.Fatalf("got %d call sites, want 1", len(main.Calls))
	}
	cs := main.Calls[0]
	if cs.From != 0x401000 || cs.Target != 0x401008 || !cs.TargetOK {
		t.Errorf("call site = %+v, want resolved 0x401000 -> 0x401008", cs)
	}
}

func TestRecoverIndirectBranch(t *testing.T) {
	// jmp rax
	d := amd64Disasm(t, []byte{0xff, 0xe0})

	g := Recover(d)[0]
	blk := g.Blocks[g.Entry]
	if len(blk.Succs) != 1 || blk.Succs[0].Kind != EdgeUnresolved {
		t.Errorf("successors = %+v, want one unresolved edge", blk.Succs)
	}
	if len(g.Diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(g.Diags))
	}
}

func TestRecoverBranchOutOfStream(t *testing.T) {
	// jmp 0x401012 (past the end of the mapped code)
	d := amd64Disasm(t, []byte{0xeb, 0x10})

	g := Recover(d)[0]
	if len(g.Diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(g.Diags))
	}
	blk := g.Blocks[g.Entry]
	if len(blk.Succs) != 1 || blk.Succs[0].Kind != EdgeUnresolved {
		t.Errorf("successors = %+v, want one unresolved edge", blk.Succs)
	}
}
