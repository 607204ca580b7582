// Package cfg partitions disassembled instruction streams into per-function
// control-flow graphs: basic blocks connected by fall-through and branch
// edges, with calls recorded as separate call sites.
package cfg

import (
	"fmt"
	"sort"

	"github.com/MatthewObi/baretk/internal/decode"
	"github.com/MatthewObi/baretk/internal/dis"
)

// EdgeKind labels how control reaches a successor block.
type EdgeKind int

const (
	EdgeFallthrough EdgeKind = iota
	EdgeTaken
	EdgeUnresolved // indirect target, not statically known
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeTaken:
		return "taken"
	case EdgeUnresolved:
		return "unresolved"
	}
	return "fallthrough"
}

// Edge is an outgoing control transfer. Unresolved edges have no To address.
type Edge struct {
	To   uint64
	Kind EdgeKind
}

// Block is a maximal straight-line instruction sequence. Control enters at
// Start and leaves only through the final instruction.
type Block struct {
	Start uint64
	Insts []decode.Instruction
	Succs []Edge
	Preds []uint64
}

// Last returns the block's terminating instruction.
func (b *Block) Last() decode.Instruction {
	return b.Insts[len(b.Insts)-1]
}

// CallSite records a call instruction found inside a function.
type CallSite struct {
	From     uint64
	Target   uint64
	TargetOK bool
}

// Graph is the control-flow graph of one recovered function.
type Graph struct {
	Name   string
	Entry  uint64
	Blocks map[uint64]*Block
	Calls  []CallSite
	Diags  []dis.Diagnostic
}

// BlockAddrs returns the block start addresses in ascending order.
func (g *Graph) BlockAddrs() []uint64 {
	addrs := make([]uint64, 0, len(g.Blocks))
	for a := range g.Blocks {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Recover identifies function entry points in a disassembly and builds one
// graph per function. Entries come from the image entry point and function
// symbols when available, supplemented by call targets discovered while
// scanning the streams; a stream with no entries at all falls back to its
// first instruction.
func Recover(d *dis.Disassembly) []*Graph {
	entries := make(map[uint64]string)

	img := d.Image()
	if _, ok := d.InstAt(img.Entry); ok {
		entries[img.Entry] = "_start"
	}
	for _, sym := range img.Symbols {
		if !sym.Func {
			continue
		}
		if _, ok := d.InstAt(sym.Addr); ok {
			name := sym.Demangled
			if name == "" {
				name = sym.Name
			}
			entries[sym.Addr] = name
		}
	}
	for _, l := range d.Listings {
		for _, ins := range l.Insts {
			if ins.Kind != decode.KindCall || !ins.TargetOK {
				continue
			}
			if _, ok := d.InstAt(ins.Target); !ok {
				continue
			}
			if _, seen := entries[ins.Target]; !seen {
				entries[ins.Target] = ""
			}
		}
	}
	if len(entries) == 0 {
		for _, l := range d.Listings {
			if len(l.Insts) > 0 {
				entries[l.Insts[0].Addr] = ""
			}
		}
	}

	addrs := make([]uint64, 0, len(entries))
	for a := range entries {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	graphs := make([]*Graph, 0, len(addrs))
	for _, entry := range addrs {
		name := entries[entry]
		if name == "" {
			name = fmt.Sprintf("sub_%x", entry)
		}
		graphs = append(graphs, build(d, entry, name))
	}
	return graphs
}

// build recovers the graph of a single function rooted at entry.
func build(d *dis.Disassembly, entry uint64, name string) *Graph {
	g := &Graph{Name: name, Entry: entry, Blocks: make(map[uint64]*Block)}

	// Pass 1: find the reachable instructions and the block leaders.
	reachable := make(map[uint64]decode.Instruction)
	leaders := map[uint64]bool{entry: true}
	work := []uint64{entry}
	for len(work) > 0 {
		addr := work[len(work)-1]
		work = work[:len(work)-1]
		if _, done := reachable[addr]; done {
			continue
		}
		ins, ok := d.InstAt(addr)
		if !ok {
			g.Diags = append(g.Diags, dis.Diagnostic{
				Addr: addr,
				Msg:  "control transfer into unmapped or misaligned code",
			})
			continue
		}
		reachable[addr] = ins
		next := addr + uint64(ins.Len)

		switch ins.Kind {
		case decode.KindRet:
			// Terminal; nothing follows.
		case decode.KindBranch:
			leaders[ins.Target] = true
			work = append(work, ins.Target)
		case decode.KindCondBranch:
			if ins.TargetOK {
				leaders[ins.Target] = true
				work = append(work, ins.Target)
			} else {
				g.Diags = append(g.Diags, dis.Diagnostic{Addr: addr, Msg: "unresolved conditional branch target"})
			}
			leaders[next] = true
			work = append(work, next)
		case decode.KindCall:
			g.Calls = append(g.Calls, CallSite{From: addr, Target: ins.Target, TargetOK: ins.TargetOK})
			work = append(work, next)
		case decode.KindIndirectCall:
			g.Calls = append(g.Calls, CallSite{From: addr})
			g.Diags = append(g.Diags, dis.Diagnostic{Addr: addr, Msg: "unresolved indirect call target"})
			work = append(work, next)
		case decode.KindIndirectBranch:
			g.Diags = append(g.Diags, dis.Diagnostic{Addr: addr, Msg: "unresolved indirect branch target"})
		default:
			work = append(work, next)
		}
	}

	// Pass 2: cut the reachable instructions into blocks at each leader.
	for leader := range leaders {
		if _, ok := reachable[leader]; !ok {
			continue
		}
		blk := &Block{Start: leader}
		addr := leader
		for {
			ins, ok := reachable[addr]
			if !ok {
				break
			}
			blk.Insts = append(blk.Insts, ins)
			next := addr + uint64(ins.Len)
			if ins.Kind != decode.KindSequential && ins.Kind != decode.KindCall && ins.Kind != decode.KindIndirectCall {
				break
			}
			if leaders[next] {
				break
			}
			addr = next
		}
		g.Blocks[leader] = blk
	}

	// Pass 3: connect blocks.
	for _, blk := range g.Blocks {
		last := blk.Last()
		next := last.Addr + uint64(last.Len)
		switch last.Kind {
		case decode.KindRet:
			// No successors.
		case decode.KindBranch:
			blk.addSucc(g, Edge{To: last.Target, Kind: EdgeTaken})
		case decode.KindCondBranch:
			if last.TargetOK {
				blk.addSucc(g, Edge{To: last.Target, Kind: EdgeTaken})
			} else {
				blk.Succs = append(blk.Succs, Edge{Kind: EdgeUnresolved})
			}
			blk.addSucc(g, Edge{To: next, Kind: EdgeFallthrough})
		case decode.KindIndirectBranch:
			blk.Succs = append(blk.Succs, Edge{Kind: EdgeUnresolved})
		default:
			blk.addSucc(g, Edge{To: next, Kind: EdgeFallthrough})
		}
	}
	return g
}

// addSucc links blk to the block at to, recording the predecessor side as
// well. Transfers out of the recovered region become unresolved edges.
func (blk *Block) addSucc(g *Graph, e Edge) {
	succ, ok := g.Blocks[e.To]
	if !ok {
		blk.Succs = append(blk.Succs, Edge{Kind: EdgeUnresolved})
		return
	}
	blk.Succs = append(blk.Succs, e)
	succ.Preds = append(succ.Preds, blk.Start)
}
