// Package lift raises disassembled machine code into a structured statement
// tree. Each recovered function's control-flow graph is reduced region by
// region: straight-line runs collapse into sequences, diamonds into if/else,
// back edges into loops. Whatever cannot be reduced is emitted as labeled
// blocks with explicit gotos.
package lift

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MatthewObi/baretk/internal/cfg"
	"github.com/MatthewObi/baretk/internal/decode"
	"github.com/MatthewObi/baretk/internal/dis"
)

// Language selects the surface syntax of the rendered output.
type Language int

const (
	LangPseudo Language = iota
	LangC
)

func (l Language) String() string {
	if l == LangC {
		return "c"
	}
	return "pseudo"
}

// ParseLanguage maps a user-facing name to a Language.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "pseudo", "":
		return LangPseudo, nil
	case "c":
		return LangC, nil
	}
	return LangPseudo, fmt.Errorf("unknown output language %q", s)
}

// Stmt is a node of the lifted statement tree.
type Stmt interface{ stmt() }

// Asm is a machine instruction carried through unchanged.
type Asm struct{ Ins decode.Instruction }

// Call is a call instruction with its resolved callee name, if any.
type Call struct {
	Ins    decode.Instruction
	Callee string
}

// Return ends the function.
type Return struct{ Ins decode.Instruction }

// If executes Then when Cond holds, Else (possibly empty) otherwise.
type If struct {
	Cond Cond
	Then []Stmt
	Else []Stmt
}

// Loop repeats Body. Pre-test loops check Cond before each iteration,
// post-test loops after; a loop without a condition repeats forever until an
// inner statement leaves it.
type Loop struct {
	Cond     Cond
	PostTest bool
	Forever  bool
	Body     []Stmt
}

// Goto transfers to the Label with the same address.
type Goto struct{ Addr uint64 }

// Label marks a goto target.
type Label struct{ Addr uint64 }

func (Asm) stmt()    {}
func (Call) stmt()   {}
func (Return) stmt() {}
func (If) stmt()     {}
func (Loop) stmt()   {}
func (Goto) stmt()   {}
func (Label) stmt()  {}

// Cond is the predicate of a conditional branch, expressed as source text.
type Cond struct {
	Text string
	Neg  bool
}

// Function is one lifted function.
type Function struct {
	Name  string
	Entry uint64
	Body  []Stmt
	Diags []dis.Diagnostic
}

// Decompilation owns the lifted functions and the disassembly they came from.
type Decompilation struct {
	Lang  Language
	Funcs []*Function
	Diags []dis.Diagnostic

	src *dis.Disassembly
}

// Source returns the disassembly this decompilation was lifted from. The
// returned value is a view; it stays owned by the decompilation.
func (dec *Decompilation) Source() *dis.Disassembly { return dec.src }

// Decompile recovers one control-flow graph per function and lifts them all,
// functions in parallel. The disassembly is retained inside the result.
func Decompile(d *dis.Disassembly, lang Language) (*Decompilation, error) {
	graphs := cfg.Recover(d)

	names := make(map[uint64]string, len(graphs))
	for _, g := range graphs {
		names[g.Entry] = g.Name
	}
	resolve := func(addr uint64) string {
		if n, ok := names[addr]; ok {
			return n
		}
		return fmt.Sprintf("sub_%x", addr)
	}

	dec := &Decompilation{
		Lang:  lang,
		Funcs: make([]*Function, len(graphs)),
		src:   d,
	}
	var eg errgroup.Group
	for i, g := range graphs {
		eg.Go(func() error {
			dec.Funcs[i] = liftGraph(g, resolve)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, fn := range dec.Funcs {
		dec.Diags = append(dec.Diags, fn.Diags...)
	}
	return dec, nil
}

// node is a region being reduced. It starts as a basic block and absorbs its
// neighbors as patterns collapse.
type node struct {
	start uint64
	body  []Stmt

	// Terminator. A two-way node has cond set with succs[0] the taken
	// target and succs[1] the fall-through; a one-way node has one succ;
	// returns and unresolved exits have none.
	cond  *Cond
	succs []uint64
}

func liftGraph(g *cfg.Graph, resolve func(uint64) string) *Function {
	fn := &Function{Name: g.Name, Entry: g.Entry, Diags: g.Diags}

	nodes := make(map[uint64]*node, len(g.Blocks))
	for _, addr := range g.BlockAddrs() {
		nodes[addr] = blockNode(g.Blocks[addr], resolve)
	}
	if len(nodes) == 0 {
		return fn
	}

	reduce(nodes, g.Entry)

	if len(nodes) == 1 {
		fn.Body = nodes[g.Entry].body
		return fn
	}
	fn.Body = emitIrreducible(nodes, g.Entry)
	return fn
}

// blockNode converts a basic block into an initial region node. Calls and
// returns become statements; the block terminator becomes the node's
// terminator.
func blockNode(b *cfg.Block, resolve func(uint64) string) *node {
	n := &node{start: b.Start}
	for _, ins := range b.Insts {
		switch ins.Kind {
		case decode.KindCall:
			callee := ""
			if ins.TargetOK {
				callee = resolve(ins.Target)
			}
			n.body = append(n.body, Call{Ins: ins, Callee: callee})
		case decode.KindIndirectCall:
			n.body = append(n.body, Call{Ins: ins})
		case decode.KindRet:
			n.body = append(n.body, Return{Ins: ins})
		case decode.KindBranch, decode.KindCondBranch, decode.KindIndirectBranch:
			// Terminator, handled below.
		default:
			n.body = append(n.body, Asm{Ins: ins})
		}
	}

	last := b.Last()
	for _, e := range b.Succs {
		if e.Kind != cfg.EdgeUnresolved {
			n.succs = append(n.succs, e.To)
		}
	}
	// A transfer whose target could not be resolved must stay visible in
	// the output, so the raw instruction is kept as a statement.
	switch last.Kind {
	case decode.KindIndirectBranch:
		n.body = append(n.body, Asm{Ins: last})
	case decode.KindCondBranch:
		if len(n.succs) == 2 {
			c := branchCond(last)
			n.cond = &c
		} else {
			// The taken edge degraded to unresolved; the node falls
			// through one-way but the branch itself is preserved.
			n.body = append(n.body, Asm{Ins: last})
		}
	case decode.KindBranch:
		if len(n.succs) == 0 {
			n.body = append(n.body, Asm{Ins: last})
		}
	}
	return n
}

// reduce collapses structured regions until no pattern applies.
func reduce(nodes map[uint64]*node, entry uint64) {
	for {
		if reduceOnce(nodes, entry) {
			continue
		}
		return
	}
}

func reduceOnce(nodes map[uint64]*node, entry uint64) bool {
	preds := countPreds(nodes)
	for _, addr := range sortedKeys(nodes) {
		n := nodes[addr]
		switch len(n.succs) {
		case 1:
			if reduceLinear(nodes, preds, n, entry) {
				return true
			}
		case 2:
			if reduceTwoWay(nodes, preds, n, entry) {
				return true
			}
		}
	}
	return false
}

// reduceLinear handles one-way nodes: self-loops and sequence collapse.
func reduceLinear(nodes map[uint64]*node, preds map[uint64]int, n *node, entry uint64) bool {
	succ := n.succs[0]
	if succ == n.start {
		n.body = []Stmt{Loop{Forever: true, Body: n.body}}
		n.succs = nil
		return true
	}
	b, ok := nodes[succ]
	if !ok || preds[succ] != 1 || succ == entry {
		return false
	}
	n.body = append(n.body, b.body...)
	n.cond = b.cond
	n.succs = b.succs
	delete(nodes, succ)
	return true
}

// reduceTwoWay handles conditional nodes: post-test self-loops, if-then,
// if-else and pre-test loops.
func reduceTwoWay(nodes map[uint64]*node, preds map[uint64]int, n *node, entry uint64) bool {
	taken, fall := n.succs[0], n.succs[1]

	// do { body } while (cond)
	if taken == n.start && fall != n.start {
		n.body = []Stmt{Loop{Cond: *n.cond, PostTest: true, Body: n.body}}
		n.cond = nil
		n.succs = []uint64{fall}
		return true
	}
	// do { body } while (!cond)
	if fall == n.start && taken != n.start {
		n.body = []Stmt{Loop{Cond: negate(*n.cond), PostTest: true, Body: n.body}}
		n.cond = nil
		n.succs = []uint64{taken}
		return true
	}
	if taken == n.start && fall == n.start {
		n.body = []Stmt{Loop{Forever: true, Body: n.body}}
		n.cond = nil
		n.succs = nil
		return true
	}

	t, tok := nodes[taken]
	f, fok := nodes[fall]

	// if (!cond) { fall }: branch skips the fall-through block.
	if fok && fall != entry && preds[fall] == 1 && f.cond == nil &&
		len(f.succs) == 1 && f.succs[0] == taken {
		n.body = append(n.body, If{Cond: negate(*n.cond), Then: f.body})
		n.cond = nil
		n.succs = []uint64{taken}
		delete(nodes, fall)
		return true
	}
	// if (cond) { taken }: branch enters the block, fall-through skips it.
	if tok && taken != entry && preds[taken] == 1 && t.cond == nil &&
		len(t.succs) == 1 && t.succs[0] == fall {
		n.body = append(n.body, If{Cond: *n.cond, Then: t.body})
		n.cond = nil
		n.succs = []uint64{fall}
		delete(nodes, taken)
		return true
	}
	// if (cond) { taken } else { fall }: both arms meet at a common join.
	if tok && fok && taken != entry && fall != entry &&
		preds[taken] == 1 && preds[fall] == 1 &&
		t.cond == nil && f.cond == nil &&
		len(t.succs) == 1 && len(f.succs) == 1 && t.succs[0] == f.succs[0] {
		join := t.succs[0]
		n.body = append(n.body, If{Cond: *n.cond, Then: t.body, Else: f.body})
		n.cond = nil
		n.succs = []uint64{join}
		delete(nodes, taken)
		delete(nodes, fall)
		return true
	}
	// if (cond) { taken; return } else fall through: arm does not rejoin.
	if tok && taken != entry && preds[taken] == 1 && t.cond == nil && len(t.succs) == 0 {
		n.body = append(n.body, If{Cond: *n.cond, Then: t.body})
		n.cond = nil
		n.succs = []uint64{fall}
		delete(nodes, taken)
		return true
	}
	if fok && fall != entry && preds[fall] == 1 && f.cond == nil && len(f.succs) == 0 {
		n.body = append(n.body, If{Cond: negate(*n.cond), Then: f.body})
		n.cond = nil
		n.succs = []uint64{taken}
		delete(nodes, fall)
		return true
	}
	// while (cond) { taken }: body loops straight back to the test.
	if tok && taken != entry && preds[taken] == 1 && t.cond == nil &&
		len(t.succs) == 1 && t.succs[0] == n.start {
		n.body = append(n.body, Loop{Cond: *n.cond, Body: t.body})
		n.cond = nil
		n.succs = []uint64{fall}
		delete(nodes, taken)
		return true
	}
	// while (!cond) { fall }
	if fok && fall != entry && preds[fall] == 1 && f.cond == nil &&
		len(f.succs) == 1 && f.succs[0] == n.start {
		n.body = append(n.body, Loop{Cond: negate(*n.cond), Body: f.body})
		n.cond = nil
		n.succs = []uint64{taken}
		delete(nodes, fall)
		return true
	}
	return false
}

// emitIrreducible flattens whatever regions remain into a labeled sequence
// with explicit gotos, in address order.
func emitIrreducible(nodes map[uint64]*node, entry uint64) []Stmt {
	order := sortedKeys(nodes)
	// The entry region always comes first.
	for i, a := range order {
		if a == entry {
			copy(order[1:i+1], order[:i])
			order[0] = entry
			break
		}
	}

	targets := make(map[uint64]bool)
	for i, addr := range order {
		n := nodes[addr]
		switch {
		case n.cond != nil:
			targets[n.succs[0]] = true
			if !fallsInto(order, i, n.succs[1]) {
				targets[n.succs[1]] = true
			}
		case len(n.succs) == 1:
			if !fallsInto(order, i, n.succs[0]) {
				targets[n.succs[0]] = true
			}
		}
	}

	var out []Stmt
	for i, addr := range order {
		n := nodes[addr]
		if targets[addr] {
			out = append(out, Label{Addr: addr})
		}
		out = append(out, n.body...)
		switch {
		case n.cond != nil:
			out = append(out, If{Cond: *n.cond, Then: []Stmt{Goto{Addr: n.succs[0]}}})
			if !fallsInto(order, i, n.succs[1]) {
				out = append(out, Goto{Addr: n.succs[1]})
			}
		case len(n.succs) == 1:
			if !fallsInto(order, i, n.succs[0]) {
				out = append(out, Goto{Addr: n.succs[0]})
			}
		}
	}
	return out
}

func fallsInto(order []uint64, i int, to uint64) bool {
	return i+1 < len(order) && order[i+1] == to
}

func countPreds(nodes map[uint64]*node) map[uint64]int {
	preds := make(map[uint64]int, len(nodes))
	for _, n := range nodes {
		for _, s := range n.succs {
			preds[s]++
		}
	}
	return preds
}

func sortedKeys(nodes map[uint64]*node) []uint64 {
	keys := make([]uint64, 0, len(nodes))
	for a := range nodes {
		keys = append(keys, a)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
