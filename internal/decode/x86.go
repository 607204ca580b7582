package decode

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// x86Decoder decodes x86/amd64 instructions. mode is 32 or 64.
type x86Decoder struct {
	mode int
}

func (d *x86Decoder) Arch() string {
	if d.mode == 64 {
		return "amd64"
	}
	return "x86"
}

var x86CondBranches = map[x86asm.Op]bool{
	x86asm.JA: true, x86asm.JAE: true, x86asm.JB: true, x86asm.JBE: true,
	x86asm.JE: true, x86asm.JG: true, x86asm.JGE: true, x86asm.JL: true,
	x86asm.JLE: true, x86asm.JNE: true, x86asm.JNO: true, x86asm.JNP: true,
	x86asm.JNS: true, x86asm.JO: true, x86asm.JP: true, x86asm.JS: true,
	x86asm.JCXZ: true, x86asm.JECXZ: true, x86asm.JRCXZ: true,
	x86asm.LOOP: true, x86asm.LOOPE: true, x86asm.LOOPNE: true,
}

func (d *x86Decoder) Decode(b []byte, addr uint64) (Instruction, error) {
	inst, err := x86asm.Decode(b, d.mode)
	if err != nil {
		return Instruction{}, &DecodeError{Addr: addr, Err: err}
	}

	out := Instruction{
		Addr:     addr,
		Len:      inst.Len,
		Bytes:    b[:inst.Len],
		Mnemonic: strings.ToLower(inst.Op.String()),
	}
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		out.Args = append(out.Args, strings.ToLower(arg.String()))
	}

	rel, relOK := x86Rel(inst)
	target := addr + uint64(inst.Len) + uint64(int64(rel))

	switch {
	case inst.Op == x86asm.RET || inst.Op == x86asm.IRET:
		out.Kind = KindRet
	case inst.Op == x86asm.CALL:
		if relOK {
			out.Kind = KindCall
			out.Target = target
			out.TargetOK = true
		} else {
			out.Kind = KindIndirectCall
		}
	case inst.Op == x86asm.JMP:
		if relOK {
			out.Kind = KindBranch
			out.Target = target
			out.TargetOK = true
		} else {
			out.Kind = KindIndirectBranch
		}
	case x86CondBranches[inst.Op]:
		out.Kind = KindCondBranch
		if relOK {
			out.Target = target
			out.TargetOK = true
		}
	}
	return out, nil
}

// x86Rel extracts the PC-relative displacement operand, if the instruction
// has one.
func x86Rel(inst x86asm.Inst) (x86asm.Rel, bool) {
	for _, arg := range inst.Args {
		if rel, ok := arg.(x86asm.Rel); ok {
			return rel, true
		}
	}
	return 0, false
}
