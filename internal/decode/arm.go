package decode

import (
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
)

// armDecoder decodes 32-bit ARM (A32) instructions. Big-endian images are
// handled by swapping each 4-byte word before decoding; armasm expects
// little-endian encodings.
type armDecoder struct {
	swap bool
}

func (d *armDecoder) Arch() string { return "arm" }

func (d *armDecoder) Decode(b []byte, addr uint64) (Instruction, error) {
	if len(b) < 4 {
		return Instruction{}, &DecodeError{Addr: addr}
	}
	word := b[:4]
	if d.swap {
		word = []byte{b[3], b[2], b[1], b[0]}
	}
	inst, err := armasm.Decode(word, armasm.ModeARM)
	if err != nil {
		return Instruction{}, &DecodeError{Addr: addr, Err: err}
	}

	// armasm encodes the condition in the op name ("B.EQ").
	mnemonic := strings.ToLower(inst.Op.String())
	base, cond, hasCond := strings.Cut(mnemonic, ".")

	out := Instruction{
		Addr:     addr,
		Len:      4,
		Bytes:    b[:4],
		Mnemonic: mnemonic,
	}
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		out.Args = append(out.Args, strings.ToLower(arg.String()))
	}

	rel, relOK := armRel(inst)
	// ARM branch offsets are relative to PC+8.
	target := addr + 8 + uint64(int64(rel))
	conditional := hasCond && cond != "al"

	switch base {
	case "b":
		if conditional {
			out.Kind = KindCondBranch
		} else {
			out.Kind = KindBranch
		}
		if relOK {
			out.Target = target
			out.TargetOK = true
		} else {
			out.Kind = KindIndirectBranch
		}
	case "bl", "blx":
		if relOK {
			out.Kind = KindCall
			out.Target = target
			out.TargetOK = true
		} else {
			out.Kind = KindIndirectCall
		}
	case "bx":
		if len(out.Args) > 0 && out.Args[0] == "lr" {
			out.Kind = KindRet
		} else {
			out.Kind = KindIndirectBranch
		}
	}
	return out, nil
}

func armRel(inst armasm.Inst) (armasm.PCRel, bool) {
	for _, arg := range inst.Args {
		if rel, ok := arg.(armasm.PCRel); ok {
			return rel, true
		}
	}
	return 0, false
}

// arm64Decoder decodes A64 instructions.
type arm64Decoder struct{}

func (d *arm64Decoder) Arch() string { return "arm64" }

func (d *arm64Decoder) Decode(b []byte, addr uint64) (Instruction, error) {
	if len(b) < 4 {
		return Instruction{}, &DecodeError{Addr: addr}
	}
	inst, err := arm64asm.Decode(b[:4])
	if err != nil {
		return Instruction{}, &DecodeError{Addr: addr, Err: err}
	}

	out := Instruction{
		Addr:     addr,
		Len:      4,
		Bytes:    b[:4],
		Mnemonic: strings.ToLower(inst.Op.String()),
	}
	conditional := false
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		if _, ok := arg.(arm64asm.Cond); ok {
			conditional = true
		}
		out.Args = append(out.Args, strings.ToLower(arg.String()))
	}

	rel, relOK := arm64Rel(inst)
	// A64 branch offsets are relative to the instruction's own address.
	target := addr + uint64(int64(rel))

	switch inst.Op {
	case arm64asm.B:
		if conditional {
			out.Kind = KindCondBranch
		} else {
			out.Kind = KindBranch
		}
		if relOK {
			out.Target = target
			out.TargetOK = true
		} else {
			out.Kind = KindIndirectBranch
		}
	case arm64asm.BL:
		out.Kind = KindCall
		if relOK {
			out.Target = target
			out.TargetOK = true
		}
	case arm64asm.BR:
		out.Kind = KindIndirectBranch
	case arm64asm.BLR:
		out.Kind = KindIndirectCall
	case arm64asm.RET:
		out.Kind = KindRet
	case arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		out.Kind = KindCondBranch
		if relOK {
			out.Target = target
			out.TargetOK = true
		}
	}
	return out, nil
}

func arm64Rel(inst arm64asm.Inst) (arm64asm.PCRel, bool) {
	for _, arg := range inst.Args {
		if rel, ok := arg.(arm64asm.PCRel); ok {
			return rel, true
		}
	}
	return 0, false
}
