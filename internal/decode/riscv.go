package decode

import (
	"encoding/binary"
	"strings"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// riscvDecoder decodes RV32/RV64 base-ISA instructions.
type riscvDecoder struct{}

func (d *riscvDecoder) Arch() string { return "riscv" }

const (
	riscvOpJAL    = 0x6f
	riscvOpJALR   = 0x67
	riscvOpBranch = 0x63
	riscvEncRet   = 0x00008067 // jalr x0, 0(ra)
)

func (d *riscvDecoder) Decode(b []byte, addr uint64) (Instruction, error) {
	if len(b) < 4 {
		return Instruction{}, &DecodeError{Addr: addr}
	}
	inst, err := riscv64asm.Decode(b[:4])
	if err != nil {
		return Instruction{}, &DecodeError{Addr: addr, Err: err}
	}

	mnemonic, args := splitSyntax(riscv64asm.GNUSyntax(inst))
	out := Instruction{
		Addr:     addr,
		Len:      4,
		Bytes:    b[:4],
		Mnemonic: mnemonic,
		Args:     args,
	}

	// Control flow and branch targets come from the raw encoding; the base
	// ISA keeps them in fixed fields.
	enc := binary.LittleEndian.Uint32(b)
	switch enc & 0x7f {
	case riscvOpJAL:
		rd := (enc >> 7) & 0x1f
		out.Target = addr + uint64(riscvJALOffset(enc))
		out.TargetOK = true
		if rd == 0 {
			out.Kind = KindBranch
		} else {
			out.Kind = KindCall
		}
	case riscvOpJALR:
		rd := (enc >> 7) & 0x1f
		switch {
		case enc == riscvEncRet:
			out.Kind = KindRet
		case rd == 0:
			out.Kind = KindIndirectBranch
		default:
			out.Kind = KindIndirectCall
		}
	case riscvOpBranch:
		out.Kind = KindCondBranch
		out.Target = addr + uint64(riscvBranchOffset(enc))
		out.TargetOK = true
	}
	return out, nil
}

// riscvJALOffset reassembles the J-type immediate: imm[20|10:1|11|19:12].
func riscvJALOffset(enc uint32) int64 {
	imm := ((enc>>31)&0x1)<<20 |
		((enc>>21)&0x3ff)<<1 |
		((enc>>20)&0x1)<<11 |
		((enc>>12)&0xff)<<12
	return signExtend(int64(imm), 21)
}

// riscvBranchOffset reassembles the B-type immediate: imm[12|10:5] and
// imm[4:1|11].
func riscvBranchOffset(enc uint32) int64 {
	imm := ((enc>>31)&0x1)<<12 |
		((enc>>25)&0x3f)<<5 |
		((enc>>8)&0xf)<<1 |
		((enc>>7)&0x1)<<11
	return signExtend(int64(imm), 13)
}

func signExtend(v int64, bits uint) int64 {
	shift := 64 - bits
	return v << shift >> shift
}

// splitSyntax breaks a rendered instruction into mnemonic and operands.
func splitSyntax(s string) (string, []string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s, nil
	}
	mnemonic := fields[0]
	rest := strings.Join(fields[1:], " ")
	if rest == "" {
		return mnemonic, nil
	}
	parts := strings.Split(rest, ",")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		args = append(args, strings.TrimSpace(p))
	}
	return mnemonic, args
}
