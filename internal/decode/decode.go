// Package decode turns raw bytes into machine instructions. Each supported
// architecture is a Decoder variant selected once per disassembly by machine
// identifier and endianness; decoding itself is a pure function over the
// byte window, so callers are free to decode independent segments in
// parallel.
package decode

import (
	"errors"
	"fmt"

	"github.com/MatthewObi/baretk/internal/image"
)

// ErrUnsupportedTarget is returned by New for architecture/endianness
// combinations that have no decoder.
var ErrUnsupportedTarget = errors.New("unsupported target architecture")

// DecodeError reports an undecodable opcode at a specific address. It is
// recoverable: the disassembly engine records it and resynchronizes.
type DecodeError struct {
	Addr uint64
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot decode instruction at %#x: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("cannot decode instruction at %#x", e.Addr)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind classifies how control flow leaves an instruction.
type Kind int

const (
	KindSequential     Kind = iota
	KindBranch              // unconditional, known target
	KindCondBranch          // conditional: taken target + fall-through
	KindCall                // call with fall-through at the return address
	KindRet                 // terminal
	KindIndirectBranch      // unconditional, target not statically known
	KindIndirectCall        // call, target not statically known
)

func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindCondBranch:
		return "cond-branch"
	case KindCall:
		return "call"
	case KindRet:
		return "ret"
	case KindIndirectBranch:
		return "indirect-branch"
	case KindIndirectCall:
		return "indirect-call"
	}
	return "sequential"
}

// Instruction is one decoded machine instruction.
// Addr+Len never exceeds the bounds of the segment it was decoded from.
type Instruction struct {
	Addr     uint64
	Len      int
	Bytes    []byte
	Mnemonic string   // lowercase operation name
	Args     []string // formatted operands, destination first
	Kind     Kind
	Target   uint64 // branch/call destination when TargetOK
	TargetOK bool
}

// Text returns the instruction in "mnemonic arg, arg" form.
func (ins Instruction) Text() string {
	if len(ins.Args) == 0 {
		return ins.Mnemonic
	}
	s := ins.Mnemonic + " " + ins.Args[0]
	for _, a := range ins.Args[1:] {
		s += ", " + a
	}
	return s
}

// A Decoder decodes exactly one instruction from the start of a byte window.
// Implementations are stateless: identical inputs always produce identical
// outputs or the same failure.
type Decoder interface {
	// Decode attempts to decode one instruction at offset 0 of b, which is
	// located at the virtual address addr.
	Decode(b []byte, addr uint64) (Instruction, error)
	// Arch names the decoder's architecture.
	Arch() string
}

// New selects the decoder variant for the given machine identifier and
// endianness. The set of variants is closed; unknown combinations return
// ErrUnsupportedTarget.
func New(machine string, order image.Endianness, bits int) (Decoder, error) {
	switch machine {
	case "x86":
		if order != image.LittleEndian {
			return nil, fmt.Errorf("%w: big-endian x86", ErrUnsupportedTarget)
		}
		return &x86Decoder{mode: 32}, nil
	case "amd64":
		if order != image.LittleEndian {
			return nil, fmt.Errorf("%w: big-endian amd64", ErrUnsupportedTarget)
		}
		return &x86Decoder{mode: 64}, nil
	case "arm":
		return &armDecoder{swap: order == image.BigEndian}, nil
	case "arm64":
		if order != image.LittleEndian {
			return nil, fmt.Errorf("%w: big-endian arm64", ErrUnsupportedTarget)
		}
		return &arm64Decoder{}, nil
	case "riscv":
		if order != image.LittleEndian {
			return nil, fmt.Errorf("%w: big-endian riscv", ErrUnsupportedTarget)
		}
		return &riscvDecoder{}, nil
	}
	return nil, fmt.Errorf("%w: %s (%s, %d-bit)", ErrUnsupportedTarget, machine, order, bits)
}
