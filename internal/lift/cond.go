package lift

import (
	"strings"

	"github.com/MatthewObi/baretk/internal/decode"
)

// ccInverse maps a condition-code name to its logical opposite, so negated
// predicates read naturally instead of stacking "!" operators.
var ccInverse = map[string]string{
	"eq": "ne", "ne": "eq",
	"lt": "ge", "ge": "lt",
	"gt": "le", "le": "gt",
	"ult": "uge", "uge": "ult",
	"ugt": "ule", "ule": "ugt",
	"sign": "nsign", "nsign": "sign",
	"ovf": "novf", "novf": "ovf",
	"carry": "ncarry", "ncarry": "carry",
	"parity": "nparity", "nparity": "parity",
}

// x86CC maps x86 jcc suffixes to the condition-code names above.
var x86CC = map[string]string{
	"e": "eq", "z": "eq", "ne": "ne", "nz": "ne",
	"l": "lt", "nge": "lt", "ge": "ge", "nl": "ge",
	"g": "gt", "nle": "gt", "le": "le", "ng": "le",
	"b": "ult", "c": "carry", "nae": "ult",
	"ae": "uge", "nc": "ncarry", "nb": "uge",
	"a": "ugt", "nbe": "ugt", "be": "ule", "na": "ule",
	"s": "sign", "ns": "nsign",
	"o": "ovf", "no": "novf",
	"p": "parity", "pe": "parity", "np": "nparity", "po": "nparity",
}

// armCC maps ARM condition suffixes ("b.eq", "bne").
var armCC = map[string]string{
	"eq": "eq", "ne": "ne",
	"lt": "lt", "ge": "ge", "gt": "gt", "le": "le",
	"lo": "ult", "cc": "ult", "hs": "uge", "cs": "uge",
	"hi": "ugt", "ls": "ule",
	"mi": "sign", "pl": "nsign",
	"vs": "ovf", "vc": "novf",
}

// branchCond derives the source-level predicate of a conditional branch.
func branchCond(ins decode.Instruction) Cond {
	mn := ins.Mnemonic
	arg := func(i int) string {
		if i < len(ins.Args) {
			return ins.Args[i]
		}
		return "?"
	}

	switch {
	// RISC-V compare-and-branch carries both operands.
	case mn == "beq":
		return Cond{Text: arg(0) + " == " + arg(1)}
	case mn == "bne":
		return Cond{Text: arg(0) + " != " + arg(1)}
	case mn == "blt":
		return Cond{Text: arg(0) + " < " + arg(1)}
	case mn == "bge":
		return Cond{Text: arg(0) + " >= " + arg(1)}
	case mn == "bltu":
		return Cond{Text: arg(0) + " <u " + arg(1)}
	case mn == "bgeu":
		return Cond{Text: arg(0) + " >=u " + arg(1)}
	case mn == "beqz":
		return Cond{Text: arg(0) + " == 0"}
	case mn == "bnez":
		return Cond{Text: arg(0) + " != 0"}
	case mn == "bltz":
		return Cond{Text: arg(0) + " < 0"}
	case mn == "bgez":
		return Cond{Text: arg(0) + " >= 0"}
	case mn == "blez":
		return Cond{Text: arg(0) + " <= 0"}
	case mn == "bgtz":
		return Cond{Text: arg(0) + " > 0"}

	// ARM64 compare-register-with-zero and test-bit forms.
	case mn == "cbz":
		return Cond{Text: arg(0) + " == 0"}
	case mn == "cbnz":
		return Cond{Text: arg(0) + " != 0"}
	case mn == "tbz":
		return Cond{Text: "(" + arg(0) + " >> " + strings.TrimPrefix(arg(1), "#") + " & 1) == 0"}
	case mn == "tbnz":
		return Cond{Text: "(" + arg(0) + " >> " + strings.TrimPrefix(arg(1), "#") + " & 1) != 0"}

	// ARM "b.eq" / "beq" style condition suffixes.
	case strings.HasPrefix(mn, "b."):
		if cc, ok := armCC[mn[2:]]; ok {
			return Cond{Text: "cc_" + cc}
		}
	case strings.HasPrefix(mn, "b") && len(mn) == 3:
		if cc, ok := armCC[mn[1:]]; ok {
			return Cond{Text: "cc_" + cc}
		}

	// x86 jcc family.
	case strings.HasPrefix(mn, "j") && mn != "jmp":
		if cc, ok := x86CC[mn[1:]]; ok {
			return Cond{Text: "cc_" + cc}
		}
		switch mn {
		case "jcxz", "jecxz", "jrcxz":
			return Cond{Text: strings.TrimSuffix(mn[1:], "z") + " == 0"}
		}
	}

	// Unknown form; keep the raw mnemonic as the predicate.
	return Cond{Text: mn}
}

// negate flips a predicate, preferring the inverse condition code over a
// leading "!".
func negate(c Cond) Cond {
	if cc, ok := strings.CutPrefix(c.Text, "cc_"); ok {
		if inv, found := ccInverse[cc]; found && !c.Neg {
			return Cond{Text: "cc_" + inv}
		}
	}
	return Cond{Text: c.Text, Neg: !c.Neg}
}
