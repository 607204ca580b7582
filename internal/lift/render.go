package lift

import (
	"fmt"
	"strings"
)

// Render writes every lifted function in the decompilation's language.
func (dec *Decompilation) Render() string {
	var sb strings.Builder
	for i, fn := range dec.Funcs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fn.Render(dec.Lang))
	}
	return sb.String()
}

// Render writes one function in the given language.
func (fn *Function) Render(lang Language) string {
	r := &renderer{lang: lang}
	if lang == LangC {
		fmt.Fprintf(&r.sb, "void %s(void) // %#x\n{\n", fn.Name, fn.Entry)
	} else {
		fmt.Fprintf(&r.sb, "function %s() // %#x\n{\n", fn.Name, fn.Entry)
	}
	r.depth = 1
	r.stmts(fn.Body)
	r.sb.WriteString("}\n")
	return r.sb.String()
}

type renderer struct {
	sb    strings.Builder
	lang  Language
	depth int
}

func (r *renderer) line(format string, args ...any) {
	r.sb.WriteString(strings.Repeat("    ", r.depth))
	fmt.Fprintf(&r.sb, format, args...)
	r.sb.WriteByte('\n')
}

func (r *renderer) stmts(body []Stmt) {
	for _, s := range body {
		r.stmt(s)
	}
}

func (r *renderer) stmt(s Stmt) {
	switch s := s.(type) {
	case Asm:
		if r.lang == LangC {
			r.line("__asm(%q);", s.Ins.Text())
		} else {
			r.line("%s", s.Ins.Text())
		}
	case Call:
		callee := s.Callee
		if callee == "" && len(s.Ins.Args) > 0 {
			callee = "(" + s.Ins.Args[0] + ")"
		}
		if r.lang == LangC {
			r.line("%s();", callee)
		} else {
			r.line("call %s()", callee)
		}
	case Return:
		if r.lang == LangC {
			r.line("return;")
		} else {
			r.line("return")
		}
	case If:
		r.renderIf(s)
	case Loop:
		r.renderLoop(s)
	case Goto:
		if r.lang == LangC {
			r.line("goto loc_%x;", s.Addr)
		} else {
			r.line("goto loc_%x", s.Addr)
		}
	case Label:
		// Labels sit one level out so targets stand out in the listing.
		r.depth--
		if r.lang == LangC {
			r.line("loc_%x:;", s.Addr)
		} else {
			r.line("loc_%x:", s.Addr)
		}
		r.depth++
	}
}

func (r *renderer) renderIf(s If) {
	if r.lang == LangC {
		r.line("if (%s) {", s.Cond)
	} else {
		r.line("if %s {", s.Cond)
	}
	r.depth++
	r.stmts(s.Then)
	r.depth--
	if len(s.Else) > 0 {
		r.line("} else {")
		r.depth++
		r.stmts(s.Else)
		r.depth--
	}
	r.line("}")
}

func (r *renderer) renderLoop(s Loop) {
	switch {
	case s.Forever:
		if r.lang == LangC {
			r.line("for (;;) {")
		} else {
			r.line("loop {")
		}
	case s.PostTest:
		r.line("do {")
	default:
		if r.lang == LangC {
			r.line("while (%s) {", s.Cond)
		} else {
			r.line("while %s {", s.Cond)
		}
	}
	r.depth++
	r.stmts(s.Body)
	r.depth--
	if s.PostTest {
		if r.lang == LangC {
			r.line("} while (%s);", s.Cond)
		} else {
			r.line("} while %s", s.Cond)
		}
	} else {
		r.line("}")
	}
}

// String renders the predicate, applying negation.
func (c Cond) String() string {
	if c.Neg {
		return "!(" + c.Text + ")"
	}
	return c.Text
}
