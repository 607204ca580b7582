// Package colorize applies terminal syntax highlighting to disassembly
// listings and decompiler output. Colors are skipped entirely when
// BARETK_NO_COLOR is set.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Disabled reports whether color output is suppressed.
func Disabled() bool {
	return os.Getenv("BARETK_NO_COLOR") != ""
}

// listingLexer returns an assembly lexer suited to the architecture, with
// fallbacks when a specific one is not compiled in.
func listingLexer(arch string) chroma.Lexer {
	var candidates []string
	switch arch {
	case "x86", "amd64":
		candidates = []string{"nasm", "gas"}
	default:
		candidates = []string{"armasm", "gas", "nasm"}
	}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// disasmStyle returns the listing style with fallbacks.
func disasmStyle() *chroma.Style {
	// Try our own style first, then fallbacks
	candidates := []string{"baretk-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// terminalFormatter returns an appropriate terminal formatter
func terminalFormatter() chroma.Formatter {
	// Try high-color first, then fallback
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing highlights a disassembly listing for the given architecture.
// On any failure the plain text comes back unchanged.
func Listing(code, arch string) string {
	if Disabled() {
		return code
	}
	lexer := listingLexer(arch)
	if lexer == nil {
		return code
	}
	return render(code, lexer)
}

// Source highlights decompiler output. The C lexer works for both the C and
// the pseudo rendering.
func Source(code string) string {
	if Disabled() {
		return code
	}
	lexer := lexers.Get("c")
	if lexer == nil {
		return code
	}
	return render(code, lexer)
}

func render(code string, lexer chroma.Lexer) string {
	// Make sure the listing style is registered
	_ = ListingDark

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := terminalFormatter().Format(&buf, disasmStyle(), iterator); err != nil {
		return code
	}
	return buf.String()
}
