// Package query answers content questions about a binary that do not need
// disassembly, such as extracting the ASCII strings embedded in it.
package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strings scans data for runs of text bytes of at least minLen characters,
// the way the classic strings tool does. With printableOnly set, only
// graphic ASCII and space count as text; otherwise tabs and line breaks are
// accepted too and any unprintable runes in the result are escaped.
func Strings(data []byte, minLen int, printableOnly bool) []string {
	if minLen < 1 {
		minLen = 1
	}
	var out []string
	start := -1
	for i, b := range data {
		if isText(b, printableOnly) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			out = append(out, render(data[start:i], printableOnly))
		}
		start = -1
	}
	if start >= 0 && len(data)-start >= minLen {
		out = append(out, render(data[start:], printableOnly))
	}
	return out
}

func isText(b byte, printableOnly bool) bool {
	if b >= 0x20 && b < 0x7f {
		return true
	}
	if printableOnly {
		return false
	}
	return b == '\t' || b == '\n' || b == '\r'
}

func render(run []byte, printableOnly bool) string {
	if printableOnly {
		return string(run)
	}
	return EscapeUnprintable(run)
}

// EscapeUnprintable returns a string where printable Unicode runes are
// preserved. Control and unprintable runes are escaped as \uXXXX, invalid
// UTF-8 bytes as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(fmt.Sprintf("\\x%02X", b[0]))
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteString(fmt.Sprintf("\\u%04X", r))
		}
		b = b[size:]
	}
	return sb.String()
}
