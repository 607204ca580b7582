package query

import (
	"reflect"
	"testing"
)

func TestStrings(t *testing.T) {
	data := []byte("\x00\x01hello\x00wo\x02rld!\xffab")
	tests := []struct {
		name   string
		minLen int
		want   []string
	}{
		{"default length", 4, []string{"hello", "rld!"}},
		{"short runs included", 2, []string{"hello", "wo", "rld!", "ab"}},
		{"nothing long enough", 6, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strings(data, tt.minLen, true)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Strings(min=%d) = %q, want %q", tt.minLen, got, tt.want)
			}
		})
	}
}

func TestStringsKeepsWhitespaceWhenNotPrintableOnly(t *testing.T) {
	data := []byte("line one\n\tline two\x00x")
	got := Strings(data, 4, false)
	if len(got) != 1 {
		t.Fatalf("got %q, want one string spanning the newline", got)
	}
	// The run survives as one string with its control characters escaped.
	want := "line one\\u000A\\u0009line two"
	if got[0] != want {
		t.Errorf("got %q, want %q", got[0], want)
	}
}

func TestStringsRunAtEnd(t *testing.T) {
	got := Strings([]byte("\x00tail"), 4, true)
	if len(got) != 1 || got[0] != "tail" {
		t.Errorf("got %q, want [tail]", got)
	}
}

func TestStringsMinLenFloor(t *testing.T) {
	got := Strings([]byte("a\x00b"), 0, true)
	if len(got) != 2 {
		t.Errorf("got %q, want both single characters", got)
	}
}

func TestEscapeUnprintable(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("plain"), "plain"},
		{[]byte("a\x00b"), "a\\u0000b"},
		{[]byte{0xff, 'x'}, "\\xFFx"},
		{[]byte("héllo"), "héllo"},
	}
	for _, tt := range tests {
		if got := EscapeUnprintable(tt.in); got != tt.want {
			t.Errorf("EscapeUnprintable(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
