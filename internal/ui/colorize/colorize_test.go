package colorize

import (
	"testing"

	"github.com/alecthomas/chroma/v2/styles"
)

func TestListingStyleRegistered(t *testing.T) {
	if ListingDark == nil {
		t.Fatal("listing style failed to build")
	}
	if styles.Get("baretk-dark").Name != "baretk-dark" {
		t.Error("baretk-dark is not registered with chroma")
	}
	if got := disasmStyle(); got.Name != "baretk-dark" {
		t.Errorf("disasmStyle() picked %q, want baretk-dark", got.Name)
	}
}

func TestDisabledSkipsHighlighting(t *testing.T) {
	t.Setenv("BARETK_NO_COLOR", "1")
	const code = "mov eax, 0x1\nret\n"
	if got := Listing(code, "amd64"); got != code {
		t.Errorf("Listing() altered text with colors disabled:\n%q", got)
	}
	if got := Source(code); got != code {
		t.Errorf("Source() altered text with colors disabled:\n%q", got)
	}
}

func TestListingHighlights(t *testing.T) {
	t.Setenv("BARETK_NO_COLOR", "")
	const code = "mov eax, 0x1\n"
	if got := Listing(code, "amd64"); got == "" {
		t.Error("Listing() returned empty output")
	}
}
