package cmd

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestELF(t *testing.T) string {
	t.Helper()
	const (
		ehSize = 64
		phSize = 56
	)
	code := []byte{0xb8, 0x01, 0x00, 0x00, 0x00, 0xc3}
	codeOff := uint64(ehSize + phSize)
	entry := uint64(0x401000)

	buf := make([]byte, codeOff+uint64(len(code)))
	le := binary.LittleEndian
	copy(buf, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	le.PutUint16(buf[16:], 2)
	le.PutUint16(buf[18:], 62)
	le.PutUint32(buf[20:], 1)
	le.PutUint64(buf[24:], entry)
	le.PutUint64(buf[32:], ehSize)
	le.PutUint16(buf[52:], ehSize)
	le.PutUint16(buf[54:], phSize)
	le.PutUint16(buf[56:], 1)
	ph := buf[ehSize:]
	le.PutUint32(ph[0:], 1)
	le.PutUint32(ph[4:], 5)
	le.PutUint64(ph[8:], codeOff)
	le.PutUint64(ph[16:], entry)
	le.PutUint64(ph[24:], entry)
	le.PutUint64(ph[32:], uint64(len(code)))
	le.PutUint64(ph[40:], uint64(len(code)))
	le.PutUint64(ph[48:], 0x1000)
	copy(buf[codeOff:], code)

	path := filepath.Join(t.TempDir(), "a.out")
	if err := os.WriteFile(path, buf, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func runToFile(t *testing.T, cmdRun func() error, out string) string {
	t.Helper()
	if err := cmdRun(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestDumpCommand(t *testing.T) {
	in := writeTestELF(t)
	out := filepath.Join(t.TempDir(), "dump.txt")

	got := runToFile(t, func() error {
		return dumpCmd.RunE(dumpCmd, []string{in, out})
	}, out)
	if !strings.Contains(got, "amd64 executable") || !strings.Contains(got, "Entry point: 0x401000") {
		t.Errorf("dump output missing summary:\n%s", got)
	}
}

func TestDisCommand(t *testing.T) {
	in := writeTestELF(t)
	out := filepath.Join(t.TempDir(), "dis.txt")

	got := runToFile(t, func() error {
		return disCmd.RunE(disCmd, []string{in, out})
	}, out)
	if !strings.Contains(got, "ret") {
		t.Errorf("listing missing decoded instruction:\n%s", got)
	}
}

func TestDecompCommand(t *testing.T) {
	in := writeTestELF(t)
	out := filepath.Join(t.TempDir(), "decomp.txt")

	decompLang = "c"
	defer func() { decompLang = "pseudo" }()
	got := runToFile(t, func() error {
		return decompCmd.RunE(decompCmd, []string{in, out})
	}, out)
	if !strings.Contains(got, "void") || !strings.Contains(got, "return;") {
		t.Errorf("decompilation missing C output:\n%s", got)
	}
}

func TestStringsCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "blob.bin")
	out := filepath.Join(dir, "strings.txt")
	if err := os.WriteFile(in, []byte("\x00needle\x01haystack\xff"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := runToFile(t, func() error {
		return stringsCmd.RunE(stringsCmd, []string{in, out})
	}, out)
	for _, want := range []string{"needle", "haystack"} {
		if !strings.Contains(got, want) {
			t.Errorf("strings output missing %q:\n%s", want, got)
		}
	}
}
