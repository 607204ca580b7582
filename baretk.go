// Package baretk is a binary-analysis toolkit: it loads executable images,
// disassembles them, recovers per-function control flow and lifts the result
// into structured pseudo-source.
//
// The three artifact types form a strict ownership chain. A Disassembly owns
// the Program it was built from, a Decompilation owns its Disassembly.
// Disassemble and Decompile are moves: on success the source handle is
// consumed and every later operation on it returns ErrInvalidHandle; on
// failure the source stays valid. Free releases a handle and everything it
// still owns, and is safe to call twice or on nil. Accessors prefixed Source
// return borrowed views that stay owned by their parent.
package baretk

import (
	"errors"
	"sync"

	"github.com/MatthewObi/baretk/internal/dis"
	"github.com/MatthewObi/baretk/internal/image"
	"github.com/MatthewObi/baretk/internal/lift"
	"github.com/MatthewObi/baretk/internal/loader"
)

// ErrInvalidHandle reports an operation on a handle that was already
// consumed by an ownership transfer or released by Free.
var ErrInvalidHandle = errors.New("baretk: use of consumed or freed handle")

// Re-exported language tags for Decompile.
const (
	LangPseudo = lift.LangPseudo
	LangC      = lift.LangC
)

// handleState tracks the linear-ownership lifecycle shared by all handles.
type handleState struct {
	mu   sync.Mutex
	dead bool
}

// take marks the handle consumed. It fails if the handle is already dead.
func (h *handleState) take() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dead {
		return ErrInvalidHandle
	}
	h.dead = true
	return nil
}

// release is take for Free: idempotent, reports whether this call won.
func (h *handleState) release() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dead {
		return false
	}
	h.dead = true
	return true
}

func (h *handleState) check() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dead {
		return ErrInvalidHandle
	}
	return nil
}

// Program is a loaded binary image.
type Program struct {
	handleState
	im *image.Image
}

// Disassembly holds the decoded instruction streams of a program.
type Disassembly struct {
	handleState
	d *dis.Disassembly
}

// Decompilation holds the lifted functions of a disassembly.
type Decompilation struct {
	handleState
	dec *lift.Decompilation
}

// Load reads and parses the binary at path.
func Load(path string) (*Program, error) {
	return LoadWithMachine(path, "")
}

// LoadWithMachine is Load with an architecture hint for raw images that
// carry no container metadata.
func LoadWithMachine(path, machineHint string) (*Program, error) {
	im, err := loader.Load(path, machineHint)
	if err != nil {
		return nil, err
	}
	return &Program{im: im}, nil
}

// Clone returns an independent deep copy of the program. Freeing or
// consuming either copy never affects the other.
func (p *Program) Clone() (*Program, error) {
	if p == nil {
		return nil, ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return &Program{im: p.im.Clone()}, nil
}

// Endianness returns the program's byte order.
func (p *Program) Endianness() (image.Endianness, error) {
	if p == nil {
		return 0, ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.im.ByteOrder, nil
}

// MachineType returns the machine identifier string.
func (p *Program) MachineType() (string, error) {
	if p == nil {
		return "", ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return "", err
	}
	return p.im.Machine, nil
}

// Segments returns the ordered segment table.
func (p *Program) Segments() ([]image.Segment, error) {
	if p == nil {
		return nil, ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.im.Segments, nil
}

// Section looks up a section by name.
func (p *Program) Section(name string) (*image.Section, error) {
	if p == nil {
		return nil, ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	s, ok := p.im.Section(name)
	if !ok {
		return nil, nil
	}
	return s, nil
}

// Image returns the underlying image as a borrowed view.
func (p *Program) Image() (*image.Image, error) {
	if p == nil {
		return nil, ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.im, nil
}

// Disassemble decodes every executable segment of p. On success p is
// consumed; on failure p remains valid and usable.
func Disassemble(p *Program) (*Disassembly, error) {
	if p == nil {
		return nil, ErrInvalidHandle
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	d, err := dis.Disassemble(p.im)
	if err != nil {
		return nil, err
	}
	// The transfer commits only after the engine succeeded.
	if err := p.take(); err != nil {
		return nil, err
	}
	return &Disassembly{d: d}, nil
}

// SourceImage returns the image the disassembly was built from,
// as a borrowed view owned by the disassembly.
func (d *Disassembly) SourceImage() (*image.Image, error) {
	if d == nil {
		return nil, ErrInvalidHandle
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.d.Image(), nil
}

// Listing returns the disassembly's inner representation as a borrowed view.
func (d *Disassembly) Listing() (*dis.Disassembly, error) {
	if d == nil {
		return nil, ErrInvalidHandle
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.d, nil
}

// Decompile lifts every function of d into structured pseudo-source in the
// given language. On success d is consumed; on failure d remains valid.
func Decompile(d *Disassembly, lang lift.Language) (*Decompilation, error) {
	if d == nil {
		return nil, ErrInvalidHandle
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	dec, err := lift.Decompile(d.d, lang)
	if err != nil {
		return nil, err
	}
	if err := d.take(); err != nil {
		return nil, err
	}
	return &Decompilation{dec: dec}, nil
}

// SourceDisassembly returns the disassembly the decompilation was lifted
// from, as a borrowed view owned by the decompilation.
func (dc *Decompilation) SourceDisassembly() (*dis.Disassembly, error) {
	if dc == nil {
		return nil, ErrInvalidHandle
	}
	if err := dc.check(); err != nil {
		return nil, err
	}
	return dc.dec.Source(), nil
}

// Result returns the lifted functions as a borrowed view.
func (dc *Decompilation) Result() (*lift.Decompilation, error) {
	if dc == nil {
		return nil, ErrInvalidHandle
	}
	if err := dc.check(); err != nil {
		return nil, err
	}
	return dc.dec, nil
}

// LoadAndDisassemble composes Load and Disassemble without exposing the
// intermediate program handle.
func LoadAndDisassemble(path, machineHint string) (*Disassembly, error) {
	p, err := LoadWithMachine(path, machineHint)
	if err != nil {
		return nil, err
	}
	d, err := Disassemble(p)
	if err != nil {
		p.Free()
		return nil, err
	}
	return d, nil
}

// LoadAndDecompile composes Load, Disassemble and Decompile.
func LoadAndDecompile(path, machineHint string, lang lift.Language) (*Decompilation, error) {
	d, err := LoadAndDisassemble(path, machineHint)
	if err != nil {
		return nil, err
	}
	dec, err := Decompile(d, lang)
	if err != nil {
		d.Free()
		return nil, err
	}
	return dec, nil
}

// Free releases the program. Freeing nil or an already-freed handle is a
// no-op.
func (p *Program) Free() {
	if p == nil {
		return
	}
	if p.release() {
		p.im = nil
	}
}

// Free releases the disassembly and the image it owns.
func (d *Disassembly) Free() {
	if d == nil {
		return
	}
	if d.release() {
		d.d = nil
	}
}

// Free releases the decompilation, its disassembly and image.
func (dc *Decompilation) Free() {
	if dc == nil {
		return
	}
	if dc.release() {
		dc.dec = nil
	}
}
