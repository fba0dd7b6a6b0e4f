// Package pe implements the processing element abstraction: the register
// protocol used to start, monitor and collect results from a single
// hardware accelerator instance mapped into a register window.
package pe

import (
	"fmt"
	"sync"

	"github.com/tapasco-rs/runtime/pkg/debug"
	"github.com/tapasco-rs/runtime/pkg/interrupt"
	"github.com/tapasco-rs/runtime/pkg/memory"
	"github.com/tapasco-rs/runtime/pkg/register"
)

// Register offsets relative to a PE's base address.
const (
	regControl         = 0x00
	regGlobalInterrupt  = 0x04
	regLocalInterrupt   = 0x08
	regInterruptAck     = 0x0c
	regReturn           = 0x10
	regArgBase          = 0x20
	regArgStride        = 0x10
)

const controlStart = uint32(1)
const interruptEnable = uint32(1)
const interruptAck = uint32(1)

// PE is a single processing element instance: a hardware accelerator core
// mapped at a fixed offset into a register window.
type PE struct {
	id          uint32
	typeID      uint32
	base        uint64
	size        uint64
	name        string
	window      register.Window
	interrupt   interrupt.Source
	localMemory *memory.OffchipMemory
	debug       debug.Control

	mu        sync.Mutex
	active    bool
	copyBack  []CopyBack
}

// Config collects everything needed to construct a PE.
type Config struct {
	ID          uint32
	TypeID      uint32
	Base        uint64
	Size        uint64
	Name        string
	Window      register.Window
	Interrupt   interrupt.Source
	LocalMemory *memory.OffchipMemory
	Debug       debug.Control
}

// New builds a PE from cfg. If cfg.Debug is nil, a no-op debug.Control is
// used.
func New(cfg Config) *PE {
	dbg := cfg.Debug
	if dbg == nil {
		dbg = debug.Noop{}
	}
	return &PE{
		id:          cfg.ID,
		typeID:      cfg.TypeID,
		base:        cfg.Base,
		size:        cfg.Size,
		name:        cfg.Name,
		window:      cfg.Window,
		interrupt:   cfg.Interrupt,
		localMemory: cfg.LocalMemory,
		debug:       dbg,
	}
}

// ID returns the PE's scheduler-assigned identity.
func (p *PE) ID() uint32 { return p.id }

// TypeID returns the PE's kernel type identity.
func (p *PE) TypeID() uint32 { return p.typeID }

// Name returns the PE's human-readable name.
func (p *PE) Name() string { return p.name }

// LocalMemory returns the PE's optional local memory allocator, or nil if
// the PE has none.
func (p *PE) LocalMemory() *memory.OffchipMemory { return p.localMemory }

// IsActive reports whether the PE currently has a job in flight.
func (p *PE) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// EnableInterrupt arms both the PE's local and its upstream global interrupt
// line. It must be called before the first Start, and only while the PE is
// idle.
func (p *PE) EnableInterrupt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return &PEAlreadyActiveError{ID: p.id}
	}
	if err := p.window.WriteUint32(p.base+regGlobalInterrupt, interruptEnable); err != nil {
		return fmt.Errorf("pe %d: enable global interrupt: %w", p.id, err)
	}
	if err := p.window.WriteUint32(p.base+regLocalInterrupt, interruptEnable); err != nil {
		return fmt.Errorf("pe %d: enable local interrupt: %w", p.id, err)
	}
	return nil
}

// EnableDebug arms the PE's optional debug core.
func (p *PE) EnableDebug() error {
	if err := p.debug.Enable(); err != nil {
		return &DebugError{ID: p.id, Cause: err}
	}
	return nil
}

// SetArg writes a scalar argument into slot argn.
func (p *PE) SetArg(argn int, param Parameter) error {
	offset := p.base + regArgBase + uint64(argn)*regArgStride
	switch v := param.(type) {
	case Single32:
		return p.window.WriteUint32(offset, uint32(v))
	case Single64:
		return p.window.WriteUint64(offset, uint64(v))
	default:
		return &UnsupportedParameterError{Param: param}
	}
}

// ReadArg reads back an argument slot. width must be 4 or 8.
func (p *PE) ReadArg(argn int, width int) (Parameter, error) {
	offset := p.base + regArgBase + uint64(argn)*regArgStride
	switch width {
	case 4:
		v, err := p.window.ReadUint32(offset)
		if err != nil {
			return nil, err
		}
		return Single32(v), nil
	case 8:
		v, err := p.window.ReadUint64(offset)
		if err != nil {
			return nil, err
		}
		return Single64(v), nil
	default:
		return nil, &UnsupportedRegisterSizeError{Size: width}
	}
}

// ReturnValue reads the 64-bit return value register.
func (p *PE) ReturnValue() (uint64, error) {
	return p.window.ReadUint64(p.base + regReturn)
}

// AddCopyBack queues a deferred action to run once the in-flight job
// completes.
func (p *PE) AddCopyBack(cb CopyBack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.copyBack = append(p.copyBack, cb)
}

func (p *PE) takeCopyBack() []CopyBack {
	p.mu.Lock()
	defer p.mu.Unlock()
	cb := p.copyBack
	p.copyBack = nil
	return cb
}

// Start launches the PE. It fails with PEAlreadyActiveError if a job is
// already running.
func (p *PE) Start() error {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return &PEAlreadyActiveError{ID: p.id}
	}
	p.active = true
	p.mu.Unlock()

	if err := p.window.WriteUint32(p.base+regControl, controlStart); err != nil {
		p.mu.Lock()
		p.active = false
		p.mu.Unlock()
		return fmt.Errorf("pe %d: start: %w", p.id, err)
	}
	return nil
}

// WaitForCompletion blocks until the PE's interrupt fires, then acknowledges
// it. It is a no-op if the PE is not currently active.
func (p *PE) WaitForCompletion() error {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if !active {
		return nil
	}

	if err := p.interrupt.Wait(); err != nil {
		return &ReadCompletionError{ID: p.id, Cause: err}
	}

	p.mu.Lock()
	p.active = false
	p.mu.Unlock()

	return p.resetInterrupt()
}

func (p *PE) resetInterrupt() error {
	return p.window.WriteUint32(p.base+regInterruptAck, interruptAck)
}

// InterruptSet reports whether the PE's interrupt-ack bit is currently set.
func (p *PE) InterruptSet() (bool, error) {
	v, err := p.window.ReadUint32(p.base + regInterruptAck)
	if err != nil {
		return false, err
	}
	return v&1 != 0, nil
}

// InterruptStatus reports the PE's global and local interrupt-enable bits.
func (p *PE) InterruptStatus() (global, local bool, err error) {
	g, err := p.window.ReadUint32(p.base + regGlobalInterrupt)
	if err != nil {
		return false, false, err
	}
	l, err := p.window.ReadUint32(p.base + regLocalInterrupt)
	if err != nil {
		return false, false, err
	}
	return g&1 != 0, l&1 != 0, nil
}

// Release waits for the PE's job to finish, optionally reads the return
// value, and hands back any queued copy-back actions for the caller to
// execute.
func (p *PE) Release(readReturnValue bool) (uint64, []CopyBack, error) {
	if err := p.WaitForCompletion(); err != nil {
		return 0, nil, err
	}

	var rv uint64
	if readReturnValue {
		v, err := p.ReturnValue()
		if err != nil {
			return 0, nil, fmt.Errorf("pe %d: return value: %w", p.id, err)
		}
		rv = v
	}

	return rv, p.takeCopyBack(), nil
}
