// Package debug provides the optional debug-capability hook a processing
// element may expose. Most bitstreams carry no debug core, so the default
// Control implementation is a no-op.
package debug

// Control is the interface a processing element's optional debug core
// implements. Enable arms whatever debug logic the underlying hardware core
// provides (trace buffers, breakpoints); what it does is core-specific and
// opaque to the runtime.
type Control interface {
	Enable() error
}

// Noop is a Control that does nothing. It is the default for processing
// elements whose bitstream carries no debug core.
type Noop struct{}

// Enable implements Control and always succeeds.
func (Noop) Enable() error {
	return nil
}
