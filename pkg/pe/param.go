package pe

import "fmt"

// Parameter is the sealed set of argument kinds a processing element slot
// accepts. PEs only understand fixed-width scalars written straight into a
// register slot; anything else (pointers, structs, variable-length data) has
// to be staged through device memory by the caller first and passed here as
// the resulting device address.
type Parameter interface {
	isParameter()
}

// Single32 is a 32-bit scalar argument.
type Single32 uint32

func (Single32) isParameter() {}

// Single64 is a 64-bit scalar argument, including device addresses.
type Single64 uint64

func (Single64) isParameter() {}

// UnsupportedParameterError is returned when SetArg is given a Parameter
// this runtime cannot place into a register slot.
type UnsupportedParameterError struct {
	Param Parameter
}

func (e *UnsupportedParameterError) Error() string {
	return fmt.Sprintf("unsupported parameter: %#v", e.Param)
}

// UnsupportedRegisterSizeError is returned when ReadArg is asked for a width
// other than 4 or 8 bytes.
type UnsupportedRegisterSizeError struct {
	Size int
}

func (e *UnsupportedRegisterSizeError) Error() string {
	return fmt.Sprintf("unsupported register size: %d bytes", e.Size)
}
