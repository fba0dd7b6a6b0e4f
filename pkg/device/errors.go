package device

import "errors"

// ErrNoDevices is returned by Scan when no tapasco device nodes are found.
var ErrNoDevices = errors.New("no tapasco devices found")

// ErrDeviceClosed reports an operation attempted against a Device that has
// already been closed. Device does not track whether it is closed, and none
// of its methods return this error.
var ErrDeviceClosed = errors.New("device is closed")
