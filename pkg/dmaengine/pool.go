package dmaengine

import "github.com/tapasco-rs/runtime/pkg/driver"

// pool is a fixed-size set of bounce buffers for one transfer direction,
// generalized from the buffered-channel pool idiom: a channel of capacity N
// pre-loaded with N buffers acts as a bounded, blocking free list with no
// extra locking.
type pool struct {
	dev     *driver.DeviceFile
	buffers chan *buffer
	all     []*buffer
}

func newPool(dev *driver.DeviceFile, bufSize uint64, count int, fromDevice bool) (*pool, error) {
	p := &pool{dev: dev, buffers: make(chan *buffer, count)}
	for i := 0; i < count; i++ {
		buf, err := newBuffer(dev, bufSize, fromDevice)
		if err != nil {
			p.close()
			return nil, err
		}
		p.all = append(p.all, buf)
		p.buffers <- buf
	}
	return p, nil
}

// get blocks until a buffer is available.
func (p *pool) get() *buffer {
	return <-p.buffers
}

// put returns a buffer to the pool.
func (p *pool) put(b *buffer) {
	p.buffers <- b
}

func (p *pool) close() error {
	var firstErr error
	for _, b := range p.all {
		if err := b.release(p.dev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
