package comm

import (
	"io"
	"sync"
	"time"
)

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// Pool is a communication pool which holds one or more connections to a device
// that will be closed if they are not in use, and re-opened as needed.
// it is concurrent safe.  Pools must be created with NewPool.
type Pool struct {
	maxSize int
	timeout time.Duration // time after all conns are returned to free them
	maker   CreationFunc

	slots chan struct{} // one token per connection that may be leased

	mu      sync.Mutex
	idle    []io.ReadWriteCloser
	onLease int
	timer   *time.Timer
}

// NewPool creates a pool holding at most maxSize connections, which are
// closed once all have been idle for timeout
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		maker:   maker,
		slots:   make(chan struct{}, maxSize),
	}
	for i := 0; i < maxSize; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// Get retrieves a communicator from the pool, blocking until one is
// available if all are in use.  It is guaranteed that there is no contention
// for the ReadWriter.
//
// When done with the communicator, return it with Put(), or discard it with
// Destroy() if it has become no good (e.g., all calls error).
//
// If the error from Get is not nil, you must not return it to the pool.
func (p *Pool) Get() (io.ReadWriter, error) {
	<-p.slots
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.onLease++
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.maker()
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}
	p.mu.Lock()
	p.onLease++
	p.mu.Unlock()
	return c, nil
}

// Put restores a communicator to the pool.  It may be reused, or will be
// automatically freed after all connections are returned and the timeout
// has elapsed.
func (p *Pool) Put(rw io.ReadWriter) {
	p.mu.Lock()
	p.idle = append(p.idle, rw.(io.ReadWriteCloser))
	p.onLease--
	if p.onLease == 0 {
		p.startReclaim()
	}
	p.mu.Unlock()
	p.slots <- struct{}{}
}

// Destroy immediately frees a communicator from the pool.  This should be used
// instead of Put if the communicator has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	if c, ok := rw.(io.Closer); ok {
		c.Close()
	}
	p.mu.Lock()
	p.onLease--
	p.mu.Unlock()
	p.slots <- struct{}{}
}

// ReturnWithError puts rw back into the pool if err is nil, and destroys it
// otherwise.  Use it in a deferred closure over the transport error.
func (p *Pool) ReturnWithError(rw io.ReadWriter, err error) {
	if err != nil {
		p.Destroy(rw)
		return
	}
	p.Put(rw)
}

// Size returns the number of connections in the pool, or given out from it
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle) + p.onLease
}

// Active returns the number of connections owned by the pool that are currently
// given out
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onLease
}

// Close frees every idle connection.  Leased connections are unaffected.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return p.closeIdle()
}

// startReclaim arms the timer that frees idle connections; p.mu must be held
func (p *Pool) startReclaim() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.timeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.onLease == 0 {
			p.closeIdle()
		}
		p.timer = nil
	})
}

func (p *Pool) closeIdle() error {
	var first error
	for _, c := range p.idle {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.idle = nil
	return first
}
