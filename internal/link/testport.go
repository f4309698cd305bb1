package link

import (
	"bytes"
	"errors"
	"sync"
)

var errPortClosed = errors.New("port closed")

// TestablePort is an in-memory Port with injectable failures, used by
// tests across packages in place of a serial device or socket.
type TestablePort struct {
	mu sync.Mutex

	readBuf  bytes.Buffer
	writeBuf bytes.Buffer
	readCond *sync.Cond

	// WriteError is returned by the next Write call if set.
	WriteError error
	// ShortWrite makes the next Write report one byte fewer than asked.
	ShortWrite bool
	// OnWrite, when set, is called after every successful Write with the
	// bytes written. It runs without the port lock held, so it may call
	// AddReadData to script a reply.
	OnWrite func(p []byte)

	closed     bool
	writeCalls int
}

// NewTestablePort returns an open port with empty buffers. Reads block
// until data is added or the port is closed.
func NewTestablePort() *TestablePort {
	p := &TestablePort{}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.readBuf.Len() == 0 {
		p.readCond.Wait()
	}
	if p.closed {
		return 0, errPortClosed
	}
	return p.readBuf.Read(b)
}

func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.writeCalls++
	if p.closed {
		p.mu.Unlock()
		return 0, errPortClosed
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		p.mu.Unlock()
		return 0, err
	}
	n := len(b)
	if p.ShortWrite {
		p.ShortWrite = false
		n--
	}
	p.writeBuf.Write(b[:n])
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		hook(append([]byte(nil), b[:n]...))
	}
	return n, nil
}

// Close marks the port closed and wakes blocked readers.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.readCond.Broadcast()
	return nil
}

// AddReadData queues bytes for subsequent reads.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf.Write(data)
	p.readCond.Broadcast()
}

// Written returns everything written so far.
func (p *TestablePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeBuf.String()
}

// WriteCalls returns the number of Write calls, failed ones included.
func (p *TestablePort) WriteCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeCalls
}

// IsClosed reports whether Close has been called.
func (p *TestablePort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
