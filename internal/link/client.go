package link

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/banshee-data/gridbot/internal/monitoring"
)

// ErrLinkDown is returned when the retry policy is exhausted without
// re-establishing the link.
var ErrLinkDown = errors.New("controller link down")

// RetryPolicy bounds reconnection attempts.
type RetryPolicy struct {
	MaxAttempts     uint          `json:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
}

// DefaultRetryPolicy gives up after five attempts spread over a few seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second}
}

func (p RetryPolicy) options() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			monitoring.Logf("link: attempt failed, retrying in %v: %v", wait, err)
		}),
	}
}

// lineBuffer is the backlog of unread controller lines.
const lineBuffer = 256

// Client owns the controller connection. It opens the port lazily,
// reconnects with exponential backoff after a failed write or a dropped
// read loop, and exposes received lines in arrival order.
type Client struct {
	open  Opener
	retry RetryPolicy

	mu     sync.Mutex
	mux    *Mux[Port]
	stop   context.CancelFunc
	closed bool

	lines chan string

	subMu       sync.Mutex
	subscribers map[string]chan string
}

// NewClient returns an unconnected client.
func NewClient(open Opener, retry RetryPolicy) *Client {
	return &Client{
		open:        open,
		retry:       retry,
		lines:       make(chan string, lineBuffer),
		subscribers: make(map[string]chan string),
	}
}

// Connect opens the link, retrying per the policy.
func (c *Client) Connect(ctx context.Context) error {
	_, err := backoff.Retry(ctx, func() (*Mux[Port], error) {
		return c.current(ctx)
	}, c.retry.options()...)
	if err != nil {
		return c.failure(err)
	}
	return nil
}

// Connected reports whether a live port is attached.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mux != nil
}

// Send writes one line, reconnecting and resending on failure until the
// retry policy is exhausted.
func (c *Client) Send(ctx context.Context, line string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		m, err := c.current(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if err := m.SendCommand(line); err != nil {
			monitoring.Logf("link: send %q failed: %v", line, err)
			c.drop(m)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, c.retry.options()...)
	if err != nil {
		return c.failure(err)
	}
	return nil
}

// SendCommand is Send without a deadline, for the admin pages.
func (c *Client) SendCommand(line string) error {
	return c.Send(context.Background(), line)
}

func (c *Client) failure(err error) error {
	if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLinkDown, err)
}

// Next blocks until a line satisfying accept arrives or ctx ends. Lines
// that are not accepted are discarded.
func (c *Client) Next(ctx context.Context, accept func(string) bool) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line := <-c.lines:
			if accept == nil || accept(line) {
				return line, nil
			}
			monitoring.Logf("link: ignoring line %q", line)
		}
	}
}

// Drain discards any lines received but not yet read.
func (c *Client) Drain() int {
	n := 0
	for {
		select {
		case <-c.lines:
			n++
		default:
			return n
		}
	}
}

// Subscribe returns a channel that sees every received line, independent
// of Next.
func (c *Client) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (c *Client) Unsubscribe(id string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if ch, ok := c.subscribers[id]; ok {
		close(ch)
		delete(c.subscribers, id)
	}
}

// AttachAdminRoutes registers the send-command and tail debug pages.
func (c *Client) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, c)
}

// Close drops the connection. Further sends fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	m, stop := c.mux, c.stop
	c.mux, c.stop = nil, nil
	c.mu.Unlock()

	c.subMu.Lock()
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
	c.subMu.Unlock()

	if stop != nil {
		stop()
	}
	if m != nil {
		return m.Close()
	}
	return nil
}

// current returns the live mux, opening one if needed.
func (c *Client) current(ctx context.Context) (*Mux[Port], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, backoff.Permanent(ErrClosed)
	}
	if c.mux != nil {
		return c.mux, nil
	}

	port, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	m := NewMux[Port](port)
	monCtx, stop := context.WithCancel(context.Background())
	c.mux, c.stop = m, stop

	_, ch := m.Subscribe()
	go c.forward(ch)
	go func() {
		if err := m.Monitor(monCtx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("link: read loop ended: %v", err)
		}
		c.drop(m)
	}()
	monitoring.Logf("link: connected")
	return m, nil
}

// forward copies mux lines into the client backlog and subscriber set.
func (c *Client) forward(ch <-chan string) {
	for line := range ch {
		select {
		case c.lines <- line:
		default:
			monitoring.Logf("link: backlog full, dropping %q", line)
		}
		c.subMu.Lock()
		for _, sub := range c.subscribers {
			select {
			case sub <- line:
			default:
			}
		}
		c.subMu.Unlock()
	}
}

// drop discards m if it is still the live mux.
func (c *Client) drop(m *Mux[Port]) {
	c.mu.Lock()
	if c.mux != m {
		c.mu.Unlock()
		return
	}
	stop := c.stop
	c.mux, c.stop = nil, nil
	c.mu.Unlock()

	stop()
	m.Close()
}
