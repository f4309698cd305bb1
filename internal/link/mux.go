// Package link carries line-oriented traffic to and from the robot
// controller. A Mux fans the lines read from one Port out to any number
// of subscribers; a Client wraps a Mux with bounded reconnection and a
// request/response helper for the controller protocol.
package link

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
)

var (
	// ErrWriteFailed is returned when a port accepts only part of a line.
	ErrWriteFailed = errors.New("failed to write to link")
	// ErrClosed is returned once the mux or client has been closed.
	ErrClosed = errors.New("link closed")
)

// subscriberBuffer is the per-subscriber backlog before lines are dropped.
const subscriberBuffer = 64

// Mux is a line multiplexer over a single Port.
type Mux[T Port] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// NewMux wraps port. Call Monitor to start reading.
func NewMux[T Port](port T) *Mux[T] {
	return &Mux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a buffered channel that receives every line read
// from the port. A subscriber that falls behind misses lines rather than
// stalling the reader.
func (s *Mux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.isClosing() {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (s *Mux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// SendCommand writes one newline-terminated line to the port.
func (s *Mux[T]) SendCommand(command string) error {
	if s.isClosing() {
		return ErrClosed
	}
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads lines from the port and delivers them to subscribers until
// ctx is cancelled, the port reaches EOF or a read fails.
func (s *Mux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan runs on its own goroutine so the loop below can
	// still observe cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			if s.isClosing() {
				return nil
			}
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *Mux[T]) isClosing() bool {
	s.closingMu.Lock()
	defer s.closingMu.Unlock()
	return s.closing
}

// Close closes all subscriber channels and the port. It is safe to call
// more than once.
func (s *Mux[T]) Close() error {
	s.closingMu.Lock()
	if s.closing {
		s.closingMu.Unlock()
		return nil
	}
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subscriberMu.Unlock()
	return s.port.Close()
}

// AttachAdminRoutes registers the send-command and tail debug pages.
func (s *Mux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, s)
}
