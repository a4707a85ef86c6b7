// Package channel provides generic channel interfaces for decoupled communication.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	// TrySend delivers without blocking and reports whether it did.
	TrySend(T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// Pipe is a Channel backed by a plain Go channel.
type Pipe[T any] struct {
	ch chan T
}

// New creates a channel holding up to size values. Debug builds ignore size
// and return an unbuffered pipe so that slow consumers show up immediately.
func New[T any](size int) Channel[T] {
	if forceUnbuffered {
		return NewUnbuffered[T]()
	}
	return NewBuffered[T](size)
}

// NewBuffered creates a pipe with the given capacity.
func NewBuffered[T any](size int) *Pipe[T] {
	return &Pipe[T]{ch: make(chan T, size)}
}

// NewUnbuffered creates a pipe whose Send blocks until received.
func NewUnbuffered[T any]() *Pipe[T] {
	return &Pipe[T]{ch: make(chan T)}
}

func (p *Pipe[T]) Send(v T) {
	p.ch <- v
}

func (p *Pipe[T]) TrySend(v T) bool {
	select {
	case p.ch <- v:
		return true
	default:
		return false
	}
}

func (p *Pipe[T]) Receive() <-chan T {
	return p.ch
}

// Len is the number of queued values; always 0 when unbuffered.
func (p *Pipe[T]) Len() int {
	return len(p.ch)
}

// Cap is the buffer capacity.
func (p *Pipe[T]) Cap() int {
	return cap(p.ch)
}

func (p *Pipe[T]) Close() {
	close(p.ch)
}
