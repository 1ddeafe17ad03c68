// Package opustest provides controllable Opus resources for tests.
package opustest

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/glizzus/radio-relay/internal/opus"
)

var ErrClosed = errors.New("read from closed resource")

// Resource yields the frames pushed into it until End or Close.
type Resource struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
	closes atomic.Int32
}

func NewResource() *Resource {
	return &Resource{
		frames: make(chan []byte),
		closed: make(chan struct{}),
	}
}

// Push blocks until the frame is read or the resource is closed.
func (r *Resource) Push(frame []byte) bool {
	select {
	case r.frames <- frame:
		return true
	case <-r.closed:
		return false
	}
}

// End makes the resource report io.EOF once pushed frames are consumed.
func (r *Resource) End() {
	close(r.frames)
}

func (r *Resource) Kind() opus.Kind {
	return opus.KindOggOpus
}

func (r *Resource) ReadFrame() ([]byte, error) {
	select {
	case frame, ok := <-r.frames:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-r.closed:
		return nil, ErrClosed
	}
}

func (r *Resource) Close() error {
	r.closes.Add(1)
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *Resource) Closed() bool {
	return r.closes.Load() > 0
}

// Closes counts Close calls.
func (r *Resource) Closes() int {
	return int(r.closes.Load())
}

var _ opus.Resource = (*Resource)(nil)
