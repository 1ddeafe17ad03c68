// Package voicetest provides in-memory voice transports for tests.
package voicetest

import (
	"context"
	"errors"
	"sync"

	"github.com/glizzus/radio-relay/internal/voice"
)

// Conn records everything sent to it.
type Conn struct {
	mu            sync.Mutex
	guildID       string
	channelID     string
	ready         bool
	disconnected  bool
	speaking      []bool
	frames        [][]byte
	DisconnectErr error
	SendErr       error
}

func NewConn(guildID, channelID string, ready bool) *Conn {
	return &Conn{guildID: guildID, channelID: channelID, ready: ready}
}

func (c *Conn) GuildID() string   { return c.guildID }
func (c *Conn) ChannelID() string { return c.channelID }

func (c *Conn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready && !c.disconnected
}

func (c *Conn) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Conn) Speaking(speaking bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = append(c.speaking, speaking)
	return nil
}

func (c *Conn) SendFrame(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	if c.disconnected {
		return voice.ErrSendTimeout
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return c.DisconnectErr
}

func (c *Conn) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

func (c *Conn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

func (c *Conn) SpeakingUpdates() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.speaking...)
}

var _ voice.Conn = (*Conn)(nil)

// Transport hands out Conns and remembers every join.
type Transport struct {
	mu sync.Mutex
	// NotReady makes joined connections never become ready.
	NotReady bool
	// JoinErr fails every join.
	JoinErr error
	joins   []*Conn
}

var ErrJoin = errors.New("voice handshake failed")

func (t *Transport) Join(guildID, channelID string) (voice.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.JoinErr != nil {
		return nil, t.JoinErr
	}
	conn := NewConn(guildID, channelID, !t.NotReady)
	t.joins = append(t.joins, conn)
	return conn, nil
}

// Joins returns the connections created so far, in order.
func (t *Transport) Joins() []*Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Conn(nil), t.joins...)
}

var _ voice.Transport = (*Transport)(nil)
