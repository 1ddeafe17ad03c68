// Package voice owns the per-guild voice connections of the relay.
package voice

import (
	"context"
	"errors"
	"fmt"
)

// ErrSendTimeout is returned when a frame could not be handed to the voice
// transport in time, which in practice means the connection is gone.
var ErrSendTimeout = errors.New("voice connection send timeout")

// Conn is a joined voice channel connection.
type Conn interface {
	GuildID() string
	ChannelID() string
	Ready() bool
	Speaking(speaking bool) error
	SendFrame(ctx context.Context, frame []byte) error
	Disconnect() error
}

// Transport joins voice channels.
// Implementations must join self-deafened, the relay never receives audio.
type Transport interface {
	Join(guildID, channelID string) (Conn, error)
}

// ConnectionError is returned when joining a voice channel fails or the
// connection never becomes ready.
type ConnectionError struct {
	GuildID   string
	ChannelID string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to connect to the voice channel: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

var _ error = (*ConnectionError)(nil)
