package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	DefaultReadyTimeout = 15 * time.Second
	readyPollInterval   = 100 * time.Millisecond
)

var errNotReady = errors.New("voice connection did not become ready in time")

// Registry holds at most one voice connection per guild.
type Registry struct {
	transport    Transport
	readyTimeout time.Duration
	conns        *xsync.MapOf[string, Conn]
}

func NewRegistry(transport Transport, readyTimeout time.Duration) *Registry {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	return &Registry{
		transport:    transport,
		readyTimeout: readyTimeout,
		conns:        xsync.NewMapOf[string, Conn](),
	}
}

// Connect returns a ready connection for guildID in channelID.
//
// A registered connection that is ready and already in channelID is reused.
// Any other registered connection is destroyed before joining. When the join
// fails or the connection is not ready within the ready timeout, the new
// connection is destroyed and nothing is registered.
func (r *Registry) Connect(ctx context.Context, guildID, channelID string) (Conn, error) {
	if existing, ok := r.conns.Load(guildID); ok {
		if existing.ChannelID() == channelID && existing.Ready() {
			return existing, nil
		}
		slog.Info("replacing voice connection", "guildID", guildID, "from", existing.ChannelID(), "to", channelID)
		r.Disconnect(guildID)
	}

	conn, err := r.transport.Join(guildID, channelID)
	if err != nil {
		return nil, &ConnectionError{
			GuildID:   guildID,
			ChannelID: channelID,
			Err:       fmt.Errorf("failed to join: %w", err),
		}
	}

	if err := r.waitReady(ctx, conn); err != nil {
		destroy(conn)
		return nil, &ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}

	r.conns.Store(guildID, conn)
	slog.Info("voice connection ready", "guildID", guildID, "channelID", channelID)
	return conn, nil
}

func (r *Registry) waitReady(ctx context.Context, conn Conn) error {
	if conn.Ready() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errNotReady
			}
			return ctx.Err()
		case <-ticker.C:
			if conn.Ready() {
				return nil
			}
		}
	}
}

// Disconnect destroys and removes the connection of guildID.
// It reports whether a connection was registered. Destruction errors are only logged.
func (r *Registry) Disconnect(guildID string) bool {
	conn, ok := r.conns.LoadAndDelete(guildID)
	if !ok {
		return false
	}
	destroy(conn)
	return true
}

func (r *Registry) Get(guildID string) (Conn, bool) {
	return r.conns.Load(guildID)
}

func (r *Registry) Len() int {
	return r.conns.Size()
}

// Guilds returns the guilds that currently hold a connection.
func (r *Registry) Guilds() []string {
	guilds := make([]string, 0, r.conns.Size())
	r.conns.Range(func(guildID string, _ Conn) bool {
		guilds = append(guilds, guildID)
		return true
	})
	return guilds
}

func destroy(conn Conn) {
	if err := conn.Disconnect(); err != nil {
		slog.Warn("failed to disconnect voice connection", "guildID", conn.GuildID(), "error", err)
	}
}
