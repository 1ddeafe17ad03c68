package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

const sendTimeout = time.Minute

// DiscordTransport joins voice channels through a discordgo session.
type DiscordTransport struct {
	Session *discordgo.Session
}

func (t DiscordTransport) Join(guildID, channelID string) (Conn, error) {
	vc, err := t.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		// discordgo hands back the half-formed connection on handshake failure.
		if vc != nil {
			if dErr := vc.Disconnect(); dErr != nil {
				slog.Warn("failed to disconnect half-formed voice connection", "guildID", guildID, "error", dErr)
			}
		}
		return nil, err
	}
	return &discordConn{vc: vc}, nil
}

var _ Transport = DiscordTransport{}

type discordConn struct {
	vc *discordgo.VoiceConnection
}

func (c *discordConn) GuildID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.GuildID
}

func (c *discordConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *discordConn) Ready() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

func (c *discordConn) Speaking(speaking bool) error {
	return c.vc.Speaking(speaking)
}

func (c *discordConn) SendFrame(ctx context.Context, frame []byte) error {
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case c.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrSendTimeout
	}
}

func (c *discordConn) Disconnect() error {
	return c.vc.Disconnect()
}
