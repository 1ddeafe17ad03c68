package relay

import (
	"github.com/bwmarrin/discordgo"
)

// Locator finds the voice channel a guild member is connected to.
type Locator interface {
	VoiceChannel(guildID, userID string) (channelID string, ok bool)
}

// StateLocator reads voice states from the discordgo state cache.
// The session needs the GuildVoiceStates intent for the cache to be populated.
type StateLocator struct {
	State *discordgo.State
}

func (l StateLocator) VoiceChannel(guildID, userID string) (string, bool) {
	if vs, err := l.State.VoiceState(guildID, userID); err == nil && vs.ChannelID != "" {
		return vs.ChannelID, true
	}

	guild, err := l.State.Guild(guildID)
	if err != nil {
		return "", false
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}

var _ Locator = StateLocator{}
