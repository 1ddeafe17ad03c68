package handler

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/radio-relay/internal/presenters"
)

type action int

const (
	actionNone action = iota
	actionPing
	actionPlay
	actionStop
)

func (a action) String() string {
	switch a {
	case actionPing:
		return "ping"
	case actionPlay:
		return "play"
	case actionStop:
		return "stop"
	default:
		return "none"
	}
}

type request struct {
	action    action
	streamKey string
}

// SplitCustomID splits a "prefix:value" component id.
// Ids without a value return an empty value.
func SplitCustomID(customID string) (prefix, value string) {
	prefix, value, _ = strings.Cut(customID, ":")
	return prefix, value
}

// parseRequest maps the slash command and the panel buttons onto requests.
// Interactions the relay does not handle return actionNone.
func parseRequest(i *discordgo.InteractionCreate) request {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case CommandPing:
			return request{action: actionPing}
		case CommandRadio:
			var key string
			for _, option := range data.Options {
				if option.Name == optionRadio && option.Type == discordgo.ApplicationCommandOptionString {
					key = option.StringValue()
				}
			}
			return request{action: actionPlay, streamKey: key}
		}
	case discordgo.InteractionMessageComponent:
		prefix, value := SplitCustomID(i.MessageComponentData().CustomID)
		switch prefix {
		case presenters.ComponentIDPlay:
			return request{action: actionPlay, streamKey: value}
		case presenters.ComponentIDStop:
			return request{action: actionStop}
		}
	}
	return request{action: actionNone}
}

func userID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
