package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/radio-relay/internal/catalog"
)

const (
	CommandRadio = "radio"
	CommandPing  = "ping"

	optionRadio = "radio"

	// Discord rejects string options with more choices than this.
	maxChoices = 25
)

// Commands is a list of all the commands the bot can handle.
// The radio choices come from the catalog.
func Commands(streams []catalog.Stream) []*discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(streams), maxChoices))
	for _, s := range streams {
		if len(choices) == maxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  s.Label,
			Value: s.Key,
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandRadio,
			Description: "Play a live radio station in your voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        optionRadio,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The station to play",
					Required:    true,
					Choices:     choices,
				},
			},
		},
		{
			Name:        CommandPing,
			Description: "Check that the bot is alive",
		},
	}
}

// CommandRegistrar is the part of *discordgo.Session used to register commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// EstablishCommands replaces the application's commands in guildID,
// or globally when guildID is empty.
func EstablishCommands(s CommandRegistrar, appID, guildID string, commands []*discordgo.ApplicationCommand) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
