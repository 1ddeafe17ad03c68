package handler

import "github.com/bwmarrin/discordgo"

var pingResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "Pong!",
	},
}
