package presenters

import (
	"cmp"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/radio-relay/internal/catalog"
)

const (
	ComponentIDPlay = "radio_play"
	ComponentIDStop = "radio_stop"

	// Discord allows 5 action rows of 5 buttons; the last row holds Stop.
	maxButtonsPerRow = 5
	maxStationRows   = 4
)

const StoppedMessage = "⏹️ Radio stopped."

const ThrottledMessage = "⏳ Slow down, try again in a moment."

func NowPlayingMessage(label string) string {
	return "▶️ Now playing **" + label + "**"
}

func ErrorMessage(err error) string {
	return "❌ " + err.Error()
}

// PlayComponentID is the custom id of the button that plays streamKey.
func PlayComponentID(streamKey string) string {
	return ComponentIDPlay + ":" + streamKey
}

var buttonStyles = map[string]discordgo.ButtonStyle{
	catalog.StylePrimary:   discordgo.PrimaryButton,
	catalog.StyleSecondary: discordgo.SecondaryButton,
	catalog.StyleSuccess:   discordgo.SuccessButton,
	catalog.StyleDanger:    discordgo.DangerButton,
}

func streamButton(s catalog.Stream) discordgo.Button {
	style, ok := buttonStyles[s.Style]
	if !ok {
		style = discordgo.PrimaryButton
	}

	button := discordgo.Button{
		Label:    s.Label,
		Style:    style,
		CustomID: PlayComponentID(s.Key),
	}
	if s.Emoji != "" {
		button.Emoji = &discordgo.ComponentEmoji{Name: s.Emoji}
	}
	return button
}

var stopRow = discordgo.ActionsRow{
	Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Stop",
			Style:    discordgo.SecondaryButton,
			CustomID: ComponentIDStop,
			Emoji:    &discordgo.ComponentEmoji{Name: "🟥"},
		},
	},
}

// ControlPanel lays out one button per stream, grouped by the stream's row,
// followed by a row with the Stop button. Rows that don't fit are dropped.
func ControlPanel(streams []catalog.Stream) []discordgo.MessageComponent {
	ordered := slices.Clone(streams)
	slices.SortStableFunc(ordered, func(a, b catalog.Stream) int {
		return cmp.Compare(a.Row, b.Row)
	})

	var rows []discordgo.MessageComponent
	var current []discordgo.MessageComponent
	currentRow := -1

	flush := func() {
		if len(current) > 0 {
			rows = append(rows, discordgo.ActionsRow{Components: current})
			current = nil
		}
	}

	for _, s := range ordered {
		if s.Row != currentRow || len(current) == maxButtonsPerRow {
			flush()
			currentRow = s.Row
		}
		current = append(current, streamButton(s))
	}
	flush()

	if len(rows) > maxStationRows {
		rows = rows[:maxStationRows]
	}
	return append(rows, stopRow)
}

// PanelEdit replaces a deferred response with content and the control panel.
func PanelEdit(content string, streams []catalog.Stream) *discordgo.WebhookEdit {
	components := ControlPanel(streams)
	return &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	}
}

// Deferred acknowledges an interaction whose reply follows later.
var Deferred = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
}

// Ephemeral is an immediate reply only the invoking user sees.
func Ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
