package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/glizzus/radio-relay/internal/metrics"
	"github.com/glizzus/radio-relay/internal/presenters"
	"github.com/glizzus/radio-relay/internal/relay"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// Relay is the set of relay operations the dispatcher drives.
type Relay interface {
	Play(ctx context.Context, guildID, userID, streamKey string) (catalog.Stream, error)
	Stop(ctx context.Context, guildID string) bool
	Catalog() *catalog.Catalog
}

var _ Relay = (*relay.Service)(nil)

const DefaultRequestTimeout = 30 * time.Second

type Options struct {
	// RequestTimeout bounds a single play or stop once it has been acknowledged.
	RequestTimeout time.Duration
	// Rate and Burst throttle interactions per guild. A zero Rate disables throttling.
	Rate    rate.Limit
	Burst   int
	Metrics *metrics.Metrics
}

type dispatcher struct {
	relay    Relay
	opts     Options
	limiters *xsync.MapOf[string, *rate.Limiter]
}

// NewInteractionHandler returns the dispatcher for radio interactions.
//
// Play and stop requests are acknowledged with a deferred response right away;
// the deferred response is then edited with the outcome and a fresh control panel.
func NewInteractionHandler(r Relay, opts Options) func(DiscordSession, *discordgo.InteractionCreate) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	d := &dispatcher{
		relay:    r,
		opts:     opts,
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
	}
	return d.handle
}

func (d *dispatcher) handle(s DiscordSession, i *discordgo.InteractionCreate) {
	req := parseRequest(i)
	if req.action == actionNone {
		return
	}

	log := slog.With("interactionID", i.ID, "guildID", i.GuildID, "action", req.action.String())

	if req.action == actionPing {
		if err := s.InteractionRespond(i.Interaction, pingResponse); err != nil {
			log.Error("Failed to respond to ping command", "error", err)
		}
		return
	}

	if i.GuildID == "" {
		d.respond(s, i, log, presenters.Ephemeral(presenters.ErrorMessage(errGuildOnly)))
		return
	}

	if !d.allow(i.GuildID) {
		d.opts.Metrics.Throttled()
		log.Info("interaction throttled")
		d.respond(s, i, log, presenters.Ephemeral(presenters.ThrottledMessage))
		return
	}

	if err := s.InteractionRespond(i.Interaction, presenters.Deferred); err != nil {
		log.Error("Failed to acknowledge interaction", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.RequestTimeout)
	defer cancel()

	var content string
	switch req.action {
	case actionPlay:
		content = d.playAndRender(ctx, i.GuildID, userID(i), req.streamKey)
	case actionStop:
		d.relay.Stop(ctx, i.GuildID)
		content = presenters.StoppedMessage
	}

	edit := presenters.PanelEdit(content, d.relay.Catalog().All())
	if _, err := s.InteractionResponseEdit(i.Interaction, edit); err != nil {
		log.Error("Failed to edit interaction response", "error", err)
	}
}

// playAndRender is the single play path behind both the command and the buttons.
func (d *dispatcher) playAndRender(ctx context.Context, guildID, userID, streamKey string) string {
	stream, err := d.relay.Play(ctx, guildID, userID, streamKey)
	if err != nil {
		return presenters.ErrorMessage(err)
	}
	return presenters.NowPlayingMessage(stream.Label)
}

func (d *dispatcher) respond(s DiscordSession, i *discordgo.InteractionCreate, log *slog.Logger, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		log.Error("Failed to respond to interaction", "error", err)
	}
}

func (d *dispatcher) allow(guildID string) bool {
	if d.opts.Rate <= 0 {
		return true
	}
	limiter, _ := d.limiters.LoadOrCompute(guildID, func() *rate.Limiter {
		return rate.NewLimiter(d.opts.Rate, max(d.opts.Burst, 1))
	})
	return limiter.Allow()
}
