package e2e_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/radio-relay/e2e"
	"github.com/glizzus/radio-relay/internal/blocklist"
	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/glizzus/radio-relay/internal/handler"
	"github.com/glizzus/radio-relay/internal/metrics"
	"github.com/glizzus/radio-relay/internal/opus"
	"github.com/glizzus/radio-relay/internal/opus/opustest"
	"github.com/glizzus/radio-relay/internal/player"
	"github.com/glizzus/radio-relay/internal/presenters"
	"github.com/glizzus/radio-relay/internal/relay"
	"github.com/glizzus/radio-relay/internal/voice"
	"github.com/glizzus/radio-relay/internal/voice/voicetest"
	"github.com/google/go-cmp/cmp"
)

type mockSession struct {
	mu        sync.Mutex
	Responses []*discordgo.InteractionResponse
	Edits     []*discordgo.WebhookEdit
}

func (m *mockSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	return nil
}

func (m *mockSession) InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, wh)
	return nil, nil
}

var _ handler.DiscordSession = (*mockSession)(nil)

type voiceChannels map[string]string

func (v voiceChannels) VoiceChannel(guildID, userID string) (string, bool) {
	channelID, ok := v[guildID+"/"+userID]
	return channelID, ok
}

// station hands every started stream to the prober as a scripted resource.
type station struct {
	mu        sync.Mutex
	started   []string
	resources []*opustest.Resource
}

func (s *station) Start(sourceURL string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, sourceURL)
	return io.NopCloser(strings.NewReader(sourceURL)), nil
}

func (s *station) Probe(rc io.ReadCloser) (opus.Resource, error) {
	rc.Close()
	res := opustest.NewResource()
	s.mu.Lock()
	s.resources = append(s.resources, res)
	s.mu.Unlock()
	return res, nil
}

func (s *station) last() *opustest.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources[len(s.resources)-1]
}

type harness struct {
	session   *mockSession
	transport *voicetest.Transport
	station   *station
	blocked   *blocklist.MemoryBlocklist
	catalog   *catalog.Catalog
	dispatch  func(handler.DiscordSession, *discordgo.InteractionCreate)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	repo := e2e.GetRepository(t, e2e.UsePostgres(t))
	e2e.SeedStations(t, repo)

	streams, err := repo.List(t.Context())
	if err != nil {
		t.Fatalf("failed to list stations: %v", err)
	}
	cat, err := catalog.New(streams)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	h := &harness{
		session:   &mockSession{},
		transport: &voicetest.Transport{},
		station:   &station{},
		blocked:   blocklist.NewMemoryBlocklist(),
		catalog:   cat,
	}
	service := relay.NewService(relay.Deps{
		Catalog:     cat,
		Locator:     voiceChannels{"guild-1/user-1": "channel-1"},
		Connections: voice.NewRegistry(h.transport, time.Second),
		Players:     player.NewRegistry(),
		Transcoder:  h.station,
		Probe:       h.station.Probe,
		Blocklist:   h.blocked,
		Metrics:     metrics.New(),
	})
	t.Cleanup(func() { service.Shutdown(context.Background()) })

	h.dispatch = handler.NewInteractionHandler(service, handler.Options{})
	return h
}

func member(userID string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}
}

func radioCommand(guildID, userID, key string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member:  member(userID),
			Data: discordgo.ApplicationCommandInteractionData{
				Name: handler.CommandRadio,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "radio", Type: discordgo.ApplicationCommandOptionString, Value: key},
				},
			},
		},
	}
}

func button(guildID, userID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			GuildID: guildID,
			Member:  member(userID),
			Data: discordgo.MessageComponentInteractionData{
				CustomID:      customID,
				ComponentType: discordgo.ButtonComponent,
			},
		},
	}
}

func (h *harness) lastEdit(t *testing.T) *discordgo.WebhookEdit {
	t.Helper()
	h.session.mu.Lock()
	defer h.session.mu.Unlock()
	if len(h.session.Edits) == 0 {
		t.Fatal("expected the deferred response to be edited")
	}
	return h.session.Edits[len(h.session.Edits)-1]
}

func TestInteractionCreatePing(t *testing.T) {
	h := newHarness(t)

	h.dispatch(h.session, &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: handler.CommandPing},
		},
	})

	want := []*discordgo.InteractionResponse{{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "Pong!"},
	}}
	if diff := cmp.Diff(want, h.session.Responses); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestStoredCatalogDrivesThePanel(t *testing.T) {
	h := newHarness(t)

	want, err := catalog.New(e2e.Stations)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	if diff := cmp.Diff(want.All(), h.catalog.All()); diff != "" {
		t.Errorf("stored catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayThenStop(t *testing.T) {
	h := newHarness(t)

	h.dispatch(h.session, radioCommand("guild-1", "user-1", "alpha"))

	want := presenters.PanelEdit(presenters.NowPlayingMessage("Alpha FM"), h.catalog.All())
	if diff := cmp.Diff(want, h.lastEdit(t)); diff != "" {
		t.Errorf("play edit mismatch (-want +got):\n%s", diff)
	}

	joins := h.transport.Joins()
	if len(joins) != 1 || joins[0].ChannelID() != "channel-1" {
		t.Fatalf("expected one join to channel-1, got %d", len(joins))
	}
	if !h.station.last().Push([]byte{0xf8, 0xff, 0xfe}) {
		t.Fatal("expected the player to read the pushed frame")
	}
	deadline := time.Now().Add(time.Second)
	for len(joins[0].Frames()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("frame never reached the voice connection")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.dispatch(h.session, button("guild-1", "user-1", presenters.ComponentIDStop))

	want = presenters.PanelEdit(presenters.StoppedMessage, h.catalog.All())
	if diff := cmp.Diff(want, h.lastEdit(t)); diff != "" {
		t.Errorf("stop edit mismatch (-want +got):\n%s", diff)
	}
	if !joins[0].Disconnected() {
		t.Error("expected the voice connection to be released")
	}
	if !h.station.last().Closed() {
		t.Error("expected the stream to be closed")
	}
}

func TestBlockedStationStaysOffAir(t *testing.T) {
	h := newHarness(t)
	if err := h.blocked.Block(t.Context(), "beta"); err != nil {
		t.Fatalf("failed to block: %v", err)
	}

	h.dispatch(h.session, button("guild-1", "user-1", presenters.PlayComponentID("beta")))

	err := &relay.StreamBlockedError{Key: "beta", Label: "Beta Radio"}
	want := presenters.PanelEdit(presenters.ErrorMessage(err), h.catalog.All())
	if diff := cmp.Diff(want, h.lastEdit(t)); diff != "" {
		t.Errorf("blocked edit mismatch (-want +got):\n%s", diff)
	}
	if len(h.transport.Joins()) != 0 {
		t.Error("a blocked station must not join voice")
	}
}

func TestUserOutsideVoice(t *testing.T) {
	h := newHarness(t)

	h.dispatch(h.session, radioCommand("guild-1", "user-2", "gamma"))

	err := &relay.NotInVoiceError{GuildID: "guild-1", UserID: "user-2"}
	want := presenters.PanelEdit(presenters.ErrorMessage(err), h.catalog.All())
	if diff := cmp.Diff(want, h.lastEdit(t)); diff != "" {
		t.Errorf("edit mismatch (-want +got):\n%s", diff)
	}
}
