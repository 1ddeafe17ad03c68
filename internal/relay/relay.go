// Package relay ties the catalog, voice connections, players and the
// transcoder together into per-guild play and stop operations.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/glizzus/radio-relay/internal/blocklist"
	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/glizzus/radio-relay/internal/generator"
	"github.com/glizzus/radio-relay/internal/metrics"
	"github.com/glizzus/radio-relay/internal/opus"
	"github.com/glizzus/radio-relay/internal/player"
	"github.com/glizzus/radio-relay/internal/transcode"
	"github.com/glizzus/radio-relay/internal/voice"
	"github.com/puzpuzpuz/xsync/v3"
)

// Transcoder starts converting a source URL into a framed Opus byte stream.
// Closing the returned stream must terminate the conversion.
type Transcoder interface {
	Start(sourceURL string) (io.ReadCloser, error)
}

// PipeTranscoder runs an external transcoder process per stream.
type PipeTranscoder struct {
	Runner *transcode.Runner
}

func (t PipeTranscoder) Start(sourceURL string) (io.ReadCloser, error) {
	pipe, err := t.Runner.Start(sourceURL)
	if err != nil {
		return nil, err
	}
	return pipe, nil
}

// ProbeFunc classifies a byte stream into a playable resource.
type ProbeFunc func(io.ReadCloser) (opus.Resource, error)

type Deps struct {
	Catalog     *catalog.Catalog
	Locator     Locator
	Connections *voice.Registry
	Players     *player.Registry
	Transcoder  Transcoder
	// Probe defaults to opus.Probe.
	Probe ProbeFunc
	// Blocklist is optional.
	Blocklist blocklist.Checker
	// IDs defaults to UUIDv4 job ids.
	IDs     generator.Generator[string]
	Metrics *metrics.Metrics
}

type Service struct {
	deps  Deps
	locks *xsync.MapOf[string, *sync.Mutex]
}

func NewService(deps Deps) *Service {
	if deps.Probe == nil {
		deps.Probe = opus.Probe
	}
	if deps.IDs == nil {
		deps.IDs = &generator.UUIDV4Generator{}
	}
	return &Service{
		deps:  deps,
		locks: xsync.NewMapOf[string, *sync.Mutex](),
	}
}

// Catalog returns the stations the service can play.
func (s *Service) Catalog() *catalog.Catalog {
	return s.deps.Catalog
}

// Play tunes guildID to the station streamKey, in the voice channel userID is in.
//
// Validation failures have no side effects. Once the voice connection is up,
// a failure to start the stream leaves the current station, if any, playing.
// Requests for one guild are serialized.
func (s *Service) Play(ctx context.Context, guildID, userID, streamKey string) (catalog.Stream, error) {
	log := slog.With("jobID", s.jobID(), "guildID", guildID, "userID", userID, "streamKey", streamKey)

	stream, err := s.play(ctx, log, guildID, userID, streamKey)
	if err != nil {
		reason := FailureReason(err)
		s.deps.Metrics.PlayFailed(reason)
		log.Warn("play request failed", "reason", reason, "error", err)
		return catalog.Stream{}, err
	}

	s.deps.Metrics.PlayStarted()
	log.Info("now playing", "label", stream.Label)
	return stream, nil
}

func (s *Service) play(ctx context.Context, log *slog.Logger, guildID, userID, streamKey string) (catalog.Stream, error) {
	stream, ok := s.deps.Catalog.Lookup(streamKey)
	if !ok {
		return catalog.Stream{}, &UnknownStreamError{Key: streamKey}
	}

	if s.isBlocked(ctx, log, streamKey) {
		return catalog.Stream{}, &StreamBlockedError{Key: stream.Key, Label: stream.Label}
	}

	channelID, ok := s.deps.Locator.VoiceChannel(guildID, userID)
	if !ok {
		return catalog.Stream{}, &NotInVoiceError{GuildID: guildID, UserID: userID}
	}

	unlock := s.lock(guildID)
	defer unlock()

	conn, err := s.deps.Connections.Connect(ctx, guildID, channelID)
	if err != nil {
		s.stopOrphanedPlayer(log, guildID)
		return catalog.Stream{}, err
	}
	log.Debug("voice connection established", "channelID", channelID)

	p := s.deps.Players.Ensure(guildID)
	p.Subscribe(conn)

	res, err := s.openResource(ctx, log, stream)
	if err != nil {
		if p.Status() == player.StatusIdle {
			// Nothing to listen to, don't keep the bot sitting in the channel.
			s.deps.Connections.Disconnect(guildID)
		}
		return catalog.Stream{}, err
	}

	p.Play(res)
	return stream, nil
}

func (s *Service) openResource(ctx context.Context, log *slog.Logger, stream catalog.Stream) (opus.Resource, error) {
	rc, err := s.deps.Transcoder.Start(stream.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTranscoderStart, err)
	}
	if pipe, ok := rc.(*transcode.Pipe); ok {
		log = log.With("pid", pipe.PID())
	}

	// A source that never sends a byte would block the probe forever.
	// Closing rc when ctx ends unblocks it.
	release := context.AfterFunc(ctx, func() { rc.Close() })

	// Probe closes rc itself when it fails.
	res, err := s.deps.Probe(rc)
	if !release() {
		if err == nil {
			res.Close()
		}
		log.Warn("no audio received before the request ended", "error", ctx.Err())
		return nil, &opus.ProbeError{Reason: "no audio received in time", Err: ctx.Err()}
	}
	if err != nil {
		if pipe, ok := rc.(*transcode.Pipe); ok {
			log.Warn("transcoder output could not be probed", "stderr", pipe.Stderr())
		}
		return nil, err
	}

	log.Debug("stream probed", "kind", res.Kind())
	return res, nil
}

// stopOrphanedPlayer stops the guild's player once a failed connect has left
// the guild without a voice connection, so nothing keeps transcoding into a
// destroyed connection.
func (s *Service) stopOrphanedPlayer(log *slog.Logger, guildID string) {
	if _, ok := s.deps.Connections.Get(guildID); ok {
		return
	}
	p, ok := s.deps.Players.Get(guildID)
	if !ok {
		return
	}
	if p.Stop() {
		log.Info("stopped playback after losing the voice connection")
	}
}

func (s *Service) isBlocked(ctx context.Context, log *slog.Logger, streamKey string) bool {
	if s.deps.Blocklist == nil {
		return false
	}
	blocked, err := s.deps.Blocklist.IsBlocked(ctx, streamKey)
	if err != nil {
		log.Error("failed to check blocklist, allowing stream", "error", err)
		return false
	}
	return blocked
}

// Stop halts the guild's player and leaves its voice channel.
// It reports whether there was anything to stop.
func (s *Service) Stop(ctx context.Context, guildID string) bool {
	unlock := s.lock(guildID)
	defer unlock()

	stopped := false
	if p, ok := s.deps.Players.Get(guildID); ok {
		stopped = p.Stop()
	}
	disconnected := s.deps.Connections.Disconnect(guildID)

	s.deps.Metrics.Stopped()
	slog.InfoContext(ctx, "radio stopped", "guildID", guildID, "wasPlaying", stopped, "wasConnected", disconnected)
	return stopped || disconnected
}

// Shutdown stops every player and leaves every voice channel.
func (s *Service) Shutdown(ctx context.Context) {
	stopped := s.deps.Players.StopAll()
	guilds := s.deps.Connections.Guilds()
	for _, guildID := range guilds {
		s.deps.Connections.Disconnect(guildID)
	}
	slog.InfoContext(ctx, "relay shut down", "stoppedPlayers", stopped, "closedConnections", len(guilds))
}

// Active reports how many guilds hold a connection and how many are playing.
func (s *Service) Active() (connections, playing int) {
	return s.deps.Connections.Len(), s.deps.Players.Playing()
}

func (s *Service) lock(guildID string) func() {
	mu, _ := s.locks.LoadOrCompute(guildID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

func (s *Service) jobID() string {
	id, err := s.deps.IDs.Next()
	if err != nil {
		slog.Warn("failed to generate job id", "error", err)
		return "unknown"
	}
	return id
}
