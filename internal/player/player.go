// Package player renders Opus resources into a guild's voice connection.
package player

import (
	"context"
	"log/slog"
	"sync"

	"github.com/glizzus/radio-relay/internal/opus"
)

type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
)

func (s Status) String() string {
	if s == StatusPlaying {
		return "playing"
	}
	return "idle"
}

// Sink is where a player sends audio. *voice.Conn values satisfy it.
type Sink interface {
	opus.Sink
	Speaking(speaking bool) error
}

// Player plays at most one resource at a time for a single guild.
type Player struct {
	guildID string

	mu      sync.Mutex
	sink    Sink
	current *playback
}

type playback struct {
	res     opus.Resource
	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once
}

func newPlayer(guildID string) *Player {
	return &Player{guildID: guildID}
}

func (p *Player) GuildID() string {
	return p.guildID
}

// Subscribe routes the player's output to sink, replacing any previous sink.
func (p *Player) Subscribe(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

// Play replaces whatever is playing with res. The previous resource is
// closed and its pump has exited before res starts playing.
// The player owns res from here on.
func (p *Player) Play(res opus.Resource) {
	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{
		res:    res,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	previous := p.current
	p.current = pb
	p.mu.Unlock()

	if previous != nil {
		p.halt(previous)
	}

	go p.run(ctx, pb)
}

// Stop halts playback immediately and reports whether anything was playing.
func (p *Player) Stop() bool {
	p.mu.Lock()
	pb := p.current
	p.current = nil
	p.mu.Unlock()

	if pb == nil {
		return false
	}
	p.halt(pb)
	return true
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return StatusPlaying
	}
	return StatusIdle
}

func (p *Player) halt(pb *playback) {
	pb.cancel()
	p.close(pb)
	<-pb.done
}

// close releases the resource, which unblocks a pending ReadFrame.
func (p *Player) close(pb *playback) {
	pb.release.Do(func() {
		if err := pb.res.Close(); err != nil {
			slog.Warn("resource closed with error", "guildID", p.guildID, "kind", pb.res.Kind(), "error", err)
		}
	})
}

func (p *Player) run(ctx context.Context, pb *playback) {
	defer close(pb.done)
	defer p.close(pb)

	p.speaking(true)
	defer p.speaking(false)

	err := opus.StreamToVoice(ctx, pb.res, output{p})
	switch {
	case ctx.Err() != nil:
		slog.Debug("playback stopped", "guildID", p.guildID)
	case err != nil:
		slog.Warn("playback failed", "guildID", p.guildID, "error", err)
	default:
		slog.Info("stream ended", "guildID", p.guildID)
	}

	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	p.mu.Unlock()
}

func (p *Player) currentSink() Sink {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink
}

func (p *Player) speaking(speaking bool) {
	sink := p.currentSink()
	if sink == nil {
		return
	}
	if err := sink.Speaking(speaking); err != nil {
		slog.Warn("failed to update speaking state", "guildID", p.guildID, "speaking", speaking, "error", err)
	}
}

// output forwards frames to the sink subscribed at send time.
type output struct {
	p *Player
}

func (o output) SendFrame(ctx context.Context, frame []byte) error {
	sink := o.p.currentSink()
	if sink == nil {
		// Live audio is not buffered for a listener that is not there yet.
		return nil
	}
	return sink.SendFrame(ctx, frame)
}
