package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// RelayConfig holds the knobs of the audio relay itself: the transcoder
// invocation, voice readiness, catalog location and the operational surface.
type RelayConfig struct {
	FFmpegPath        string `env:"FFMPEG_PATH, default=ffmpeg"`
	UserAgent         string `env:"FFMPEG_USER_AGENT, default=DiscordBot/1.0 (+https://discord.com)"`
	Bitrate           string `env:"FFMPEG_BITRATE, default=128k"`
	ReconnectDelayMax int    `env:"FFMPEG_RECONNECT_DELAY_MAX, default=5"`

	VoiceReadyTimeout time.Duration `env:"VOICE_READY_TIMEOUT, default=15s"`

	CatalogPath string `env:"CATALOG_PATH"`
	// BlockedStreams are taken off air at startup, on top of whatever an
	// operator blocked through Redis.
	BlockedStreams []string `env:"BLOCKED_STREAMS"`

	InteractionRate  float64 `env:"INTERACTION_RATE, default=1"`
	InteractionBurst int     `env:"INTERACTION_BURST, default=3"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
	LogFormat   string `env:"LOG_FORMAT, default=text"`
}

func NewRelayConfigFromEnv() (*RelayConfig, error) {
	return newRelayConfig(context.Background(), nil)
}

func newRelayConfig(ctx context.Context, lookuper envconfig.Lookuper) (*RelayConfig, error) {
	var cfg RelayConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	if cfg.VoiceReadyTimeout <= 0 {
		return nil, fmt.Errorf("VOICE_READY_TIMEOUT must be positive, got %s", cfg.VoiceReadyTimeout)
	}
	if cfg.ReconnectDelayMax < 0 {
		return nil, fmt.Errorf("FFMPEG_RECONNECT_DELAY_MAX must not be negative, got %d", cfg.ReconnectDelayMax)
	}
	if cfg.InteractionRate <= 0 || cfg.InteractionBurst <= 0 {
		return nil, fmt.Errorf("INTERACTION_RATE and INTERACTION_BURST must be positive")
	}
	return &cfg, nil
}
