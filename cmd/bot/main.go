package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/radio-relay/internal/blocklist"
	"github.com/glizzus/radio-relay/internal/config"
	"github.com/glizzus/radio-relay/internal/datalayer"
	"github.com/glizzus/radio-relay/internal/handler"
	"github.com/glizzus/radio-relay/internal/logger"
	"github.com/glizzus/radio-relay/internal/metrics"
	"github.com/glizzus/radio-relay/internal/player"
	"github.com/glizzus/radio-relay/internal/relay"
	"github.com/glizzus/radio-relay/internal/transcode"
	"github.com/glizzus/radio-relay/internal/voice"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

type configs struct {
	discord  *config.DiscordConfig
	relay    *config.RelayConfig
	postgres *config.PostgresConfig
	redis    *config.RedisConfig
}

func loadConfigs() (*configs, error) {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	relayConfig, err := config.NewRelayConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load relay config: %w", err)
	}
	slog.SetDefault(logger.New(relayConfig.LogLevel, relayConfig.LogFormat))

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load discord config: %w", err)
	}
	postgresConfig, err := config.NewPostgresConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load postgres config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load redis config: %w", err)
	}

	return &configs{
		discord:  discordConfig,
		relay:    relayConfig,
		postgres: postgresConfig,
		redis:    redisConfig,
	}, nil
}

// registerCommands only talks to the REST API, the gateway is never opened.
func registerCommands(c *cli.Context) error {
	cfg, err := loadConfigs()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(c.Context, cfg.relay, cfg.postgres)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	guildID := cfg.discord.CommandGuildID()
	if err := handler.EstablishCommands(session, cfg.discord.ClientID, guildID, handler.Commands(cat.All())); err != nil {
		return err
	}
	slog.Info("Commands registered", "guildID", guildID, "global", guildID == "")
	return nil
}

func newBlocklist(ctx context.Context, redisConfig *config.RedisConfig, seed []string) (blocklist.Checker, func(), error) {
	if !redisConfig.Enabled() {
		slog.Info("REDIS_ADDR not set, using in-memory blocklist", "blocked", seed)
		return blocklist.NewMemoryBlocklist(seed...), func() {}, nil
	}
	client, err := datalayer.NewRedisClient(ctx, redisConfig.Addr, redisConfig.Password)
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}

	b := blocklist.NewRedisBlocklist(client)
	if err := blocklist.Seed(ctx, b, seed); err != nil {
		closeClient()
		return nil, nil, err
	}
	return b, closeClient, nil
}

func serveMetrics(addr string, met *metrics.Metrics, service *relay.Service) *http.Server {
	router := metrics.NewRouter(met, func() {
		met.SetActive(service.Active())
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	slog.Info("Metrics server listening", "addr", addr)
	return srv
}

func runBotForever(c *cli.Context) error {
	if c.Bool("register") {
		return registerCommands(c)
	}

	cfg, err := loadConfigs()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(ctx, cfg.relay, cfg.postgres)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	blocked, closeBlocklist, err := newBlocklist(ctx, cfg.redis, cfg.relay.BlockedStreams)
	if err != nil {
		return fmt.Errorf("failed to create blocklist: %w", err)
	}
	defer closeBlocklist()

	session, err := handler.NewSession(cfg.discord.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	met := metrics.New()
	service := relay.NewService(relay.Deps{
		Catalog:     cat,
		Locator:     relay.StateLocator{State: session.State},
		Connections: voice.NewRegistry(voice.DiscordTransport{Session: session}, cfg.relay.VoiceReadyTimeout),
		Players:     player.NewRegistry(),
		Transcoder: relay.PipeTranscoder{Runner: transcode.NewRunner(transcode.Options{
			Binary:            cfg.relay.FFmpegPath,
			UserAgent:         cfg.relay.UserAgent,
			Bitrate:           cfg.relay.Bitrate,
			ReconnectDelayMax: cfg.relay.ReconnectDelayMax,
		})},
		Blocklist: blocked,
		Metrics:   met,
	})

	session.AddHandler(handler.ForSession(handler.NewInteractionHandler(service, handler.Options{
		RequestTimeout: handler.DefaultRequestTimeout,
		Rate:           rate.Limit(cfg.relay.InteractionRate),
		Burst:          cfg.relay.InteractionBurst,
		Metrics:        met,
	})))

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, cfg.discord.ClientID, cfg.discord.CommandGuildID(), handler.Commands(cat.All())); err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.relay.MetricsAddr != "" {
		metricsServer = serveMetrics(cfg.relay.MetricsAddr, met, service)
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping all guilds")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	service.Shutdown(shutdownCtx)
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down metrics server", "error", err)
		}
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "radio-relay",
		Usage: "Relay live radio streams into Discord voice channels",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "register",
				Usage: "Register the slash commands and exit",
			},
		},
		Action: runBotForever,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
