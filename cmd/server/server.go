package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"fenrir/internal/common"
	"fenrir/internal/config"
	"fenrir/internal/engine"
	"fenrir/internal/net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	initialPrices := make(map[common.AssetType]float64, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		initialPrices[s.AssetType()] = s.InitialMarketPrice
	}

	// Setup the TCP server and the matching engine.
	eng := engine.New(initialPrices)
	srv := net.New(cfg.Server.Address, cfg.Server.Port, eng)
	eng.SetReporter(srv)

	if cfg.Dashboard.Enabled {
		hub := net.NewMarketDataHub()
		go hub.Run()
		srv.SetMarketData(hub)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.HandleWebSocket)
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Dashboard.Port)
			log.Info().Str("address", addr).Msg("market data dashboard listening")
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error().Err(err).Msg("dashboard http server stopped")
			}
		}()
	}

	log.Info().
		Str("address", cfg.Server.Address).
		Int("port", cfg.Server.Port).
		Int("symbols", len(cfg.Symbols)).
		Msg("exchange starting")

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}

func configureLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.NewConsoleWriter())
	}
}
