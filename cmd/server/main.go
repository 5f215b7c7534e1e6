// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/nostrbeat/internal/api/connect"
	"github.com/osa030/nostrbeat/internal/app/filter"
	"github.com/osa030/nostrbeat/internal/app/library"
	"github.com/osa030/nostrbeat/internal/app/notification"
	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/infra/audio"
	"github.com/osa030/nostrbeat/internal/infra/config"
	"github.com/osa030/nostrbeat/internal/infra/logger"
	"github.com/osa030/nostrbeat/internal/infra/metrics"
	"github.com/osa030/nostrbeat/internal/infra/relay"
	"github.com/osa030/nostrbeat/internal/infra/store"
)

var (
	app        = kingpin.New("nostrbeat-server", "nostrbeat music player server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: from config)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run executes the main server logic so that deferred cleanup runs on every exit path.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	m := metrics.New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Filters
	chain, err := filter.Build(filterSettings(cfg))
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}
	for _, f := range chain.Filters() {
		zlog.Info().Msgf("Filter enabled: %s", f.Name())
	}

	// Relays and event cache
	relays, err := relay.New(relay.Config{
		URLs:       cfg.Relays.URLs,
		Timeout:    cfg.Relays.Timeout(),
		MaxRetries: cfg.Relays.MaxRetries,
		RetryDelay: cfg.Relays.RetryDelay(),
	}, relay.WithObserver(m))
	if err != nil {
		return errors.Wrap(err, "failed to create relay client")
	}
	defer relays.Close()
	zlog.Info().Msgf("Relays: %s", strings.Join(relays.URLs(), ", "))

	var cache library.Cache
	if cfg.Store.Driver != "none" {
		st, err := store.Open(store.Config{
			Driver: cfg.Store.Driver,
			DSN:    cfg.Store.DSN,
			TTL:    cfg.Store.TTL(),
		})
		if err != nil {
			return errors.Wrap(err, "failed to open event store")
		}
		defer st.Close()
		cache = st
		go pruneLoop(ctx, st, cfg.Store.PruneInterval())
	}
	source := library.NewCachedSource(relays, cache)

	// Audio and playback
	engine, err := audio.New(audio.Config{
		SampleRate:   cfg.Audio.SampleRate,
		BufferMillis: cfg.Audio.BufferMs,
		HTTPTimeout:  cfg.Audio.HTTPTimeout(),
		MaxBytes:     cfg.Audio.MaxBytes(),
		Quality:      cfg.Audio.Quality,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize audio")
	}
	player := playback.NewController(engine, playback.Config{
		DefaultVolume: cfg.Playback.DefaultVolume,
		DefaultRate:   cfg.Playback.DefaultRate,
		LoadTimeout:   cfg.Playback.LoadTimeout(),
	})
	defer player.Close()

	lib := library.New(source, cfg.Kinds,
		library.WithFilters(chain),
		library.WithPlayer(player),
		library.WithProfileLimit(cfg.Library.ProfileTrackLimit),
	)

	// State notifications
	notifier := notification.NewManager(notification.WithCountObserver(m.SetSubscribers))
	defer notifier.Close()
	go notifier.Forward(ctx, player.Events(), player.Snapshot, cfg.Server.StateTick(), m.ObservePlayback)

	// RPC services
	done := make(chan struct{})
	playerService := apiconnect.NewPlayerService(player, lib, notifier, done)
	controlService := apiconnect.NewControlService(player, lib)

	mux := http.NewServeMux()
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(playerService)
	controlPath, controlHandler := apiconnect.NewControlServiceHandler(
		controlService,
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Control.Token)),
	)
	mux.Handle(playerPath, playerHandler)
	mux.Handle(controlPath, controlHandler)
	if cfg.Control.Token == "" {
		zlog.Warn().Msg("Control token not configured, ControlService is open to every client")
	}

	servers := []*http.Server{{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}}
	if cfg.Server.MetricsAddr == "" {
		mux.Handle("/metrics", metrics.Handler(reg))
	} else {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler(reg))
		servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux})
	}

	serverErrCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			zlog.Info().Msgf("Starting server: addr=%s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrCh <- errors.Wrapf(err, "listen %s", srv.Addr)
			}
		}(srv)
	}

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case runErr = <-serverErrCh:
	}

	// Ending the streams first lets Shutdown finish without waiting for them
	close(done)
	player.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server %s: %v", srv.Addr, err)
		}
	}

	zlog.Info().Msg("Server stopped")
	return runErr
}

// filterSettings converts the filter section of the config.
func filterSettings(cfg *config.Config) map[string]filter.Settings {
	out := make(map[string]filter.Settings, len(cfg.Filters))
	for name, f := range cfg.Filters {
		out[name] = filter.Settings{Enabled: f.Enabled, Settings: f.Settings}
	}
	return out
}

// pruneLoop periodically removes stale cache rows.
func pruneLoop(ctx context.Context, st *store.Store, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := st.Prune(ctx, interval)
			if err != nil {
				zlog.Warn().Msgf("Failed to prune event store: %v", err)
				continue
			}
			if removed > 0 {
				zlog.Debug().Msgf("Pruned %d cached events", removed)
			}
		}
	}
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
