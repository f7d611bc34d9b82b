package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/musicbox/internal/audio"
	"github.com/llehouerou/musicbox/internal/config"
	"github.com/llehouerou/musicbox/internal/controls"
	"github.com/llehouerou/musicbox/internal/errmsg"
	"github.com/llehouerou/musicbox/internal/gateway"
	"github.com/llehouerou/musicbox/internal/indicator"
	"github.com/llehouerou/musicbox/internal/logging"
	"github.com/llehouerou/musicbox/internal/mpris"
	"github.com/llehouerou/musicbox/internal/nfc"
	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/statesync"
	"github.com/llehouerou/musicbox/internal/stderr"
	"github.com/llehouerou/musicbox/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("musicbox", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to an extra config file")
	listen := flags.StringP("listen", "l", "", "gateway listen address (default \":8080\")")
	mock := flags.Bool("mock", false, "use the noop audio backend")
	dbPath := flags.String("db", "", "SQLite database path")
	musicDir := flags.String("music-dir", "", "music library root")
	logLevel := flags.String("log-level", "", "trace, debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	overrides := map[string]any{}
	setIfChanged := func(flag, key string, value any) {
		if flags.Changed(flag) {
			overrides[key] = value
		}
	}
	setIfChanged("listen", "server.listen", *listen)
	setIfChanged("mock", "audio.mock", *mock)
	setIfChanged("db", "database.path", *dbPath)
	setIfChanged("music-dir", "audio.music_dir", *musicDir)
	setIfChanged("log-level", "log.level", *logLevel)

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		return errmsg.Wrap(errmsg.OpConfigLoad, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.GetLog()
	if logCfg.Format == "" && logging.IsTerminal(os.Stderr) {
		logCfg.Format = "console"
	}
	log, err := logging.Setup(logCfg, stderr.Original())
	if err != nil {
		return err
	}
	if err := stderr.Start(log); err != nil {
		log.Warn().Err(err).Msg("Cannot capture stderr")
	}
	defer stderr.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Exiting")
		return err
	}
	log.Info().Msg("Shut down")
	return nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return errmsg.Wrap(errmsg.OpDatabaseOpen, err)
	}
	defer st.Close()

	audioCfg := cfg.GetAudio()
	candidates, err := audio.Candidates(audioCfg.Backends, audio.Options{
		MPD: audio.MPDOptions{
			Network:  audioCfg.MPD.Network,
			Address:  audioCfg.MPD.Address,
			Password: audioCfg.MPD.Password,
			MusicDir: audioCfg.MusicDir,
		},
		Log: log,
	})
	if err != nil {
		return err
	}
	backend := audio.Select(ctx, audioCfg.Mock, candidates, log)
	defer backend.Close()

	mgr := statesync.New(log)
	pub := statesync.NewPublisher(mgr)
	coord := playback.New(backend, st.Playlists(), st.Prefs(), pub, playback.Options{
		CommandTimeout: audioCfg.CommandTimeout,
		Log:            log,
	})
	defer coord.Close()

	tags, err := nfc.New(st.Tags(), coord, mgr, cfg.GetNFC().CacheSize, log)
	if err != nil {
		return errmsg.Wrap(errmsg.OpInitialize, err)
	}

	srvCfg := cfg.GetServer()
	gw := gateway.New(mgr, coord, tags, playlistRemover{st.Playlists(), pub}, gateway.Options{
		WriteTimeout:   srvCfg.WriteTimeout,
		OutboundBuffer: srvCfg.OutboundBuffer,
		Log:            log,
	})

	if cfg.MPRIS.Enabled {
		adapter, err := mpris.New(coord, log)
		if err != nil {
			log.Warn().Err(err).Msg("MPRIS unavailable")
		} else {
			defer adapter.Close()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Addr:              srvCfg.Listen,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with gctx so open WebSocket sessions close
		// on shutdown.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		log.Info().Str("listen", srvCfg.Listen).Str("backend", coord.BackendName()).Msg("Gateway listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	indCfg := cfg.GetIndicator()
	driver := indicator.NewDriver(indicatorSinks(indCfg.Sinks, log), *indCfg.Brightness, 0, log)
	sub := coord.Subscribe()
	g.Go(func() error {
		driver.Run(gctx, coord.Status().State(), sub)
		return nil
	})

	if ctlCfg := cfg.GetControls(); ctlCfg.Enabled {
		resolver := controls.NewResolver(controls.Bindings(ctlCfg))
		dispatcher := controls.NewDispatcher(coord, tags, resolver, ctlCfg.VolumeStep, log)
		g.Go(func() error {
			return dispatcher.Run(gctx, controls.FileSource{Path: ctlCfg.Input, Log: log})
		})
	}

	return g.Wait()
}

func indicatorSinks(names []string, log zerolog.Logger) []indicator.Sink {
	sinks := make([]indicator.Sink, 0, len(names))
	for _, name := range names {
		switch name {
		case "log":
			sinks = append(sinks, indicator.NewLogSink(log))
		case "notify":
			sinks = append(sinks, indicator.NewNotifySink(indicator.NewNotifier()))
		}
	}
	return sinks
}

// playlistRemover deletes from the store and announces the deletion.
type playlistRemover struct {
	playlists *store.Playlists
	pub       *statesync.Publisher
}

func (r playlistRemover) DeletePlaylist(id int64) error {
	if err := r.playlists.Delete(id); err != nil {
		return err
	}
	r.pub.PlaylistDeleted(id)
	return nil
}
