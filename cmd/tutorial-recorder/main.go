package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/adapters/cloudsync"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/adapters/devices"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/adapters/obsws"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/adapters/proc"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/adapters/storage/jsonfile"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/adapters/transcribe"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	cfgpkg "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/config"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/paths"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/usecase"
)

const usage = `tutorial-recorder - automated OBS tutorial recording

Usage:
  tutorial-recorder record --project NAME [--profile NAME]
  tutorial-recorder devices
  tutorial-recorder profiles
  tutorial-recorder configure --profile NAME
  tutorial-recorder status

record stops and collects files on SIGINT/SIGTERM.
`

func main() {
	var (
		project = pflag.String("project", "", "project name for the recording")
		profile = pflag.String("profile", "PC-Single", "OBS profile to record with")
		level   = pflag.String("log-level", "", "override LOG_LEVEL")
	)
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	cfg := cfgpkg.FromEnv()
	if *level != "" {
		cfg.LogLevel = *level
	}

	logger := obs.NewConsoleLogger(cfg.LogLevel)
	metrics := obs.NewMetrics()

	store, err := jsonfile.NewStore(cfg.ConfigDir, logger, cfg.RecordingsBase)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not open configuration store")
	}

	client := obsws.NewClient(cfg.OBSWebSocketURL, logger, metrics)
	client.RequestTimeout = cfg.RequestTimeout

	enum := devices.NewEnumerator(logger)
	manager := proc.NewManager(cfg.OBSPath, cfg.OBSPort, logger)
	manager.PollRetries = cfg.LaunchPollRetries
	manager.PollInterval = cfg.LaunchPollInterval

	sources := usecase.NewSourceManager(
		client, enum, paths.SourceRecordPluginInstalled,
		usecase.DefaultDelays(), logger, metrics,
	)
	recorder := usecase.NewRecorder(usecase.RecorderOptions{
		OBS:               client,
		Sources:           sources,
		Store:             store,
		Proc:              manager,
		Transcriber:       transcribe.NewWhisper(logger),
		Syncer:            cloudsync.NewRclone(logger),
		RecordingsBase:    cfg.RecordingsBase,
		VideosDir:         cfg.VideosDir,
		ConnectRetries:    cfg.ConnectRetries,
		ConnectRetryDelay: cfg.ConnectRetryDelay,
		Delays:            usecase.DefaultDelays(),
		Logger:            logger,
		Metrics:           metrics,
	})

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, metrics, logger)
	}

	cmd := pflag.Arg(0)
	switch cmd {
	case "record":
		runRecord(recorder, client, store, *project, *profile)
	case "devices":
		runDevices(enum)
	case "profiles":
		runProfiles(store)
	case "configure":
		runConfigure(client, sources, store, manager, cfg, *profile)
	case "status":
		runStatus(recorder, client, manager)
	default:
		pflag.Usage()
		os.Exit(2)
	}
}

func runRecord(recorder *usecase.Recorder, client *obsws.Client, store *jsonfile.Store, project, profile string) {
	if project == "" {
		fmt.Fprintln(os.Stderr, "record requires --project")
		os.Exit(2)
	}
	if err := store.Watch(); err == nil {
		defer store.Close()
	}
	defer client.Disconnect()

	client.Events().On(domain.EventRecordStateChanged, func(ev domain.Event) {
		if state, ok := ev.Data["outputState"].(string); ok {
			fmt.Println("  OBS:", state)
		}
	})

	progress := func(msg string) { fmt.Println("  " + msg) }
	if !recorder.StartRecording(project, profile, progress) {
		fmt.Fprintln(os.Stderr, "start failed:", recorder.LastError())
		os.Exit(1)
	}
	session, _ := recorder.Session()

	fmt.Println("recording... press Ctrl-C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if !recorder.StopRecording(progress) {
		fmt.Fprintln(os.Stderr, "stop failed:", recorder.LastError())
		os.Exit(1)
	}
	fmt.Println("session folder:", session.SessionPath)
}

func runDevices(enum *devices.Enumerator) {
	enum.Prime()
	fmt.Println("Cameras:")
	for _, c := range enum.Cameras() {
		fmt.Printf("  %d: %s\n", c.Index+1, c.Name)
	}
	fmt.Println("Microphones:")
	for _, m := range enum.Microphones() {
		fmt.Printf("  %d: %s\n", m.Index+1, m.Name)
	}
	fmt.Println("Displays:")
	for _, d := range enum.Displays() {
		primary := ""
		if d.Primary {
			primary = " (primary)"
		}
		fmt.Printf("  %d: %s %dx%d%s\n", d.Index+1, d.Name, d.Width, d.Height, primary)
	}
}

func runProfiles(store *jsonfile.Store) {
	for _, name := range store.ProfileNames() {
		cfg, _ := store.Profile(name)
		state := "unconfigured"
		if cfg.IsConfigured {
			state = "configured"
		}
		fmt.Printf("%-16s %d display(s), %d camera(s), %d mic(s) [%s]\n",
			name, len(cfg.Displays), len(cfg.Cameras), len(cfg.AudioInputs), state)
	}
}

func runConfigure(client *obsws.Client, sources *usecase.SourceManager, store *jsonfile.Store, manager *proc.Manager, cfg cfgpkg.Config, profile string) {
	defer client.Disconnect()

	if err := manager.EnsureRunning(); err != nil {
		fmt.Fprintln(os.Stderr, "OBS launch failed:", err)
		os.Exit(1)
	}
	if !client.Connect(cfg.ConnectRetries, cfg.ConnectRetryDelay) {
		fmt.Fprintln(os.Stderr, "could not connect to OBS")
		os.Exit(1)
	}

	pcfg, ok := store.Profile(profile)
	if !ok {
		pcfg = domain.DefaultProfileConfiguration(profile)
	}
	if !sources.ConfigureProfile(pcfg) {
		fmt.Fprintln(os.Stderr, "configuration failed")
		os.Exit(1)
	}
	pcfg.IsConfigured = true
	if err := store.SaveProfile(pcfg); err != nil {
		fmt.Fprintln(os.Stderr, "could not save profile:", err)
	}
	fmt.Println("profile", profile, "configured")
}

func runStatus(recorder *usecase.Recorder, client *obsws.Client, manager *proc.Manager) {
	fmt.Println("OBS running:", manager.IsRunning())
	if client.Connect(1, time.Second) {
		defer client.Disconnect()
		fmt.Println("websocket:  connected")
		fmt.Println("recording: ", recorder.RecordActive())
	} else {
		fmt.Println("websocket:  unreachable")
	}
	for i, p := range recorder.ExistingProjects() {
		if i == 0 {
			fmt.Println("recent projects:")
		}
		fmt.Printf("  %s (%s)\n", p.Name, p.Date)
	}
}

func serveMetrics(addr string, metrics *obs.Metrics, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
