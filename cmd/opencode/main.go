package main

import (
	"context"
	"errors"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"opencode/internal/assistant"
	"opencode/internal/audio"
	"opencode/internal/audio/mic"
	"opencode/internal/audio/playback"
	"opencode/internal/audio/replay"
	"opencode/internal/config"
	"opencode/internal/diagnostics"
	"opencode/internal/docker"
	"opencode/internal/events"
	"opencode/internal/intent"
	"opencode/internal/ipc"
	"opencode/internal/logging"
	"opencode/internal/nlu"
	"opencode/internal/notify"
	"opencode/internal/sensors"
	"opencode/internal/shell"
	"opencode/internal/tts"
	"opencode/pkg/stt"
	"opencode/pkg/stt/whisper"
)

const speakerRate = 44100

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load("opencode", os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		return 0
	}

	closer := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	if err != nil {
		log.Error("Invalid configuration", "err", err)
		return 1
	}

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := whisper.Load(cfg.ModelPath)
	if err != nil {
		log.Error("Failed to load speech model", "path", cfg.ModelPath, "err", err)
		return 1
	}
	defer model.Close()

	log.Debug("Loaded whisper", "model", cfg.ModelPath)

	queue := audio.NewQueue(cfg.QueueSize)
	rec := stt.NewStream(model, stt.Endpoint{
		SampleRate:       cfg.SampleRate,
		SilenceThreshold: cfg.SilenceThreshold,
		SilenceHold:      cfg.SilenceHold,
		MaxUtterance:     cfg.MaxUtterance,
	}, stt.Options{Language: cfg.Language, Threads: cfg.Threads})

	stopInput, err := startInput(ctx, cfg, queue)
	if err != nil {
		log.Error("Failed to start audio input", "err", err)
		return 1
	}
	defer stopInput()

	player := playback.New(speakerRate)

	speaker, err := tts.New(tts.Options{
		Engine:   cfg.TTS,
		PiperBin: cfg.PiperBin,
		Model:    cfg.PiperModel,
		OutFile:  cfg.SpeechFile,
		Language: cfg.Language,
		Timeout:  cfg.SpeechTimeout,
		Player:   player,
	})
	if err != nil {
		log.Error("Failed to init speech output", "err", err)
		return 1
	}

	runner := shell.Exec{}
	host := sensors.NewHost()
	network := sensors.NewNetwork(runner)
	containers := docker.New(cfg.DockerBin, runner)

	actions := &intent.Actions{
		Status:     host,
		Network:    network,
		Containers: containers,
		Diagnostics: &diagnostics.Reporter{
			Host:         host,
			Net:          network,
			Docker:       containers,
			AudioDevices: mic.Describe,
			Dir:          cfg.ReportDir,
		},
		Browser:    shell.Detached{},
		BrowserURL: cfg.BrowserURL,
	}

	dispatcher := actions.NewDispatcher()
	if cfg.NLUFallback {
		client, err := nlu.NewClient(cfg.OpenAIKey, cfg.Proxy)
		if err != nil {
			log.Warn("LLM fallback disabled", "err", err)
		} else {
			dispatcher.WithClassifier(nlu.New(client))
			log.Info("LLM fallback enabled")
		}
	}

	listener := assistant.NewListener(queue, rec, assistant.ListenerConfig{
		WakePhrases:   cfg.WakePhrases,
		CommandWindow: cfg.CommandWindow,
		PollTimeout:   cfg.PollTimeout,
	})

	a := assistant.New(listener, speaker, dispatcher)

	if cfg.Chime != "" {
		a.Chime = notify.NewChime(cfg.Chime, player)
	}
	if cfg.Duck {
		a.Ducker = audio.NewDucker(runner, []string{"opencode", "piper", "espeak"}, 20, 0.3, 300*time.Millisecond)
	}

	if cfg.BusURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		bus, err := events.Dial(dialCtx, cfg.BusURL)
		cancel()
		if err != nil {
			log.Warn("Event bus disabled", "err", err)
		} else {
			a.Events = bus
			defer bus.Close()
		}
	}

	srv, err := ipc.Listen(cfg.Socket, a.Control)
	if err != nil {
		log.Warn("Control socket disabled", "err", err)
	} else {
		go srv.Serve(ctx)
		defer srv.Close()
	}

	log.Info("Boot up - successful")

	if err := a.Run(ctx); err != nil {
		log.Error("Assistant stopped", "err", err)
		return 1
	}

	log.Info("Shutdown complete")
	return 0
}

// startInput feeds the queue from the microphone, or from a file when
// --input is set. A replayed file closes the queue once it is consumed.
func startInput(ctx context.Context, cfg config.Config, q *audio.Queue) (func(), error) {
	if cfg.Input == "" {
		capture := mic.NewCapture(q, cfg.SampleRate, cfg.FrameSize)
		if err := capture.Start(); err != nil {
			return nil, err
		}
		return func() {
			if err := capture.Close(); err != nil {
				log.Warn("Failed to close capture", "err", err)
			}
		}, nil
	}

	src, err := replay.Open(cfg.Input, q, cfg.SampleRate, cfg.FrameSize, 2*cfg.SilenceHold)
	if err != nil {
		return nil, err
	}

	go func() {
		defer q.Close()

		if err := src.Run(ctx); err != nil {
			return
		}

		// let the assistant act on the last utterance before ending
		for q.Len() > 0 && ctx.Err() == nil {
			time.Sleep(cfg.PollTimeout)
		}
		select {
		case <-ctx.Done():
		case <-time.After(cfg.CommandWindow):
		}
	}()

	log.Info("Using file input", "path", cfg.Input)
	return func() {}, nil
}
