package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bosley/polyglot/audio"
	"github.com/bosley/polyglot/config"
	"github.com/bosley/polyglot/desktop"
	"github.com/bosley/polyglot/device"
	"github.com/bosley/polyglot/inbox"
	polyserv "github.com/bosley/polyglot/server"
	"github.com/bosley/polyglot/voice"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Debug("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Program failed", "mode", cfg.Mode, "error", err)
		os.Exit(1)
	}

	slog.Debug("Program exiting")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.PlayFile != "" {
		return withPortAudio(func() error {
			return device.PlayFile(ctx, cfg.PlayFile)
		})
	}

	switch cfg.Mode {
	case config.ModeDevices:
		return withPortAudio(listDevices)
	case config.ModeVoices:
		return listVoices(ctx, cfg)
	case config.ModeDesktop:
		return withPortAudio(func() error {
			return runDesktop(ctx, cfg)
		})
	default:
		return serve(ctx, cfg)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	srv := polyserv.New(polyserv.Config{
		Addr:           cfg.Addr,
		CertFile:       cfg.CertFile,
		KeyFile:        cfg.KeyFile,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
		MaxConcurrent:  cfg.MaxConcurrent,
		RateLimit:      cfg.RateLimit,
	}, p)

	if cfg.InboxDir != "" {
		in, err := inbox.New(inbox.Config{
			Dir:        cfg.InboxDir,
			Workers:    cfg.InboxWorkers,
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
		}, p, srv.Hub())
		if err != nil {
			return fmt.Errorf("failed to initialize inbox: %w", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := in.Run(ctx); err != nil {
				slog.Error("Inbox failed", "error", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	return srv.Start(ctx)
}

func runDesktop(ctx context.Context, cfg *config.Config) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	engine, err := newSynth(cfg)
	if err != nil {
		return err
	}
	speaker := voice.NewSpeaker(engine, device.Player{}, cfg.Voice, cfg.TargetLang)
	defer speaker.Close()

	seg := audio.DefaultSegmenterConfig()
	seg.Threshold = cfg.Threshold
	seg.SilenceDuration = cfg.SilenceDuration
	seg.PhraseLimit = cfg.PhraseLimit
	seg.ListenTimeout = cfg.ListenTimeout

	mic, err := device.OpenMicrophone(device.MicrophoneConfig{
		DeviceID:            cfg.DeviceID,
		CalibrationDuration: cfg.CalibrationDuration,
		Segmenter:           seg,
	})
	if err != nil {
		return err
	}
	defer mic.Close()

	loop := desktop.NewLoop(desktop.Config{
		SourceLang:             cfg.SourceLang,
		TargetLang:             cfg.TargetLang,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	}, mic, p, speaker)
	return loop.Run(ctx)
}

func listDevices() error {
	devices, err := device.ListInputDevices()
	if err != nil {
		return err
	}

	fmt.Println("Available audio input devices:")
	for _, d := range devices {
		fmt.Printf("[%d] %s\n", d.Index, d.Name)
		fmt.Printf("    Max Input Channels: %d\n", d.MaxInputChannels)
		fmt.Printf("    Default Sample Rate: %f\n", d.DefaultSampleRate)
		fmt.Println()
	}
	return nil
}

func listVoices(ctx context.Context, cfg *config.Config) error {
	engine, err := newSynth(cfg)
	if err != nil {
		return err
	}
	voices, err := engine.Voices(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Available %s voices:\n", cfg.Synth)
	for _, v := range voices {
		fmt.Printf("  %s\n", v)
	}
	return nil
}

func withPortAudio(fn func() error) error {
	release, err := device.Initialize()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
