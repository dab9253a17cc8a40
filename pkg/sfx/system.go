// ABOUTME: Process-wide sound system context
// ABOUTME: Builds mixer, output sink, sound library and audio server with ordered teardown
package sfx

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/voicepool/internal/runloop"
	"github.com/Resonate-Protocol/voicepool/internal/server"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/asset"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/output"
)

// System owns every audio component. Create one at startup and pass it to
// whatever needs sound.
type System struct {
	Audio   *Audio
	Server  *server.Server
	Library *asset.Library
	Mixer   *output.Mixer
	Logic   *runloop.Loop

	config Config
}

// Open builds and starts the sound system. Failing to open the output
// device is fatal to the caller.
func Open(config Config) (*System, error) {
	config = config.withDefaults()

	mixer := output.NewMixer(output.MixerConfig{
		SampleRate: config.SampleRate,
		MaxVoices:  config.MaxVoices,
	})
	if err := openSink(mixer, config); err != nil {
		return nil, err
	}

	logic := runloop.New("logic")
	lib, err := asset.NewLibrary(logic, asset.Config{
		IdleTTL:  config.AssetTTL,
		CacheDir: config.CacheDir,
	})
	if err != nil {
		mixer.Close()
		return nil, fmt.Errorf("failed to create sound library: %w", err)
	}

	srv, err := server.New(mixer, lib, config.Server)
	if err != nil {
		mixer.Close()
		return nil, fmt.Errorf("failed to create audio server: %w", err)
	}
	if err := srv.Start(); err != nil {
		mixer.Close()
		return nil, fmt.Errorf("failed to start audio server: %w", err)
	}

	log.Printf("Sound system ready: %s backend, %d voices", config.Backend, srv.Config().PoolSize)

	return &System{
		Audio:   NewAudio(srv, config),
		Server:  srv,
		Library: lib,
		Mixer:   mixer,
		Logic:   logic,
		config:  config,
	}, nil
}

func openSink(mixer *output.Mixer, config Config) error {
	switch config.Backend {
	case BackendOto:
		if _, err := output.NewOtoSink(mixer); err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
	case BackendMalgo:
		if _, err := output.NewMalgoSink(mixer); err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
	case BackendPortAudio:
		if _, err := output.NewPortAudioSink(mixer); err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
	case BackendNone:
		output.NewTickerSink(mixer, config.TickPeriod)
	default:
		return fmt.Errorf("unknown audio backend %q", config.Backend)
	}
	return nil
}

// Post queues fn on the logic loop
func (s *System) Post(fn func()) bool {
	return s.Logic.Post(fn)
}

// Run drives the logic loop and idle pruning until ctx is cancelled
func (s *System) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logic.RunPending()
			return
		case <-s.Logic.Wake():
			s.Logic.RunPending()
		case <-ticker.C:
			s.Library.Prune()
			s.Logic.RunPending()
		}
	}
}

// Close stops every sound, shuts the audio server down and closes the device
func (s *System) Close(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)

	s.Library.Close()
	s.Logic.Close()
	s.Logic.RunPending()

	if err != nil {
		return fmt.Errorf("audio shutdown: %w", err)
	}
	return nil
}
