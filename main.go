// ABOUTME: Entry point for the voicepool sound daemon
// ABOUTME: Parses CLI flags, opens the sound system and serves remote control with a pool monitor
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/voicepool/internal/remote"
	"github.com/Resonate-Protocol/voicepool/internal/server"
	"github.com/Resonate-Protocol/voicepool/internal/ui"
	"github.com/Resonate-Protocol/voicepool/internal/version"
	"github.com/Resonate-Protocol/voicepool/pkg/sfx"
)

var (
	port        = flag.Int("port", remote.DefaultPort, "Port for the control endpoint and mDNS advertisement")
	name        = flag.String("name", "", "Daemon friendly name (default: hostname-voicepool)")
	backend     = flag.String("backend", sfx.BackendOto, "Audio output backend: oto, malgo, portaudio or none")
	poolSize    = flag.Int("pool", 30, "Number of pooled voices")
	sampleRate  = flag.Int("rate", 44100, "Mixer sample rate")
	soundVolume = flag.Float64("sound-volume", 1, "Initial effect volume (0-3)")
	musicVolume = flag.Float64("music-volume", 1, "Initial music volume (0-3)")
	vrMode      = flag.Bool("vr", false, "Play non-positional sounds from a fixed point in front of the listener")
	assetTTL    = flag.Duration("asset-ttl", 10*time.Minute, "Unload sounds idle this long (negative disables)")
	cacheDir    = flag.String("cache-dir", "", "Directory for downloaded sounds (default: temp dir)")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	logFile     = flag.String("log-file", "voicepool.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	daemonName := *name
	if daemonName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		daemonName = fmt.Sprintf("%s-voicepool", hostname)
	}

	log.Printf("Starting %s %s: %s", version.Product, version.Version, daemonName)

	sys, err := sfx.Open(sfx.Config{
		Server: server.Config{
			PoolSize: *poolSize,
			Debug:    *debug,
		},
		VRMode:     *vrMode,
		Backend:    *backend,
		SampleRate: *sampleRate,
		AssetTTL:   *assetTTL,
		CacheDir:   *cacheDir,
		Debug:      *debug,
	})
	if err != nil {
		log.Fatalf("Failed to open sound system: %v", err)
	}

	sys.Audio.SetSoundVolume(*soundVolume)
	sys.Audio.SetMusicVolume(*musicVolume)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		sys.Run(ctx)
	}()

	rc, err := remote.NewServer(sys, remote.Config{
		Port:       *port,
		Name:       daemonName,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
	})
	if err != nil {
		log.Fatalf("Failed to create remote control: %v", err)
	}

	rcErr := make(chan error, 1)
	go func() {
		rcErr <- rc.Start()
	}()

	// TUI setup
	var tuiProg *tea.Program
	var control *ui.Control
	tuiDone := make(chan struct{})

	if useTUI {
		control = ui.NewControl()
		tuiProg = ui.Run(control)
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go monitorLoop(ctx, sys, rc, tuiProg, daemonName)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	waitForQuit(sys, control, sigChan, rcErr)

	if tuiProg != nil {
		tuiProg.Quit()
		<-tuiDone
	}

	rc.Close()
	cancel()
	<-runDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := sys.Close(shutdownCtx); err != nil {
		log.Printf("Error closing sound system: %v", err)
	}

	log.Printf("Daemon stopped")
}

// waitForQuit applies TUI controls until a quit request, signal or server failure
func waitForQuit(sys *sfx.System, control *ui.Control, sigChan <-chan os.Signal, rcErr <-chan error) {
	var changes <-chan ui.ControlMsg
	if control != nil {
		changes = control.Changes
	}

	for {
		select {
		case msg := <-changes:
			if msg.Quit {
				log.Printf("Received quit signal from TUI")
				return
			}
			applyControl(sys, msg)
		case <-sigChan:
			log.Printf("Shutdown signal received")
			return
		case err := <-rcErr:
			if err != nil {
				log.Printf("Remote control failed: %v", err)
			}
			return
		}
	}
}

// applyControl forwards a TUI action onto the logic loop
func applyControl(sys *sfx.System, msg ui.ControlMsg) {
	sys.Post(func() {
		a := sys.Audio
		if msg.SoundVolume != nil {
			a.SetSoundVolume(*msg.SoundVolume)
		}
		if msg.MusicVolume != nil {
			a.SetMusicVolume(*msg.MusicVolume)
		}
		if msg.Reset {
			log.Printf("Reset requested from TUI")
			a.Reset()
		}
		if msg.TogglePause {
			if sys.Server.Paused() {
				a.EndInterruption()
			} else {
				a.BeginInterruption()
			}
		}
	})
}

// monitorLoop feeds pool snapshots to the TUI
func monitorLoop(ctx context.Context, sys *sfx.System, rc *remote.Server, prog *tea.Program, daemonName string) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	addr := fmt.Sprintf(":%d", *port)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapCtx, cancel := context.WithTimeout(ctx, time.Second)
			ps, err := sys.Server.Snapshot(snapCtx)
			cancel()
			if err != nil {
				log.Printf("Snapshot failed: %v", err)
				continue
			}

			prog.Send(ui.StatusMsg{
				Name:    daemonName,
				Addr:    addr,
				Clients: len(rc.Clients()),
				Pool:    &ps,
			})
		}
	}
}
