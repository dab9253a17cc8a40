// ABOUTME: Command-line controller for a running voicepool daemon
// ABOUTME: Discovers the daemon over mDNS and sends play, stop, fade, upload and mixer commands
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Resonate-Protocol/voicepool/internal/discovery"
	"github.com/Resonate-Protocol/voicepool/internal/version"
	"github.com/Resonate-Protocol/voicepool/pkg/protocol"
)

var (
	serverAddr = flag.String("server", "", "Daemon address host:port (default: discover via mDNS)")
	timeout    = flag.Duration("timeout", 5*time.Second, "Request timeout")
	discoverMs = flag.Int("discover-ms", 3000, "How long to wait for mDNS answers")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

const usage = `Usage: voicepool-ctl [flags] <command> [args]

Commands:
  load <name> <path|url> [-stream]   register a file on the daemon
  upload <name> <file> [-codec c]     decode locally and upload as pcm or opus
  play <name> [-volume v] [-pos x,y,z] [-music] [-loop]
  stop <handle>
  fade <handle> <ms> [-in]
  status <handle>
  volume [-sound v] [-music v] [-pitch p]
  listener <x,y,z> [-forward x,y,z -up x,y,z]
  reset | pause | resume | state
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*debug {
		log.SetOutput(io.Discard)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	addr, err := resolveServer()
	if err != nil {
		fatal(err)
	}

	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		Name:       "voicepool-ctl",
		Timeout:    *timeout,
		Debug:      *debug,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product + "-ctl",
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})
	if err := client.Connect(); err != nil {
		fatal(fmt.Errorf("connect to %s: %w", addr, err))
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client, args[0], args[1:]); err != nil {
		fatal(err)
	}
}

func resolveServer() (string, error) {
	if *serverAddr != "" {
		return *serverAddr, nil
	}

	info, err := discovery.Lookup(time.Duration(*discoverMs) * time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("no -server given and discovery failed: %w", err)
	}
	if *debug {
		log.Printf("Using daemon %s at %s", info.Name, info.Addr())
	}
	return info.Addr(), nil
}

// run executes one command
func run(ctx context.Context, c *protocol.Client, cmd string, args []string) error {
	switch cmd {
	case "load":
		return cmdLoad(ctx, c, args)
	case "upload":
		return cmdUpload(ctx, c, args)
	case "play":
		return cmdPlay(ctx, c, args)
	case "stop":
		h, err := handleArg(args)
		if err != nil {
			return err
		}
		return c.Stop(ctx, h)
	case "fade":
		return cmdFade(ctx, c, args)
	case "status":
		h, err := handleArg(args)
		if err != nil {
			return err
		}
		playing, err := c.Status(ctx, h)
		if err != nil {
			return err
		}
		fmt.Println(map[bool]string{true: "playing", false: "stopped"}[playing])
		return nil
	case "volume":
		return cmdVolume(ctx, c, args)
	case "listener":
		return cmdListener(ctx, c, args)
	case "reset":
		return c.Reset(ctx)
	case "pause":
		return c.Interrupt(ctx, true)
	case "resume":
		return c.Interrupt(ctx, false)
	case "state":
		ps, err := c.PoolState(ctx)
		if err != nil {
			return err
		}
		printState(ps)
		return nil
	default:
		return fmt.Errorf("unknown command %q (run with -h for usage)", cmd)
	}
}

func cmdLoad(ctx context.Context, c *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	stream := fs.Bool("stream", false, "Decode incrementally during playback")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("load needs <name> <path>")
	}
	return c.Load(ctx, protocol.SoundLoad{Name: pos[0], Path: pos[1], Streamed: *stream})
}

func cmdUpload(ctx context.Context, c *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	codec := fs.String("codec", "pcm", "Upload codec: pcm or opus")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("upload needs <name> <file>")
	}

	upload, err := encodeFile(pos[0], pos[1], *codec)
	if err != nil {
		return err
	}
	if err := c.Upload(ctx, upload); err != nil {
		return err
	}
	fmt.Printf("uploaded %s: %d packets (%s %dHz)\n", upload.Name, len(upload.Packets), upload.Codec, upload.SampleRate)
	return nil
}

func cmdPlay(ctx context.Context, c *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	volume := fs.Float64("volume", 1, "Playback volume")
	posArg := fs.String("pos", "", "World position x,y,z")
	music := fs.Bool("music", false, "Play on the music channel")
	loop := fs.Bool("loop", false, "Loop (music only)")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("play needs <name>")
	}

	play := protocol.SoundPlay{Name: pos[0], Volume: *volume, Music: *music, Loop: *loop}
	if *posArg != "" {
		v, err := parseVec(*posArg)
		if err != nil {
			return err
		}
		play.Position = &v
	}

	started, err := c.Play(ctx, play)
	if err != nil {
		return err
	}
	if started.Dropped {
		fmt.Println("dropped")
		return nil
	}
	fmt.Println(started.Handle)
	return nil
}

func cmdFade(ctx context.Context, c *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("fade", flag.ContinueOnError)
	in := fs.Bool("in", false, "Fade in instead of out")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("fade needs <handle> <ms>")
	}

	h, err := parseHandle(pos[0])
	if err != nil {
		return err
	}
	ms, err := strconv.Atoi(pos[1])
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", pos[1], err)
	}
	return c.Fade(ctx, protocol.SoundFade{Handle: h, DurationMs: ms, In: *in})
}

func cmdVolume(ctx context.Context, c *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("volume", flag.ContinueOnError)
	sound := fs.String("sound", "", "Effect volume (0-3)")
	music := fs.String("music", "", "Music volume (0-3)")
	pitch := fs.String("pitch", "", "Effect pitch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var params protocol.MixerParams
	var err error
	if params.SoundVolume, err = optionalFloat(*sound); err != nil {
		return err
	}
	if params.MusicVolume, err = optionalFloat(*music); err != nil {
		return err
	}
	if params.SoundPitch, err = optionalFloat(*pitch); err != nil {
		return err
	}
	if params.SoundVolume == nil && params.MusicVolume == nil && params.SoundPitch == nil {
		return fmt.Errorf("volume needs at least one of -sound, -music, -pitch")
	}
	return c.SetParams(ctx, params)
}

func cmdListener(ctx context.Context, c *protocol.Client, args []string) error {
	fs := flag.NewFlagSet("listener", flag.ContinueOnError)
	forward := fs.String("forward", "", "Forward vector x,y,z")
	up := fs.String("up", "", "Up vector x,y,z")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("listener needs <x,y,z>")
	}

	v, err := parseVec(pos[0])
	if err != nil {
		return err
	}
	params := protocol.MixerParams{ListenerPosition: &v}

	if *forward != "" || *up != "" {
		f, err := parseVec(*forward)
		if err != nil {
			return fmt.Errorf("-forward: %w", err)
		}
		u, err := parseVec(*up)
		if err != nil {
			return fmt.Errorf("-up: %w", err)
		}
		params.ListenerForward = &f
		params.ListenerUp = &u
	}
	return c.SetParams(ctx, params)
}

func printState(ps protocol.PoolState) {
	state := "running"
	if ps.Paused {
		state = "interrupted"
	}
	fmt.Printf("%s, tick %s, %d available, %d voices, %d fades, %d streams\n",
		state, ps.Tick, ps.Available, ps.LiveVoices, ps.Fades, ps.Streams)
	fmt.Printf("sound volume %.2f, music volume %.2f, pitch %.2f\n\n", ps.SoundVolume, ps.MusicVolume, ps.SoundPitch)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tHANDLE\tSOUND\tGAIN\tFADE\tFLAGS")
	for _, slot := range ps.Slots {
		if !slot.Valid || slot.Available {
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%.2f\t%.2f\t%s\n", slot.Index, slot.Handle, slot.Sound, slot.Gain, slot.Fade, flags(slot))
	}
	w.Flush()
}

func flags(slot protocol.SlotInfo) string {
	var out []string
	if slot.Playing {
		out = append(out, "playing")
	}
	if slot.Loading {
		out = append(out, "loading")
	}
	if slot.Music {
		out = append(out, "music")
	}
	if slot.Looping {
		out = append(out, "loop")
	}
	if slot.Streaming {
		out = append(out, "stream")
	}
	if slot.Holder != "" {
		out = append(out, "held:"+slot.Holder)
	}
	return strings.Join(out, ",")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "voicepool-ctl: %v\n", err)
	os.Exit(1)
}
