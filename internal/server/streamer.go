// ABOUTME: Streaming session feeding one voice from a file decoder
// ABOUTME: Keeps a few buffers queued, refills processed ones and loops or finishes at EOF
package server

import (
	"errors"
	"io"
	"log"

	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/asset"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/decode"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/output"
)

// Streamer decodes a sound incrementally into a voice's buffer queue.
// Exactly one exists per streaming slot. Audio goroutine only.
type Streamer struct {
	source *Source
	sound  *asset.Sound
	config StreamConfig
	loop   bool

	stream decode.Stream
	format audio.Format
	chunk  []float32
	queued int

	// Samples read since the last rewind, to catch empty files
	sinceRewind int
	rewound     bool

	eof      bool
	finished bool
}

func newStreamer(src *Source, sound *asset.Sound, loop bool, config StreamConfig) *Streamer {
	return &Streamer{
		source: src,
		sound:  sound,
		config: config,
		loop:   loop,
	}
}

// Play opens the decoder, queues the first buffers and starts the voice.
// Returns false on I/O or format errors.
func (st *Streamer) Play() bool {
	stream, err := st.sound.OpenStream()
	if err != nil {
		log.Printf("Stream open failed for %s: %v", st.sound, err)
		return false
	}
	st.stream = stream
	st.format = stream.Format()
	st.chunk = make([]float32, st.config.BufferFrames*st.format.Channels)

	for st.queued < st.config.BufferCount && !st.eof {
		before := st.queued
		if err := st.fill(); err != nil {
			log.Printf("Stream decode failed for %s: %v", st.sound, err)
			st.Stop()
			return false
		}
		if st.queued == before {
			break
		}
	}

	if st.queued == 0 {
		log.Printf("Stream for %s produced no audio", st.sound)
		st.Stop()
		return false
	}

	st.source.voice.Play()
	return true
}

// SetLoop changes what happens at end of stream
func (st *Streamer) SetLoop(loop bool) {
	st.loop = loop
}

// Finished reports whether the stream ended and the voice drained
func (st *Streamer) Finished() bool {
	return st.finished
}

// Update recycles processed buffers and refills the queue. Driver errors are
// logged and playback continues.
func (st *Streamer) Update() {
	if st.finished || st.stream == nil {
		return
	}

	voice := st.source.voice
	st.releaseBuffers(voice.UnqueueProcessed(voice.Processed()))

	for st.queued < st.config.BufferCount && !st.eof {
		before := st.queued
		if err := st.fill(); err != nil {
			log.Printf("Warning: stream update failed for %s: %v", st.sound, err)
			break
		}
		if st.queued == before {
			break
		}
	}

	if voice.IsPlaying() {
		return
	}

	// Starved or drained
	if st.queued > 0 {
		voice.Play()
		return
	}
	if st.eof {
		st.finished = true
	}
}

// fill decodes one buffer and queues it
func (st *Streamer) fill() error {
	n := 0
	for n < len(st.chunk) {
		got, err := st.stream.ReadSamples(st.chunk[n:])
		n += got
		st.sinceRewind += got
		if err == nil {
			if got == 0 {
				break
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			return err
		}

		// An empty file would loop forever
		if !st.loop || (st.rewound && st.sinceRewind == 0) {
			st.eof = true
			break
		}
		if err := st.stream.Rewind(); err != nil {
			return err
		}
		st.rewound = true
		st.sinceRewind = 0
	}

	n -= n % st.format.Channels
	if n == 0 {
		return nil
	}

	device := st.source.server.device
	buf, err := device.NewBuffer(st.format, st.chunk[:n])
	if err != nil {
		return err
	}
	if err := st.source.voice.QueueBuffer(buf); err != nil {
		device.DeleteBuffer(buf)
		return err
	}
	st.queued++
	return nil
}

func (st *Streamer) releaseBuffers(bufs []output.Buffer) {
	device := st.source.server.device
	for _, b := range bufs {
		if err := device.DeleteBuffer(b); err != nil {
			log.Printf("Warning: failed to delete stream buffer: %v", err)
		}
		st.queued--
	}
}

// Stop detaches every buffer and closes the decoder
func (st *Streamer) Stop() {
	voice := st.source.voice
	if voice != nil {
		voice.Stop()
		st.releaseBuffers(voice.UnqueueProcessed(voice.Processed()))
	}
	st.finished = true
	st.close()
}

func (st *Streamer) close() {
	if st.stream == nil {
		return
	}
	if err := st.stream.Close(); err != nil {
		log.Printf("Warning: failed to close stream for %s: %v", st.sound, err)
	}
	st.stream = nil
}
