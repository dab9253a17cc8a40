// ABOUTME: Request handlers for the remote control protocol
// ABOUTME: Each handler decodes its payload and runs the sound call on the logic loop
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/voicepool/internal/server"
	"github.com/Resonate-Protocol/voicepool/pkg/audio"
	"github.com/Resonate-Protocol/voicepool/pkg/audio/decode"
	"github.com/Resonate-Protocol/voicepool/pkg/protocol"
	"github.com/Resonate-Protocol/voicepool/pkg/sfx"
)

// dispatch returns the reply type and payload for msg
func (s *Server) dispatch(msg protocol.Message) (string, interface{}, error) {
	switch msg.Type {
	case protocol.TypeSoundLoad:
		return s.handleLoad(msg)
	case protocol.TypeSoundUpload:
		return s.handleUpload(msg)
	case protocol.TypeSoundPlay:
		return s.handlePlay(msg)
	case protocol.TypeSoundStop:
		return s.handleStop(msg)
	case protocol.TypeSoundFade:
		return s.handleFade(msg)
	case protocol.TypeSoundStatus:
		return s.handleStatus(msg)
	case protocol.TypeMixerParams:
		return s.handleParams(msg)
	case protocol.TypeMixerReset:
		return ack(s.onLogic(func() error {
			s.sys.Audio.Reset()
			return nil
		}))
	case protocol.TypeMixerInterrupt:
		return s.handleInterrupt(msg)
	case protocol.TypePoolState:
		return s.handlePoolState()
	default:
		return "", nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// onLogic runs fn on the logic loop and waits for its result
func (s *Server) onLogic(fn func() error) error {
	result := make(chan error, 1)
	if !s.sys.Post(func() { result <- fn() }) {
		return errShuttingDown
	}

	select {
	case err := <-result:
		return err
	case <-time.After(s.config.RequestTimeout):
		return fmt.Errorf("logic loop did not answer within %v", s.config.RequestTimeout)
	case <-s.stopChan:
		return errShuttingDown
	}
}

func ack(err error) (string, interface{}, error) {
	if err != nil {
		return "", nil, err
	}
	return protocol.TypeAck, nil, nil
}

func (s *Server) handleLoad(msg protocol.Message) (string, interface{}, error) {
	var load protocol.SoundLoad
	if err := protocol.DecodePayload(msg, &load); err != nil {
		return "", nil, err
	}
	if load.Name == "" || load.Path == "" {
		return "", nil, fmt.Errorf("sound/load needs name and path")
	}

	return ack(s.onLogic(func() error {
		_, err := s.sys.Library.Load(load.Name, load.Path, load.Streamed)
		return err
	}))
}

func (s *Server) handleUpload(msg protocol.Message) (string, interface{}, error) {
	var up protocol.SoundUpload
	if err := protocol.DecodePayload(msg, &up); err != nil {
		return "", nil, err
	}
	if up.Name == "" {
		return "", nil, fmt.Errorf("sound/upload needs a name")
	}

	format := audio.Format{
		Codec:      up.Codec,
		SampleRate: up.SampleRate,
		Channels:   up.Channels,
		BitDepth:   up.BitDepth,
	}
	samples, err := decodePackets(format, up.Packets)
	if err != nil {
		return "", nil, fmt.Errorf("upload %s: %w", up.Name, err)
	}

	return ack(s.onLogic(func() error {
		_, err := s.sys.Library.AddPCM(up.Name, format, samples)
		return err
	}))
}

// decodePackets decodes uploaded packets into one sample slice
func decodePackets(format audio.Format, packets [][]byte) ([]float32, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	dec, err := decode.NewPacketDecoder(format)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var samples []float32
	for i, packet := range packets {
		pcm, err := dec.Decode(packet)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i, err)
		}
		samples = append(samples, pcm...)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio in upload")
	}
	return samples, nil
}

func (s *Server) handlePlay(msg protocol.Message) (string, interface{}, error) {
	var play protocol.SoundPlay
	if err := protocol.DecodePayload(msg, &play); err != nil {
		return "", nil, err
	}

	var h sfx.PlayHandle
	err := s.onLogic(func() error {
		sound, err := s.sys.Library.Get(play.Name)
		if err != nil {
			return err
		}
		if sound.Failed() {
			return fmt.Errorf("sound %s failed to load: %w", play.Name, sound.Err())
		}

		a := s.sys.Audio
		switch {
		case play.Music:
			h = a.PlayMusic(sound, play.Volume, play.Loop)
		case play.Position != nil:
			p := play.Position
			h = a.PlaySoundAtPosition(sound, play.Volume, p[0], p[1], p[2])
		default:
			h = a.PlaySound(sound, play.Volume)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return protocol.TypeSoundStarted, protocol.SoundStarted{
		Handle:  uint32(h),
		Dropped: h == sfx.InvalidHandle,
	}, nil
}

func (s *Server) handleStop(msg protocol.Message) (string, interface{}, error) {
	var stop protocol.SoundStop
	if err := protocol.DecodePayload(msg, &stop); err != nil {
		return "", nil, err
	}

	return ack(s.onLogic(func() error {
		s.sys.Audio.StopSound(sfx.PlayHandle(stop.Handle))
		return nil
	}))
}

func (s *Server) handleFade(msg protocol.Message) (string, interface{}, error) {
	var fade protocol.SoundFade
	if err := protocol.DecodePayload(msg, &fade); err != nil {
		return "", nil, err
	}
	if fade.DurationMs < 0 {
		return "", nil, fmt.Errorf("negative fade duration: %dms", fade.DurationMs)
	}

	d := time.Duration(fade.DurationMs) * time.Millisecond
	h := sfx.PlayHandle(fade.Handle)
	return ack(s.onLogic(func() error {
		if fade.In {
			s.sys.Audio.FadeSoundIn(h, d)
		} else {
			s.sys.Audio.FadeSoundOut(h, d)
		}
		return nil
	}))
}

func (s *Server) handleStatus(msg protocol.Message) (string, interface{}, error) {
	var status protocol.SoundStatus
	if err := protocol.DecodePayload(msg, &status); err != nil {
		return "", nil, err
	}

	err := s.onLogic(func() error {
		status.Playing = s.sys.Audio.IsSoundPlaying(sfx.PlayHandle(status.Handle))
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return protocol.TypeSoundStatus, status, nil
}

func (s *Server) handleParams(msg protocol.Message) (string, interface{}, error) {
	var params protocol.MixerParams
	if err := protocol.DecodePayload(msg, &params); err != nil {
		return "", nil, err
	}
	if (params.ListenerForward == nil) != (params.ListenerUp == nil) {
		return "", nil, fmt.Errorf("listener_forward and listener_up must be set together")
	}

	return ack(s.onLogic(func() error {
		a := s.sys.Audio
		if params.SoundVolume != nil {
			a.SetSoundVolume(*params.SoundVolume)
		}
		if params.MusicVolume != nil {
			a.SetMusicVolume(*params.MusicVolume)
		}
		if params.SoundPitch != nil {
			a.SetSoundPitch(*params.SoundPitch)
		}
		if p := params.ListenerPosition; p != nil {
			a.SetListenerPosition(p[0], p[1], p[2])
		}
		if params.ListenerForward != nil {
			a.SetListenerOrientation(*params.ListenerForward, *params.ListenerUp)
		}
		return nil
	}))
}

func (s *Server) handleInterrupt(msg protocol.Message) (string, interface{}, error) {
	var interrupt protocol.MixerInterrupt
	if err := protocol.DecodePayload(msg, &interrupt); err != nil {
		return "", nil, err
	}

	return ack(s.onLogic(func() error {
		paused := s.sys.Server.Paused()
		switch {
		case interrupt.Active && !paused:
			s.sys.Audio.BeginInterruption()
		case !interrupt.Active && paused:
			s.sys.Audio.EndInterruption()
		}
		return nil
	}))
}

func (s *Server) handlePoolState() (string, interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	defer cancel()

	ps, err := s.sys.Server.Snapshot(ctx)
	if err != nil {
		return "", nil, err
	}
	return protocol.TypePoolState, PoolStateMessage(ps), nil
}

// PoolStateMessage converts a server snapshot to its wire form
func PoolStateMessage(ps server.PoolState) protocol.PoolState {
	out := protocol.PoolState{
		Slots:       make([]protocol.SlotInfo, len(ps.Slots)),
		Available:   ps.Available,
		LiveVoices:  ps.LiveVoices,
		Fades:       ps.Fades,
		Streams:     ps.Streams,
		Paused:      ps.Paused,
		Tick:        ps.Tick.String(),
		SoundVolume: ps.SoundVolume,
		MusicVolume: ps.MusicVolume,
		SoundPitch:  ps.SoundPitch,
	}
	for i, slot := range ps.Slots {
		out.Slots[i] = protocol.SlotInfo{
			Index:      slot.Index,
			Valid:      slot.Valid,
			Available:  slot.Available,
			Handle:     uint32(slot.Handle),
			Generation: slot.Generation,
			Playing:    slot.Playing,
			Loading:    slot.Loading,
			Music:      slot.Music,
			Looping:    slot.Looping,
			Streaming:  slot.Streaming,
			Sound:      slot.Sound,
			Gain:       slot.Gain,
			Fade:       slot.Fade,
			Position:   slot.Position,
			Holder:     slot.Holder,
		}
	}
	return out
}
