// ABOUTME: Voicepool protocol message type definitions
// ABOUTME: Request, reply and payload structs for the remote control endpoint
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version spoken by this package
const Version = 1

// Message types
const (
	TypeClientHello    = "client/hello"
	TypeServerHello    = "server/hello"
	TypeAck            = "server/ack"
	TypeError          = "server/error"
	TypeSoundLoad      = "sound/load"
	TypeSoundUpload    = "sound/upload"
	TypeSoundPlay      = "sound/play"
	TypeSoundStarted   = "sound/started"
	TypeSoundStop      = "sound/stop"
	TypeSoundFade      = "sound/fade"
	TypeSoundStatus    = "sound/status"
	TypeMixerParams    = "mixer/params"
	TypeMixerReset     = "mixer/reset"
	TypeMixerInterrupt = "mixer/interrupt"
	TypePoolState      = "pool/state"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DecodePayload converts a generic payload into v
func DecodePayload(msg Message, v interface{}) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s payload: %w", msg.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the daemon's response to client/hello
type ServerHello struct {
	ServerID   string `json:"server_id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	PoolSize   int    `json:"pool_size"`
	SampleRate int    `json:"sample_rate"`
}

// ErrorReply reports a failed request
type ErrorReply struct {
	Message string `json:"message"`
}

// SoundLoad registers a file or URL under a name
type SoundLoad struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Streamed bool   `json:"streamed,omitempty"`
}

// SoundUpload registers a sound from encoded packets
type SoundUpload struct {
	Name       string   `json:"name"`
	Codec      string   `json:"codec"` // "pcm" or "opus"
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	BitDepth   int      `json:"bit_depth,omitempty"` // pcm only
	Packets    [][]byte `json:"packets"`             // base64 in JSON
}

// SoundPlay starts a sound by name
type SoundPlay struct {
	Name     string      `json:"name"`
	Volume   float64     `json:"volume"`
	Position *[3]float64 `json:"position,omitempty"` // nil plays non-positional
	Music    bool        `json:"music,omitempty"`
	Loop     bool        `json:"loop,omitempty"`
}

// SoundStarted answers sound/play. Handle is 0xFFFFFFFF when the play was dropped.
type SoundStarted struct {
	Handle  uint32 `json:"handle"`
	Dropped bool   `json:"dropped,omitempty"`
}

// SoundStop stops a playback
type SoundStop struct {
	Handle uint32 `json:"handle"`
}

// SoundFade fades a playback out (stopping it) or in
type SoundFade struct {
	Handle     uint32 `json:"handle"`
	DurationMs int    `json:"duration_ms"`
	In         bool   `json:"in,omitempty"`
}

// SoundStatus asks whether a playback is live, and is also the reply
type SoundStatus struct {
	Handle  uint32 `json:"handle"`
	Playing bool   `json:"playing"`
}

// MixerParams changes global mixer parameters. Nil fields are left alone.
type MixerParams struct {
	SoundVolume      *float64    `json:"sound_volume,omitempty"`
	MusicVolume      *float64    `json:"music_volume,omitempty"`
	SoundPitch       *float64    `json:"sound_pitch,omitempty"`
	ListenerPosition *[3]float64 `json:"listener_position,omitempty"`
	ListenerForward  *[3]float64 `json:"listener_forward,omitempty"`
	ListenerUp       *[3]float64 `json:"listener_up,omitempty"`
}

// MixerInterrupt begins (Active) or ends an audio session interruption
type MixerInterrupt struct {
	Active bool `json:"active"`
}

// SlotInfo describes one pool slot
type SlotInfo struct {
	Index      int        `json:"index"`
	Valid      bool       `json:"valid"`
	Available  bool       `json:"available"`
	Handle     uint32     `json:"handle"`
	Generation int        `json:"generation"`
	Playing    bool       `json:"playing"`
	Loading    bool       `json:"loading,omitempty"`
	Music      bool       `json:"music,omitempty"`
	Looping    bool       `json:"looping,omitempty"`
	Streaming  bool       `json:"streaming,omitempty"`
	Sound      string     `json:"sound,omitempty"`
	Gain       float64    `json:"gain"`
	Fade       float64    `json:"fade"`
	Position   [3]float64 `json:"position"`
	Holder     string     `json:"holder,omitempty"`
}

// PoolState answers pool/state
type PoolState struct {
	Slots       []SlotInfo `json:"slots"`
	Available   int        `json:"available"`
	LiveVoices  int        `json:"live_voices"`
	Fades       int        `json:"fades"`
	Streams     int        `json:"streams"`
	Paused      bool       `json:"paused"`
	Tick        string     `json:"tick"`
	SoundVolume float64    `json:"sound_volume"`
	MusicVolume float64    `json:"music_volume"`
	SoundPitch  float64    `json:"sound_pitch"`
}
