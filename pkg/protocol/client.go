// ABOUTME: WebSocket client for the voicepool remote control protocol
// ABOUTME: Handles connection, handshake and request/reply correlation
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Path is the WebSocket endpoint served by the daemon
const Path = "/voicepool"

// ErrNotConnected is returned when a request is made without a connection
var ErrNotConnected = errors.New("not connected")

// RemoteError is an error reported by the daemon
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server error: " + e.Message
}

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	DeviceInfo DeviceInfo

	// Timeout bounds the handshake and requests without a deadline (default: 5s)
	Timeout time.Duration

	Debug bool
}

// Client represents a WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan Message

	hello ServerHello

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = "voicepool client"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config:  config,
		pending: make(map[string]chan Message),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	if c.config.Debug {
		log.Printf("Connecting to %s", u.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake performs the protocol handshake before the reader starts
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    Version,
		DeviceInfo: &c.config.DeviceInfo,
	}
	if err := c.send(Message{ID: uuid.New().String(), Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.Timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type == TypeError {
		return replyError(msg)
	}
	if msg.Type != TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}
	if err := DecodePayload(msg, &c.hello); err != nil {
		return err
	}

	if c.config.Debug {
		log.Printf("Handshake complete with %s (%d voices)", c.hello.Name, c.hello.PoolSize)
	}
	return nil
}

// ServerHello returns the daemon's handshake reply
func (c *Client) ServerHello() ServerHello {
	return c.hello
}

// send writes one message
func (c *Client) send(msg Message) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readMessages routes replies to waiting requests
func (c *Client) readMessages() {
	defer close(c.done)
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse JSON message: %v", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()

		if !ok {
			if c.config.Debug {
				log.Printf("Unsolicited message type: %s", msg.Type)
			}
			continue
		}
		ch <- msg
	}
}

// Request sends a request and decodes the reply into reply (which may be nil)
func (c *Client) Request(ctx context.Context, typ string, payload, reply interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	id := uuid.New().String()
	ch := make(chan Message, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(Message{ID: id, Type: typ, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", typ, err)
	}

	select {
	case msg := <-ch:
		if msg.Type == TypeError {
			return replyError(msg)
		}
		if reply == nil {
			return nil
		}
		return DecodePayload(msg, reply)
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", typ, ctx.Err())
	}
}

func replyError(msg Message) error {
	var e ErrorReply
	if err := DecodePayload(msg, &e); err != nil {
		return err
	}
	return &RemoteError{Message: e.Message}
}

// Load registers a file or URL on the daemon
func (c *Client) Load(ctx context.Context, load SoundLoad) error {
	return c.Request(ctx, TypeSoundLoad, load, nil)
}

// Upload registers a sound from encoded packets
func (c *Client) Upload(ctx context.Context, upload SoundUpload) error {
	return c.Request(ctx, TypeSoundUpload, upload, nil)
}

// Play starts a sound and returns its handle
func (c *Client) Play(ctx context.Context, play SoundPlay) (SoundStarted, error) {
	var started SoundStarted
	err := c.Request(ctx, TypeSoundPlay, play, &started)
	return started, err
}

// Stop stops a playback
func (c *Client) Stop(ctx context.Context, handle uint32) error {
	return c.Request(ctx, TypeSoundStop, SoundStop{Handle: handle}, nil)
}

// Fade fades a playback out or in
func (c *Client) Fade(ctx context.Context, fade SoundFade) error {
	return c.Request(ctx, TypeSoundFade, fade, nil)
}

// Status reports whether a playback is live
func (c *Client) Status(ctx context.Context, handle uint32) (bool, error) {
	var status SoundStatus
	if err := c.Request(ctx, TypeSoundStatus, SoundStatus{Handle: handle}, &status); err != nil {
		return false, err
	}
	return status.Playing, nil
}

// SetParams changes global mixer parameters
func (c *Client) SetParams(ctx context.Context, params MixerParams) error {
	return c.Request(ctx, TypeMixerParams, params, nil)
}

// Reset stops every sound
func (c *Client) Reset(ctx context.Context) error {
	return c.Request(ctx, TypeMixerReset, struct{}{}, nil)
}

// Interrupt begins or ends an audio session interruption
func (c *Client) Interrupt(ctx context.Context, active bool) error {
	return c.Request(ctx, TypeMixerInterrupt, MixerInterrupt{Active: active}, nil)
}

// PoolState fetches the voice pool snapshot
func (c *Client) PoolState(ctx context.Context) (PoolState, error) {
	var ps PoolState
	err := c.Request(ctx, TypePoolState, struct{}{}, &ps)
	return ps, err
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
