// ABOUTME: WebSocket remote control server for the voicepool daemon
// ABOUTME: Runs the handshake, routes requests onto the logic loop and serves /metrics
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/voicepool/internal/discovery"
	"github.com/Resonate-Protocol/voicepool/pkg/protocol"
	"github.com/Resonate-Protocol/voicepool/pkg/sfx"
)

// DefaultPort is the daemon's listening port
const DefaultPort = 8928

var errShuttingDown = errors.New("server shutting down")

// Config configures the remote control server
type Config struct {
	// Port to listen on (default: 8928)
	Port int

	// Name of the daemon for identification
	Name string

	// EnableMDNS enables mDNS service advertisement
	EnableMDNS bool

	// RequestTimeout bounds how long a request waits for the logic loop (default: 5s)
	RequestTimeout time.Duration

	// Debug enables debug logging
	Debug bool
}

// Server exposes a sound system over WebSocket
type Server struct {
	config   Config
	serverID string
	sys      *sfx.System

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// client is one connected controller
type client struct {
	ID       string
	Name     string
	Addr     string
	Conn     *websocket.Conn
	sendChan chan protocol.Message

	mu       sync.Mutex
	requests int
}

// ClientInfo describes a connected controller
type ClientInfo struct {
	ID       string
	Name     string
	Addr     string
	Requests int
}

// NewServer creates a remote control server for sys
func NewServer(sys *sfx.System, config Config) (*Server, error) {
	if sys == nil {
		return nil, fmt.Errorf("sound system is required")
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = "voicepool"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Second
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		sys:      sys,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network control surface
				return true
			},
		},
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}

	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	s.mux.Handle("/metrics", promhttp.HandlerFor(sys.Server.Config().Registry, promhttp.HandlerOpts{}))

	return s, nil
}

// Handler returns the HTTP handler serving /voicepool and /metrics
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens until Stop is called
func (s *Server) Start() error {
	log.Printf("Remote control starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        protocol.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-s.stopChan:
		log.Printf("Remote control shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		s.Stop()
		s.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.Close()
	log.Printf("Remote control stopped cleanly")
	return nil
}

// Stop makes Start return
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Close rejects new connections, disconnects every client and waits for
// their goroutines
func (s *Server) Close() {
	s.Stop()

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
}

// Clients returns information about all connected controllers
func (s *Server) Clients() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	clients := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		c.mu.Lock()
		clients = append(clients, ClientInfo{
			ID:       c.ID,
			Name:     c.Name,
			Addr:     c.Addr,
			Requests: c.requests,
		})
		c.mu.Unlock()
	}
	return clients
}

// handleWebSocket upgrades and serves one controller
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		http.Error(w, errShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.shutdownMu.RUnlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn, r.RemoteAddr)
}

// handleConnection runs the handshake then serves requests until disconnect
func (s *Server) handleConnection(conn *websocket.Conn, addr string) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.config.RequestTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	hello, err := s.checkHello(msg)
	if err != nil {
		log.Printf("Rejecting client from %s: %v", addr, err)
		conn.WriteJSON(errorMessage(msg.ID, err))
		return
	}

	log.Printf("Client hello: %s (ID: %s)", hello.Name, hello.ClientID)

	c := &client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Addr:     addr,
		Conn:     conn,
		sendChan: make(chan protocol.Message, 100),
	}

	s.clientsMu.Lock()
	if _, exists := s.clients[c.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected, rejecting duplicate", c.ID)
		conn.WriteJSON(errorMessage(msg.ID, fmt.Errorf("client %s already connected", c.ID)))
		return
	}
	s.clients[c.ID] = c
	s.clientsMu.Unlock()

	config := s.sys.Server.Config()
	serverHello := protocol.ServerHello{
		ServerID:   s.serverID,
		Name:       s.config.Name,
		Version:    protocol.Version,
		PoolSize:   config.PoolSize,
		SampleRate: s.sys.Mixer.SampleRate(),
	}
	if err := conn.WriteJSON(protocol.Message{ID: msg.ID, Type: protocol.TypeServerHello, Payload: serverHello}); err != nil {
		log.Printf("Error sending server hello: %v", err)
		s.removeClient(c)
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c)
	}()

	defer func() {
		s.removeClient(c)
		<-writerDone
		log.Printf("Client disconnected: %s", c.Name)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		s.handleClientMessage(c, data)
	}
}

// checkHello validates the opening message
func (s *Server) checkHello(msg protocol.Message) (protocol.ClientHello, error) {
	var hello protocol.ClientHello
	if msg.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, msg.Type)
	}
	if err := protocol.DecodePayload(msg, &hello); err != nil {
		return hello, err
	}
	if hello.ClientID == "" || hello.Name == "" {
		return hello, fmt.Errorf("client hello missing required fields")
	}
	if hello.Version != protocol.Version {
		return hello, fmt.Errorf("unsupported protocol version %d (server speaks %d)", hello.Version, protocol.Version)
	}
	return hello, nil
}

// clientWriter sends replies and keepalive pings
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage answers one request
func (s *Server) handleClientMessage(c *client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	c.mu.Lock()
	c.requests++
	c.mu.Unlock()

	typ, payload, err := s.dispatch(msg)
	if err != nil {
		if s.config.Debug {
			log.Printf("%s from %s failed: %v", msg.Type, c.Name, err)
		}
		s.sendMessage(c, errorMessage(msg.ID, err))
		return
	}

	if err := s.sendMessage(c, protocol.Message{ID: msg.ID, Type: typ, Payload: payload}); err != nil {
		log.Printf("Error replying to %s: %v", c.Name, err)
	}
}

// removeClient unregisters c and stops its writer
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	delete(s.clients, c.ID)
	close(c.sendChan)
}

// sendMessage queues a message for c
func (s *Server) sendMessage(c *client, msg protocol.Message) error {
	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

func errorMessage(id string, err error) protocol.Message {
	return protocol.Message{
		ID:      id,
		Type:    protocol.TypeError,
		Payload: protocol.ErrorReply{Message: err.Error()},
	}
}
