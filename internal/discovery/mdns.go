// ABOUTME: mDNS service discovery for the voicepool daemon
// ABOUTME: Advertises _voicepool._tcp and browses for daemons from the CLI
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service the daemon registers
const ServiceType = "_voicepool._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string // WebSocket path advertised in TXT
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered daemon
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Addr returns host:port
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprintf("%d", s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/voicepool"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise announces the daemon until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + m.config.Path},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d", m.config.ServiceName, m.config.Port)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for daemons until Stop; results arrive on Servers
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if err := query(3*time.Second, func(info *ServerInfo) bool {
			select {
			case m.servers <- info:
				return true
			case <-m.ctx.Done():
				return false
			}
		}); err != nil {
			log.Printf("mDNS query failed: %v", err)
			select {
			case <-time.After(time.Second):
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// Servers returns the channel of discovered daemons
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// Lookup returns the first daemon answering within timeout
func Lookup(timeout time.Duration) (*ServerInfo, error) {
	var found *ServerInfo
	err := query(timeout, func(info *ServerInfo) bool {
		if found == nil {
			found = info
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("no %s service found within %v", ServiceType, timeout)
	}
	return found, nil
}

// query runs one mDNS query, calling found for every IPv4 answer
func query(timeout time.Duration, found func(*ServerInfo) bool) error {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		keep := true
		for entry := range entries {
			if !keep || entry.AddrV4 == nil {
				continue
			}
			info := &ServerInfo{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
			}
			log.Printf("Discovered daemon: %s at %s", info.Name, info.Addr())
			keep = found(info)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entries)
	<-done
	return err
}

// getLocalIPs returns non-loopback IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
