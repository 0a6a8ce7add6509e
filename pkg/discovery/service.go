// Package discovery advertises the wayfind API on the local network over
// mDNS so phones can find the server without configuration.
package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/teslashibe/go-wayfind/internal/log"
)

const (
	// ServiceType is the DNS-SD service type.
	ServiceType = "_wayfind._tcp"

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."
)

// ErrNoAddress is returned when no non-loopback IPv4 address is available.
var ErrNoAddress = errors.New("discovery: no local IPv4 address")

// Config describes what is advertised.
type Config struct {
	Instance string // Defaults to <hostname>-wayfind
	Port     int
	VenueID  string
	Version  string
}

// Service registers and withdraws the mDNS advertisement.
type Service struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	server   *zeroconf.Server
	running  bool
	serverIP string
}

// NewService creates an unregistered service.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = log.Component("discovery")
	}
	if cfg.Instance == "" {
		cfg.Instance = InstanceName()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Service{cfg: cfg, logger: logger}
}

// InstanceName derives the default instance name from the hostname.
func InstanceName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "wayfind"
	}
	// Instance labels may not contain dots.
	hostname = strings.SplitN(hostname, ".", 2)[0]
	return hostname + "-wayfind"
}

// TXT returns the TXT records for cfg.
func TXT(cfg Config, ip string) []string {
	txt := []string{
		"venue=" + cfg.VenueID,
		"version=" + cfg.Version,
	}
	if ip != "" {
		txt = append(txt, "ip="+ip)
	}
	return txt
}

// Start registers the service. Calling Start twice is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ip, err := localIP()
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(s.cfg.Instance, ServiceType, ServiceDomain, s.cfg.Port, TXT(s.cfg, ip), nil)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}

	s.server = server
	s.serverIP = ip
	s.running = true

	s.logger.Info("mdns service registered",
		"instance", s.cfg.Instance,
		"type", ServiceType,
		"addr", fmt.Sprintf("%s:%d", ip, s.cfg.Port),
		"venue", s.cfg.VenueID)
	return nil
}

// Stop withdraws the advertisement.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false
	s.logger.Info("mdns service stopped")
}

// Running reports whether the service is registered.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ServerIP returns the advertised address.
func (s *Service) ServerIP() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverIP
}

// Config returns the advertised configuration.
func (s *Service) Config() Config {
	return s.cfg
}

func localIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) (string, error) {
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
	}
	return "", ErrNoAddress
}
