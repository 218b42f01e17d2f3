// Package config loads supervisor configuration from the environment,
// following shared/config.go's pattern: a .env file loaded with godotenv,
// then plain os.Getenv reads with defaults, gathered into one struct instead
// of scattered package-level vars.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the supervisor needs at
// startup. Fields are read once in Load and never mutated afterward.
type Config struct {
	// Debug enables caller-tagged debug logging (logging.Enabled).
	Debug bool

	// AgentPort is the TCP port the agent wire protocol listens on, per
	// spec.md §6.1 (grounded on fernbedienung's fixed port 17653).
	AgentPort int

	// RadioPort is the port the radio link client dials (component B).
	RadioPort int

	// UIAddr is the listen address for the chi/gorilla HTTP+WS adapter.
	UIAddr string

	// RouterAddr is the listen address for the controller rendezvous
	// port named in spec.md §6.3. The message-router protocol spoken
	// over it is an out-of-scope external collaborator (spec.md §1); the
	// supervisor only needs to hold the port open for it.
	RouterAddr string

	// DiscoveryCIDR seeds the address pool (component C).
	DiscoveryCIDR string

	// DiscoveryDialTimeout bounds each individual dial attempt (spec.md
	// §4.3: 500ms per link).
	DiscoveryDialTimeout time.Duration

	// DiscoveryRetryDelay is the backoff between probe rounds for an
	// address that yielded neither link (spec.md §4.3: 1s).
	DiscoveryRetryDelay time.Duration

	// DiscoveryConcurrency bounds how many addresses are probed at once
	// (golang.org/x/sync/semaphore-backed worker pool).
	DiscoveryConcurrency int64

	// JournalCapacity bounds the in-memory event ring buffer before the
	// oldest entry is dropped (component F).
	JournalCapacity int
}

// Load reads a .env file if present (its absence is not an error — the
// teacher's own main.go treats a missing .env as fatal, but a supervisor
// meant to run standalone on an operator's laptop should fall back to
// plain environment variables instead), then populates Config from the
// environment with sane defaults for every field.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Config{
		Debug:                os.Getenv("DEBUG") == "true",
		AgentPort:            envInt("AGENT_PORT", 17653),
		RadioPort:            envInt("RADIO_PORT", 17654),
		UIAddr:               envString("UI_ADDR", "127.0.0.1:3030"),
		RouterAddr:           envString("ROUTER_ADDR", "127.0.0.1:4950"),
		DiscoveryCIDR:        envString("DISCOVERY_CIDR", "192.168.1.0/24"),
		DiscoveryDialTimeout: envDuration("DISCOVERY_DIAL_TIMEOUT", 500*time.Millisecond),
		DiscoveryRetryDelay:  envDuration("DISCOVERY_RETRY_DELAY", time.Second),
		DiscoveryConcurrency: int64(envInt("DISCOVERY_CONCURRENCY", 16)),
		JournalCapacity:      envInt("JOURNAL_CAPACITY", 4096),
	}

	if _, _, err := net.ParseCIDR(cfg.DiscoveryCIDR); err != nil {
		return Config{}, fmt.Errorf("config: DISCOVERY_CIDR %q: %w", cfg.DiscoveryCIDR, err)
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// LocalIPs returns the non-loopback, up interface addresses the supervisor
// is reachable on, printed at startup so an operator knows which address to
// hand agents for their return channel.
//
// Grounded on shared/utils.go's GetLocalIPs.
func LocalIPs() []string {
	var ips []string
	interfaces, err := net.Interfaces()
	if err != nil {
		return ips
	}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil {
				continue
			}
			ips = append(ips, ip.String())
		}
	}
	return ips
}
