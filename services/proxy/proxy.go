package proxy

import (
	"fmt"
	"net/url"
	"sync"
)

// ProxyManager hands out proxy URLs for outbound vendor clients
type ProxyManager interface {
	// Next returns the next proxy URL, or "" when no proxy is configured
	Next() string
	// Len returns the number of configured proxies
	Len() int
}

// StaticManager round-robins over a fixed list of proxies
type StaticManager struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

// NewStaticManager validates each URL and builds a round-robin manager
func NewStaticManager(proxies []string) (*StaticManager, error) {
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", p, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("invalid proxy %q: unsupported scheme %q", p, u.Scheme)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q: missing host", p)
		}
	}
	return &StaticManager{proxies: append([]string(nil), proxies...)}, nil
}

// Next returns proxies in order, wrapping around
func (m *StaticManager) Next() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.proxies) == 0 {
		return ""
	}
	p := m.proxies[m.next%len(m.proxies)]
	m.next++
	return p
}

// Len returns the number of configured proxies
func (m *StaticManager) Len() int {
	return len(m.proxies)
}
