package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	Local   = "Local"
	Unknown = "Unknown"

	defaultEndpoint = "http://ip-api.com/json/"
)

// Locator resolves a client address to a coarse "City, Country" label.
type Locator interface {
	Locate(ctx context.Context, ip string) string
}

// IPAPILocator queries ip-api.com.
type IPAPILocator struct {
	endpoint string
	client   *http.Client
}

func NewIPAPILocator() *IPAPILocator {
	return &IPAPILocator{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *IPAPILocator) Locate(ctx context.Context, ip string) string {
	if isLocal(ip) {
		return Local
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+ip, nil)
	if err != nil {
		return Unknown
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unknown
	}

	var result struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Unknown
	}

	if result.City != "" && result.Country != "" {
		return fmt.Sprintf("%s, %s", result.City, result.Country)
	}
	return Unknown
}

// StaticLocator never leaves the process. It is used when lookups are
// disabled.
type StaticLocator struct{}

func (StaticLocator) Locate(_ context.Context, ip string) string {
	if isLocal(ip) {
		return Local
	}
	return Unknown
}

func isLocal(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
