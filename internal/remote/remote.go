// Package remote fetches plugin descriptors and image sources over HTTP(S)
// with retries.
package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultMaxBytes caps the size of a fetched document.
const DefaultMaxBytes = 16 << 20

// Environment variables read by CredentialsFromEnv.
const (
	TokenEnvVar     = "CHARTRENDER_TOKEN"
	AuthHostsEnvVar = "CHARTRENDER_TOKEN_HOSTS" // comma separated
)

// Config holds configuration for fetching remote documents.
type Config struct {
	RetryMax  int
	Timeout   time.Duration
	MaxBytes  int64
	Token     string // Sent as a bearer token
	Username  string // Basic auth, used when Token is empty
	Password  string
	UserAgent string

	// AuthHosts lists the hosts (host or host:port) credentials are sent
	// to. Requests to any other host carry no credentials.
	AuthHosts []string
}

// CredentialsFromEnv fills unset credentials in cfg from TokenEnvVar and
// AuthHostsEnvVar. The token is only used for the listed hosts.
func CredentialsFromEnv(cfg Config) Config {
	if cfg.Token == "" && cfg.Username == "" {
		cfg.Token = os.Getenv(TokenEnvVar)
	}
	if len(cfg.AuthHosts) == 0 {
		for _, h := range strings.Split(os.Getenv(AuthHostsEnvVar), ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.AuthHosts = append(cfg.AuthHosts, h)
			}
		}
	}
	return cfg
}

// Document is a fetched remote resource.
type Document struct {
	URL         string
	ContentType string
	Data        []byte
}

// Fetcher retrieves remote documents.
type Fetcher struct {
	client *retryablehttp.Client
	config Config
}

// IsURL reports whether ref should be fetched over HTTP(S).
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// NewFetcher creates a fetcher. Zero values in cfg fall back to defaults.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 3
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "terraform-provider-chartrender"
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil // Disable logging

	return &Fetcher{client: client, config: cfg}
}

// Fetch retrieves the document at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if !IsURL(url) {
		return nil, fmt.Errorf("not an http(s) url: %s", url)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	if f.authorized(req.URL.Host) {
		if f.config.Token != "" {
			req.Header.Set("Authorization", "Bearer "+f.config.Token)
		} else if f.config.Username != "" {
			req.SetBasicAuth(f.config.Username, f.config.Password)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch %s (status %d): %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > f.config.MaxBytes {
		return nil, fmt.Errorf("document %s exceeds %d bytes", url, f.config.MaxBytes)
	}

	return &Document{
		URL:         url,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (f *Fetcher) authorized(host string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	for _, allowed := range f.config.AuthHosts {
		if strings.EqualFold(allowed, host) || strings.EqualFold(allowed, hostname) {
			return true
		}
	}
	return false
}
