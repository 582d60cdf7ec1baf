// Package httpclient builds the single shared *http.Client used by every
// Extractor and the Downloader, with the timeouts spec.md §5 mandates and
// an optional request/response logging transport adapted from the
// teacher's internal/api.LoggingTransport.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	connectTimeout = 10 * time.Second
	readTimeout    = 60 * time.Second
)

// New builds the shared HTTP client. If logPath is non-empty, requests and
// responses are dumped to that file via a LoggingTransport.
func New(logPath string) (*http.Client, error) {
	base := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   16,
	}

	var transport http.RoundTripper = base
	if logPath != "" {
		lt, err := NewLoggingTransport(base, logPath)
		if err != nil {
			return nil, err
		}
		transport = lt
	}

	return &http.Client{
		Transport: transport,
		Timeout:   readTimeout,
	}, nil
}
