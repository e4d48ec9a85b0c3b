// Package proxy builds HTTP clients for outbound API calls.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

const Timeout = 120 * time.Second

// NewHTTPClient returns a plain client when socksAddr is empty, otherwise
// one that tunnels every connection through the SOCKS5 proxy.
func NewHTTPClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return &http.Client{Timeout: Timeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", socksAddr, err)
	}

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		dial = cd.DialContext
	}

	return &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   Timeout,
	}, nil
}
