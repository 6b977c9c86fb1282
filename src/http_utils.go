package src

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// newTransport returns a clone of the default transport that retries failed dials. With
// publicOnly set, loopback and link-local targets are refused.
func newTransport(publicOnly bool) *http.Transport {
	var t *http.Transport
	if dt, ok := http.DefaultTransport.(*http.Transport); ok {
		t = dt.Clone()
	} else {
		t = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if publicOnly {
		dialer.Control = denyPrivateTargets
	}

	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialContextWithRetry(ctx, dialer, network, addr)
	}
	return t
}

// denyPrivateTargets keeps artwork URLs taken from a playlist away from the host itself.
// PANDATV_ALLOW_LOOPBACK=true lifts the restriction.
func denyPrivateTargets(network, address string, c syscall.RawConn) error {
	if v := os.Getenv("PANDATV_ALLOW_LOOPBACK"); v == "true" || v == "1" {
		return nil
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}

	ip := net.ParseIP(host)
	switch {
	case ip == nil:
		return fmt.Errorf("invalid IP: %s", host)
	case ip.IsLoopback():
		return fmt.Errorf("access to loopback address %s is denied", host)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("access to link-local address %s is denied", host)
	case ip.IsUnspecified():
		return fmt.Errorf("access to unspecified address %s is denied", host)
	}
	return nil
}

func dialContextWithRetry(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	var conn net.Conn
	var err error

	// Retry loop for transient errors (like DNS "server misbehaving")
	for i := 0; i < 3; i++ {
		conn, err = dialer.DialContext(ctx, network, addr)
		if err == nil {
			return conn, nil
		}

		if i < 2 {
			select {
			case <-ctx.Done():
				return nil, err
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
	return nil, err
}

// newHTTPClient returns a traced client with a redirect limit.
func newHTTPClient(timeout time.Duration, publicOnly bool) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(newTransport(publicOnly)),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}

			span := trace.SpanFromContext(req.Context())
			if span.IsRecording() {
				span.SetAttributes(attribute.Int("http.redirect_count", len(via)))
				span.AddEvent("http.redirect", trace.WithAttributes(
					attribute.String("http.redirect.location", req.URL.String()),
				))
			}

			return nil
		},
	}
}

// newPlaylistClient : The playlist address is configured by the operator and may be local.
func newPlaylistClient() *http.Client {
	return newHTTPClient(30*time.Second, false)
}

// newArtworkClient : Artwork addresses come from the playlist.
func newArtworkClient() *http.Client {
	return newHTTPClient(30*time.Second, true)
}
