package skylight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize bounds how much of a status or command response is
// read. The firmware's largest response (the status page) is well
// under this; anything bigger is a misbehaving device.
const maxResponseSize = 64 << 10 // 64KB

// Transport is the thin HTTP primitive for one lamp endpoint. It sends
// a single request with a bounded timeout and classifies failures; it
// never retries and never mutates shared state, so one Transport can
// serve concurrent commands as long as callers sequence them.
//
// The firmware exposes two paths: /scheduleSettings takes commands as
// a "params" or "ctrl" query value, /statusPage returns the full
// status dump.
type Transport struct {
	scheduleURL string
	statusURL   string
	client      *http.Client
}

// NewTransport creates a Transport for the lamp at the given host.
//
// Parameters:
//   - host: IP or hostname of the lamp, without scheme
//   - timeout: Bound for each individual HTTP call
func NewTransport(host string, timeout time.Duration) *Transport {
	return &Transport{
		scheduleURL: fmt.Sprintf("http://%s/scheduleSettings", host),
		statusURL:   fmt.Sprintf("http://%s/statusPage", host),
		client:      &http.Client{Timeout: timeout},
	}
}

// Send executes a command request against the schedule endpoint and
// returns the raw response body.
//
// Returns:
//   - string: Trimmed response text
//   - error: A classified transport sentinel (ErrUnreachable,
//     ErrTimeout, ErrMalformedResponse, ErrHTTPStatus), all matching
//     ErrTransport via errors.Is
func (t *Transport) Send(ctx context.Context, req Request) (string, error) {
	query := url.Values{}
	query.Set(req.Kind.queryKey(), req.Value)
	return t.get(ctx, t.scheduleURL+"?"+query.Encode())
}

// StatusPage fetches the raw status dump.
func (t *Transport) StatusPage(ctx context.Context) (string, error) {
	return t.get(ctx, t.statusURL)
}

func (t *Transport) get(ctx context.Context, rawURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", classifyRequestError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrMalformedResponse, err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrHTTPStatus, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}

	return strings.TrimSpace(string(body)), nil
}

// classifyRequestError maps a net/http client error onto the transport
// sentinel taxonomy.
func classifyRequestError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
}
