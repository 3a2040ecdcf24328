package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// doJSON performs one HTTP request/response cycle with a JSON body and
// decodes a JSON reply. Deadline overruns map to ErrTimeout; every other
// failure, including a non-2xx status, maps to a TransportError. Exactly
// one round trip, no retries.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, in, out any, providerName, op string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Provider: providerName, Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &TransportError{Provider: providerName, Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return ErrTimeout
		}
		// Caller-side cancellation is not a transport failure.
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return &TransportError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{
			Provider: providerName,
			Op:       op,
			Status:   resp.StatusCode,
			Err:      errors.New(strings.TrimSpace(string(data))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Provider: providerName, Op: op, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

// isTimeout reports whether a transport failure was a deadline overrun.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// joinURL appends a path to an endpoint without doubling slashes.
func joinURL(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + path
}
