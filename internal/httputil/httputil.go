// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP helpers used by the OCR client.
// Requests are sent exactly once; nothing here retries.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string

	// Message is the service's error text, taken from a JSON "message" or
	// "detail" field when present, otherwise the raw body.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// Do sends req once with ctx. A non-2xx response is drained, closed and
// returned as a *StatusError.
func Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)

	return nil, &StatusError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		URL:        redact(req.URL.String()),
		Message:    errorMessage(body),
	}
}

// DoJSON sends req once and decodes a 2xx JSON body into out.
func DoJSON(ctx context.Context, client *http.Client, req *http.Request, out any) error {
	resp, err := Do(ctx, client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s %s: %w", req.Method, redact(req.URL.String()), err)
	}
	return nil
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
		Detail  any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, v := range []any{payload.Message, payload.Detail} {
			switch m := v.(type) {
			case string:
				if m != "" {
					return m
				}
			case nil:
			default:
				if b, err := json.Marshal(m); err == nil {
					return string(b)
				}
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// redact drops the query string, which may carry signed tokens.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
