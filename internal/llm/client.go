package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var defaultHTTPClient = &http.Client{
	Timeout: 10 * time.Minute,
}

// Client makes raw HTTP calls to a responses-compliant streaming endpoint.
// It holds no conversation state: continuity (previous_response_id) is owned
// by the caller and travels on each Request.
type Client struct {
	BaseURL       string            // Full URL for the responses endpoint
	GetAuthHeader func() string     // Dynamic auth (allows token refresh)
	ExtraHeaders  map[string]string // Provider-specific headers
	HTTPClient    *http.Client
}

// NormalizeBaseURL resolves a user-supplied base URL to a responses
// endpoint: a bare host gets https, a trailing slash is dropped, and the
// /v1/responses path is appended unless a path is already present.
func NormalizeBaseURL(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("base URL is empty")
	}
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: missing host", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.Path == "" {
		u.Path = "/v1/responses"
	}
	return u.String(), nil
}

// Stream issues a streaming request and returns the canonical event
// sequence. Transport errors and non-200 responses surface before the
// stream is created so callers can retry; once streaming, errors arrive
// through Recv.
func (c *Client) Stream(ctx context.Context, req Request, debugRaw bool) (Stream, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if debugRaw {
		var prettyBody bytes.Buffer
		json.Indent(&prettyBody, body, "", "  ")
		debugSection(debugRaw, "Responses Request", prettyBody.String())
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.GetAuthHeader != nil {
		httpReq.Header.Set("Authorization", c.GetAuthHeader())
	}
	for key, value := range c.ExtraHeaders {
		httpReq.Header.Set(key, value)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("responses request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("responses authentication failed (status %d): token may be invalid or expired", resp.StatusCode)
		}
		return nil, fmt.Errorf("responses error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- StreamEvent) error {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		var lastEventType string
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				lastEventType = strings.TrimPrefix(line, "event: ")
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			if debugRaw {
				debugSection(debugRaw, "SSE Line (event="+lastEventType+")", data)
			}

			ev := ParseStreamEvent(lastEventType, []byte(data))
			lastEventType = ""

			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}

			if ev.Type == EventCompleted || ev.Type == EventIncomplete {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("responses streaming error: %w", err)
		}
		return nil
	}), nil
}
