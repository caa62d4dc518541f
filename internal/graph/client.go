// Package graph talks to Microsoft Graph: the mailbox connector and the
// SharePoint report uploader share one retrying client.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"pricecase/internal/config"
	"pricecase/internal/util"
)

const maxAttempts = 5

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *util.RateLimiter
	sleep      func(ctx context.Context, d time.Duration) error
}

// APIError is a non-2xx answer that was not retried away.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error: status=%d body=%s", e.Status, e.Body)
}

// IsNotFound reports whether err is a Graph 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// NewClient authenticates with the client credentials of an app
// registration.
func NewClient(ctx context.Context, cfg config.Config) (*Client, error) {
	if err := cfg.Require("AZURE_TENANT_ID", cfg.AzureTenantID); err != nil {
		return nil, err
	}
	if err := cfg.Require("AZURE_CLIENT_ID", cfg.AzureClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("AZURE_CLIENT_SECRET", cfg.AzureClientSecret); err != nil {
		return nil, err
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.AzureClientID,
		ClientSecret: cfg.AzureClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.AzureTenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = time.Duration(cfg.GraphTimeoutMs) * time.Millisecond

	return newClient(cfg.GraphBaseURL, httpClient), nil
}

func newClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    util.NewRateLimiter(10),
		sleep:      sleepContext,
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload any, out any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	body, err := c.do(ctx, method, endpoint, blob, "application/json")
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// do sends one request and retries throttling and server errors. endpoint is
// either a path under the base URL or an absolute next link.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}
		apiErr := &APIError{Status: resp.StatusCode, Body: string(body)}
		if !isRetryableStatus(resp.StatusCode) || attempt == maxAttempts {
			return nil, apiErr
		}
		lastErr = apiErr
		wait := backoff(attempt)
		if after, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			wait = after
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("graph request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func retryAfter(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
