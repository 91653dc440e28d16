package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

type httpClient struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

func newHTTPClient(timeout time.Duration, retries int, backoff time.Duration) *httpClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if backoff == 0 {
		backoff = 300 * time.Millisecond
	}
	return &httpClient{client: &http.Client{Timeout: timeout}, retries: retries, backoff: backoff}
}

// doJSON performs an HTTP request with retries and decodes a JSON response
// into out. Non-2xx statuses become errors carrying a capped response body.
func (c *httpClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if payload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			func() {
				defer resp.Body.Close()
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					if out == nil {
						lastErr = nil
						return
					}
					lastErr = json.NewDecoder(resp.Body).Decode(out)
					return
				}
				// read response body (best-effort) to include in error
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				lastErr = errors.New(resp.Status + ": " + string(b))
			}()
			if lastErr == nil {
				return nil
			}
		}

		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// get fetches url and returns the raw body, retrying like doJSON. Used for
// feed XML where the parser wants the whole document.
func (c *httpClient) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			b, readErr := func() ([]byte, error) {
				defer resp.Body.Close()
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					return io.ReadAll(resp.Body)
				}
				eb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return nil, errors.New(resp.Status + ": " + string(eb))
			}()
			if readErr == nil {
				return b, nil
			}
			lastErr = readErr
		}

		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
