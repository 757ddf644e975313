package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sergehoo/lynerp/internal/model"
)

// httpCheckTimeout bounds one GET attempt end to end.
const httpCheckTimeout = 3 * time.Second

// HTTPChecker verifies readiness with a GET request. Any status below 400
// counts as ready — health endpoints commonly redirect, and a redirect
// still proves the service is up and routing requests.
type HTTPChecker struct {
	name string
	url  string

	client *http.Client
}

// newHTTPChecker builds an HTTPChecker for an http:// or https:// URL.
func newHTTPChecker(name, url string) *HTTPChecker {
	return &HTTPChecker{
		name: defaultName(name, "HTTP"),
		url:  url,
		client: &http.Client{
			Timeout: httpCheckTimeout,
		},
	}
}

// Name returns the display name.
func (c *HTTPChecker) Name() string { return c.name }

// Kind returns KindHTTP.
func (c *HTTPChecker) Kind() model.DependencyKind { return model.KindHTTP }

// Target returns the probed URL.
func (c *HTTPChecker) Target() string { return c.url }

// Check performs one GET and drains nothing: the status line is the whole
// verdict.
func (c *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
