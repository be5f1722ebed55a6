// Package cache holds the cache layers between the published catalog and
// its readers, each exposed to the publish pipeline as an Invalidator.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"roastery/config"

	"github.com/pkg/errors"
)

// revalidateClient posts invalidation requests to the page-cache
// revalidation endpoint of the rendering layer.
type revalidateClient struct {
	endpoint   string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

func newRevalidateClient(cfg *config.Config, logger *slog.Logger) *revalidateClient {
	timeout := cfg.Revalidate.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &revalidateClient{
		endpoint:   cfg.Revalidate.Endpoint,
		secret:     cfg.Revalidate.Secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type revalidateRequest struct {
	Tag   string `json:"tag,omitempty"`
	Path  string `json:"path,omitempty"`
	Scope string `json:"scope,omitempty"`
}

func (c *revalidateClient) post(ctx context.Context, payload revalidateRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("revalidation endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
