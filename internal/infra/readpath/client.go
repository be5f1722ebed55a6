// Package readpath fetches the catalog the way customers see it, for
// convergence polling after a publish.
package readpath

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"roastery/config"
	"roastery/internal/domain/entity"
	"roastery/internal/domain/service"

	"github.com/pkg/errors"
)

type liveReader struct {
	endpoint   string
	httpClient *http.Client
}

// NewLiveCatalogReader creates the HTTP client the orchestrator polls
// against the public catalog endpoint.
func NewLiveCatalogReader(cfg *config.Config) service.LiveCatalogReader {
	timeout := cfg.ReadPath.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &liveReader{
		endpoint:   cfg.ReadPath.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// liveResponse mirrors the public endpoint's envelope; only the SKUs are
// needed for the convergence comparison.
type liveResponse struct {
	Data []struct {
		SKU string `json:"sku"`
	} `json:"data"`
}

// FetchLive performs a cache-busted read of the public catalog endpoint.
// The timestamp query parameter defeats URL-keyed HTTP caches; the header
// defeats shared proxies.
func (r *liveReader) FetchLive(ctx context.Context) (entity.CatalogSnapshot, error) {
	target, err := url.Parse(r.endpoint)
	if err != nil {
		return entity.CatalogSnapshot{}, errors.Wrapf(err, "parse read path url %s", r.endpoint)
	}

	query := target.Query()
	query.Set("fresh", strconv.FormatInt(time.Now().UnixNano(), 10))
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return entity.CatalogSnapshot{}, errors.WithStack(err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return entity.CatalogSnapshot{}, errors.Wrap(err, "fetch live catalog")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.CatalogSnapshot{}, errors.Errorf("read path returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return entity.CatalogSnapshot{}, errors.Wrap(err, "read live catalog body")
	}

	var payload liveResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return entity.CatalogSnapshot{}, errors.Wrap(err, "decode live catalog")
	}

	snapshot := entity.CatalogSnapshot{Count: len(payload.Data)}
	for _, item := range payload.Data {
		snapshot.SKUs = append(snapshot.SKUs, item.SKU)
	}

	return snapshot, nil
}
