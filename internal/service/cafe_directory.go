package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cafelog/internal/util"
)

// CafeSummary is the display payload of the external cafe directory. Visits
// store only the cafe id; the directory owns the rest.
type CafeSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

type CafeDirectory interface {
	Lookup(ctx context.Context, cafeID string) (*CafeSummary, error)
}

type httpCafeDirectory struct {
	baseURL    string
	httpClient *http.Client
	redis      *util.RedisClient
}

const (
	cafeCachePrefix     = "cafe:"
	cafeCacheExpiration = 24 * time.Hour
)

// NewCafeDirectory returns a directory client backed by the external cafe
// service, with Redis caching. With an empty base URL lookups degrade to
// id-only summaries, so listings keep working without the directory.
func NewCafeDirectory(baseURL string, redis *util.RedisClient) CafeDirectory {
	return &httpCafeDirectory{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		redis: redis,
	}
}

func (d *httpCafeDirectory) Lookup(ctx context.Context, cafeID string) (*CafeSummary, error) {
	if d.baseURL == "" {
		return &CafeSummary{ID: cafeID}, nil
	}

	// Try cache first
	if d.redis != nil {
		if cached, err := d.redis.Get(cafeCachePrefix + cafeID); err == nil {
			var summary CafeSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	reqURL := fmt.Sprintf("%s/cafes/%s", d.baseURL, url.PathEscape(cafeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cafe directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cafe directory returned status %d", resp.StatusCode)
	}

	var summary CafeSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode cafe directory response: %w", err)
	}
	summary.ID = cafeID

	if d.redis != nil {
		if summaryJSON, err := json.Marshal(summary); err == nil {
			d.redis.Set(cafeCachePrefix+cafeID, string(summaryJSON), cafeCacheExpiration)
		}
	}

	return &summary, nil
}
