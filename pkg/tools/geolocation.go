package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeolocationTool answers approximate-location requests using an ip-api
// style endpoint. The server asks for this when a run needs the user's
// whereabouts (e.g. "weather near me").
type GeolocationTool struct {
	url    string
	client *http.Client
}

// NewGeolocationTool creates the tool against the given lookup endpoint.
func NewGeolocationTool(url string) *GeolocationTool {
	return &GeolocationTool{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name implements tools.Tool.
func (g *GeolocationTool) Name() string { return "geolocation" }

// Description implements tools.Tool.
func (g *GeolocationTool) Description() string {
	return "Returns the user's approximate location (city, region, country) based on their IP address."
}

// Call implements tools.Tool. The input is ignored; the lookup endpoint
// derives the location from the caller's address.
func (g *GeolocationTool) Call(ctx context.Context, _ string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation lookup failed with status %d", resp.StatusCode)
	}

	var loc struct {
		City       string `json:"city"`
		RegionName string `json:"regionName"`
		Country    string `json:"country"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, &loc); err != nil {
		return "", fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.RegionName, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("geolocation response carried no location fields")
	}
	return strings.Join(parts, ", "), nil
}
