package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// Nominatim resolves free text through the OpenStreetMap search API
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a lookup against baseURL. client carries the per-call timeout.
func NewNominatim(client *http.Client, baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Lookup returns the first match for query, or nil when there is none
func (n *Nominatim) Lookup(ctx context.Context, query string) (*models.Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	first := places[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", first.Lon, err)
	}

	return &models.Location{Latitude: lat, Longitude: lon, Address: first.DisplayName}, nil
}
