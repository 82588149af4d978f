// Package nominatim geocodes free-text place names with OpenStreetMap Nominatim.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

// Client implements ports.Geocoder.
type Client struct {
	http        *fasthttp.Client
	url         string
	countryCode string
	userAgent   string
	timeout     time.Duration
}

// New creates a Nominatim client for the search endpoint at url.
// countryCode restricts results (e.g. "in"); empty means worldwide.
func New(url, countryCode, userAgent string, timeout time.Duration) *Client {
	return &Client{
		http:        &fasthttp.Client{Name: userAgent},
		url:         url,
		countryCode: countryCode,
		userAgent:   userAgent,
		timeout:     timeout,
	}
}

type place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Geocode returns the best match for query.
func (c *Client) Geocode(ctx context.Context, query string) (res *domain.GeocodeResult, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptySearchTerm
	}
	defer metrics.ObserveExternal("nominatim", time.Now(), &err)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	args := req.URI().QueryArgs()
	args.Set("format", "json")
	args.Set("q", query)
	args.Set("limit", "1")
	if c.countryCode != "" {
		args.Set("countrycodes", c.countryCode)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.SetUserAgent(c.userAgent)

	timeout := c.timeout
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < timeout {
			timeout = left
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("nominatim: HTTP %d", resp.StatusCode())
	}

	var places []place
	if err := json.Unmarshal(resp.Body(), &places); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("location %q: %w", query, domain.ErrNotFound)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	p := domain.GeoPoint{Latitude: lat, Longitude: lon}
	if err := geospatial.ValidatePoint(p); err != nil {
		return nil, err
	}

	return &domain.GeocodeResult{DisplayName: places[0].DisplayName, Location: p}, nil
}
