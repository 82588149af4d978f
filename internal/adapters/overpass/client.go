// Package overpass looks up amenities around a point through the OpenStreetMap Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/valyala/fasthttp"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

// amenityFilters are the OSM tag filters queried around the farmer.
var amenityFilters = []string{
	`["amenity"="hospital"]`,
	`["amenity"="clinic"]`,
	`["amenity"="pharmacy"]`,
	`["amenity"="school"]`,
	`["amenity"="bank"]`,
	`["shop"="supermarket"]`,
	`["shop"="convenience"]`,
}

// Client implements ports.PlaceProvider.
type Client struct {
	http    *fasthttp.Client
	url     string
	timeout time.Duration
}

// New creates an Overpass client for the interpreter endpoint at url.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		http:    &fasthttp.Client{Name: "paddymap", MaxConnsPerHost: 8},
		url:     url,
		timeout: timeout,
	}
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	ID   int64             `json:"id"`
	Lat  *float64          `json:"lat"`
	Lon  *float64          `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// Nearby returns amenities within radiusMeters of center. Elements without
// coordinates are skipped; unnamed ones are named after their amenity.
func (c *Client) Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters int) (places []domain.Place, err error) {
	defer metrics.ObserveExternal("overpass", time.Now(), &err)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString("data=" + url.QueryEscape(Query(center, radiusMeters)))

	if err := c.http.DoDeadline(req, resp, deadline(ctx, c.timeout)); err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("overpass: HTTP %d", resp.StatusCode())
	}

	var body response
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	places = make([]domain.Place, 0, len(body.Elements))
	for _, e := range body.Elements {
		if e.Lat == nil || e.Lon == nil {
			continue
		}
		amenity := e.Tags["amenity"]
		if amenity == "" {
			amenity = e.Tags["shop"]
		}
		if amenity == "" {
			amenity = "building"
		}
		name := e.Tags["name"]
		if name == "" {
			name = capitalize(amenity)
		}
		places = append(places, domain.Place{
			ID:       e.ID,
			Name:     name,
			Amenity:  amenity,
			Location: domain.GeoPoint{Latitude: *e.Lat, Longitude: *e.Lon},
		})
	}
	return places, nil
}

// Query builds the Overpass QL union of amenity nodes around center.
func Query(center domain.GeoPoint, radiusMeters int) string {
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusMeters, center.Latitude, center.Longitude)

	var b strings.Builder
	b.WriteString("[out:json];(")
	for _, f := range amenityFilters {
		b.WriteString("node")
		b.WriteString(f)
		b.WriteString(around)
		b.WriteString(";")
	}
	b.WriteString(");out body;")
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// deadline picks the earlier of the context deadline and now+timeout.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
