package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paddymap/paddymap/internal/core/domain"
)

func TestQuery(t *testing.T) {
	q := Query(domain.GeoPoint{Latitude: 17.385, Longitude: 78.486}, 2000)

	if !strings.HasPrefix(q, "[out:json];") {
		t.Errorf("query must request JSON: %s", q)
	}
	for _, want := range []string{`node["amenity"="pharmacy"](around:2000,17.385000,78.486000);`, `node["shop"="convenience"]`} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %s: %s", want, q)
		}
	}
}

func TestNearby(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if !strings.Contains(r.PostForm.Get("data"), "around:2000") {
			t.Errorf("unexpected query %q", r.PostForm.Get("data"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":17.39,"lon":78.49,"tags":{"amenity":"pharmacy","name":"Green Pharmacy"}},
			{"type":"node","id":2,"lat":17.38,"lon":78.48,"tags":{"amenity":"hospital"}},
			{"type":"node","id":3,"lat":17.37,"lon":78.47,"tags":{"shop":"supermarket","name":"Ratnadeep"}},
			{"type":"way","id":4,"tags":{"building":"yes"}}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	places, err := c.Nearby(context.Background(), domain.GeoPoint{Latitude: 17.385, Longitude: 78.486}, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 3 {
		t.Fatalf("expected 3 places (way without coordinates skipped), got %d", len(places))
	}
	if places[1].Name != "Hospital" {
		t.Errorf("expected unnamed hospital to be called Hospital, got %q", places[1].Name)
	}
	if places[2].Amenity != "supermarket" {
		t.Errorf("expected shop tag used as amenity, got %q", places[2].Amenity)
	}
}

func TestNearby_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.Nearby(context.Background(), domain.GeoPoint{}, 2000); err == nil {
		t.Fatal("expected error on HTTP 429")
	}
}
