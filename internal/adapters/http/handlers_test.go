package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/paddymap/paddymap/internal/adapters/http"
	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/usecases"
)

// ---- Mock repositories ----

type mockShopRepo struct {
	listFn     func(ctx context.Context, limit int) ([]domain.Shop, error)
	getByIDFn  func(ctx context.Context, id string) (*domain.Shop, error)
	inBoundsFn func(ctx context.Context, b domain.Bounds) ([]domain.Shop, error)
}

func (m *mockShopRepo) UpsertBatch(ctx context.Context, s []domain.Shop) error { return nil }
func (m *mockShopRepo) List(ctx context.Context, limit int) ([]domain.Shop, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}
func (m *mockShopRepo) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
}
func (m *mockShopRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shop, error) {
	if m.inBoundsFn != nil {
		return m.inBoundsFn(ctx, b)
	}
	return nil, nil
}

type mockCenterRepo struct {
	listFn func(ctx context.Context) ([]domain.ResearchCenter, error)
}

func (m *mockCenterRepo) UpsertBatch(ctx context.Context, c []domain.ResearchCenter) error {
	return nil
}
func (m *mockCenterRepo) GetByID(ctx context.Context, id string) (*domain.ResearchCenter, error) {
	return nil, fmt.Errorf("research center %s: %w", id, domain.ErrNotFound)
}
func (m *mockCenterRepo) List(ctx context.Context) ([]domain.ResearchCenter, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockFarmerRepo struct {
	farmers []domain.Farmer
}

func (m *mockFarmerRepo) List(ctx context.Context) ([]domain.Farmer, error) { return m.farmers, nil }
func (m *mockFarmerRepo) GetByID(ctx context.Context, id string) (*domain.Farmer, error) {
	for _, f := range m.farmers {
		if f.ID == id {
			f := f
			return &f, nil
		}
	}
	return nil, fmt.Errorf("farmer %s: %w", id, domain.ErrNotFound)
}

type mockDetectionRepo struct {
	inserted []domain.Detection
	stats    *domain.DetectionStats
}

func (m *mockDetectionRepo) Insert(ctx context.Context, d *domain.Detection) error {
	m.inserted = append(m.inserted, *d)
	return nil
}
func (m *mockDetectionRepo) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Detection, error) {
	var out []domain.Detection
	for _, d := range m.inserted {
		if d.FarmerID == farmerID {
			out = append(out, d)
		}
	}
	return out, nil
}
func (m *mockDetectionRepo) Stats(ctx context.Context) (*domain.DetectionStats, error) {
	if m.stats == nil {
		return &domain.DetectionStats{ByDisease: map[string]int{}}, nil
	}
	return m.stats, nil
}
func (m *mockDetectionRepo) Treatment(ctx context.Context, disease string) (string, error) {
	return "Apply copper hydroxide", nil
}

type mockClassifier struct {
	verdict domain.Classification
	err     error
}

func (m *mockClassifier) Classify(ctx context.Context, filename string, image io.Reader) (*domain.Classification, error) {
	if m.err != nil {
		return nil, m.err
	}
	v := m.verdict
	return &v, nil
}

type mockPlaces struct {
	places []domain.Place
	err    error
}

func (m *mockPlaces) Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters int) ([]domain.Place, error) {
	return m.places, m.err
}

type mockGeocoder struct {
	result *domain.GeocodeResult
	err    error
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	return m.result, m.err
}

type mockProductRepo struct {
	products []domain.Product
}

func (m *mockProductRepo) UpsertBatch(ctx context.Context, p []domain.Product) error { return nil }
func (m *mockProductRepo) List(ctx context.Context, productType string) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range m.products {
		if productType == "" || p.Type == productType {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockRecommendationRepo struct {
	inserted []domain.Recommendation
}

func (m *mockRecommendationRepo) Insert(ctx context.Context, r *domain.Recommendation) error {
	m.inserted = append(m.inserted, *r)
	return nil
}
func (m *mockRecommendationRepo) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Recommendation, error) {
	var out []domain.Recommendation
	for _, r := range m.inserted {
		if r.FarmerID == farmerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ---- Test helpers ----

var hyderabad = domain.GeoPoint{Latitude: 17.385, Longitude: 78.486}

// northOf returns the point km kilometres due north of p.
func northOf(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Latitude: p.Latitude + km/111.195, Longitude: p.Longitude}
}

func testShops() []domain.Shop {
	return []domain.Shop{
		{ID: "1", Name: "Kisan Agro", ShopType: domain.ShopTypePesticides, Location: northOf(hyderabad, 5)},
		{ID: "2", Name: "Green Pharmacy", ShopType: domain.ShopTypeBoth, Location: northOf(hyderabad, 1)},
		{ID: "3", Name: "Far Fertilizers", ShopType: domain.ShopTypeFertilizers, Location: northOf(hyderabad, 40)},
	}
}

func shopRepo(shops []domain.Shop) *mockShopRepo {
	return &mockShopRepo{
		listFn: func(ctx context.Context, limit int) ([]domain.Shop, error) { return shops, nil },
		inBoundsFn: func(ctx context.Context, b domain.Bounds) ([]domain.Shop, error) {
			var out []domain.Shop
			for _, s := range shops {
				if b.Contains(s.Location) {
					out = append(out, s)
				}
			}
			return out, nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Shop, error) {
			for _, s := range shops {
				if s.ID == id {
					s := s
					return &s, nil
				}
			}
			return nil, fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
		},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	shops := shopRepo(testShops())
	centers := &mockCenterRepo{
		listFn: func(ctx context.Context) ([]domain.ResearchCenter, error) {
			return []domain.ResearchCenter{
				{ID: "c1", Name: "Rice Research Institute", City: "Hyderabad", Location: northOf(hyderabad, 3)},
			}, nil
		},
	}
	d := &handler.Dependencies{
		Shops:           usecases.NewShopService(shops, nil),
		Centers:         usecases.NewResearchCenterService(centers),
		Map:             usecases.NewMapService(shops, centers, nil, nil, 0),
		Detections:      usecases.NewDetectionService(&mockDetectionRepo{}, &mockClassifier{}, nil, nil),
		Farmers:         usecases.NewFarmerService(&mockFarmerRepo{}),
		Products:        usecases.NewProductService(&mockProductRepo{}, nil),
		Recommendations: usecases.NewRecommendationService(&mockRecommendationRepo{}, &mockFarmerRepo{}, nil),
		Limits:          handler.Limits{DefaultRadiusKm: 10, MaxRadiusKm: 500},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- Shop handler tests ----

func TestListShops_NoDistance(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/shops", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var shops []domain.Shop
	if err := json.NewDecoder(resp.Body).Decode(&shops); err != nil {
		t.Fatal(err)
	}
	if len(shops) != 3 {
		t.Fatalf("expected 3 shops, got %d", len(shops))
	}
	for _, s := range shops {
		if s.Distance != nil {
			t.Errorf("shop %s: expected nil distance, got %v", s.ID, *s.Distance)
		}
	}
}

func TestNearbyShops_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/shops/nearby?lat=17.385&lon=78.486&radius=10", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var shops []domain.Shop
	json.NewDecoder(resp.Body).Decode(&shops)
	if len(shops) != 2 {
		t.Fatalf("expected 2 shops within 10 km, got %d", len(shops))
	}
	if shops[0].ID != "2" || shops[1].ID != "1" {
		t.Errorf("expected nearest first [2 1], got [%s %s]", shops[0].ID, shops[1].ID)
	}
	if shops[0].Distance == nil || *shops[0].Distance != 1 {
		t.Errorf("expected distance 1.00 km, got %v", shops[0].Distance)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestNearbyShops_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/shops/nearby", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestNearbyShops_BadInput(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []struct {
		name  string
		query string
	}{
		{"latitude out of range", "lat=91&lon=78.4"},
		{"longitude out of range", "lat=17.3&lon=-181"},
		{"not a number", "lat=abc&lon=78.4"},
		{"only lat", "lat=17.3"},
		{"zero radius", "lat=17.3&lon=78.4&radius=0"},
		{"negative radius", "lat=17.3&lon=78.4&radius=-1"},
		{"radius too large", "lat=17.3&lon=78.4&radius=501"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/shops/nearby?"+tt.query, nil), -1)
			if resp.StatusCode != 400 {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestGetShop(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/shops/2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var shop domain.Shop
	json.NewDecoder(resp.Body).Decode(&shop)
	if shop.Name != "Green Pharmacy" {
		t.Errorf("unexpected shop %q", shop.Name)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/shops/99", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestGetResearchCenter_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/research-centers/nope", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Map handler tests ----

func TestMapEntities_Ranked(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/entities?lat=17.385&lon=78.486&radius=10", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var view struct {
		Center   *domain.GeoPoint      `json:"center"`
		RadiusKm float64               `json:"radius_km"`
		Entities []domain.RankedEntity `json:"entities"`
	}
	json.NewDecoder(resp.Body).Decode(&view)

	var refs []string
	for _, e := range view.Entities {
		refs = append(refs, e.Ref)
	}
	want := []string{"shop:2", "center:c1", "shop:1"}
	if strings.Join(refs, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, refs)
	}
	if view.Center == nil || view.RadiusKm != 10 {
		t.Errorf("expected center and radius 10, got %+v %v", view.Center, view.RadiusKm)
	}
}

func TestMapEntities_NoCenter(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/entities", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view struct {
		Entities []domain.RankedEntity `json:"entities"`
	}
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Entities) != 4 {
		t.Fatalf("expected all 4 entities, got %d", len(view.Entities))
	}
	for _, e := range view.Entities {
		if e.DistanceKm != 0 {
			t.Errorf("%s: expected zero distance without a center, got %v", e.Ref, e.DistanceKm)
		}
	}
}

func TestMapSearch(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/search?q=PHARM", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view struct {
		Entities []domain.RankedEntity `json:"entities"`
	}
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Entities) != 1 || view.Entities[0].Name != "Green Pharmacy" {
		t.Errorf("expected Green Pharmacy, got %+v", view.Entities)
	}
}

func TestMapSearch_EmptyTerm(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{"", "%20%20"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/search?q="+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("q=%q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestMapExport(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/map/entities.xlsx?lat=17.385&lon=78.486", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := readBody(t, resp.Body)
	// xlsx files are zip archives.
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Errorf("expected a zip archive, got %d bytes", len(body))
	}
}

func TestNearbyPlaces(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		places := &mockPlaces{places: []domain.Place{
			{ID: 7, Name: "City Hospital", Amenity: "hospital", Location: northOf(hyderabad, 0.5)},
		}}
		d.Map = usecases.NewMapService(&mockShopRepo{}, &mockCenterRepo{}, places, nil, 0)
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/places/nearby?lat=17.385&lon=78.486", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var places []domain.Place
	json.NewDecoder(resp.Body).Decode(&places)
	if len(places) != 1 || places[0].Amenity != "hospital" {
		t.Errorf("unexpected places %+v", places)
	}
}

func TestGeocode(t *testing.T) {
	tests := []struct {
		name     string
		geocoder *mockGeocoder
		query    string
		status   int
	}{
		{"found", &mockGeocoder{result: &domain.GeocodeResult{DisplayName: "Warangal", Location: hyderabad}}, "Warangal", 200},
		{"no match", &mockGeocoder{err: fmt.Errorf("geocode: %w", domain.ErrNotFound)}, "Atlantis", 404},
		{"empty", &mockGeocoder{err: domain.ErrEmptySearchTerm}, "", 400},
		{"no geocoder", nil, "Warangal", 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := makeDeps(func(d *handler.Dependencies) {
				if tt.geocoder != nil {
					d.Map = usecases.NewMapService(&mockShopRepo{}, &mockCenterRepo{}, nil, tt.geocoder, 0)
				}
			})
			app := setupApp(deps)

			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geocode?q="+tt.query, nil), -1)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

// ---- Detection handler tests ----

func detectionRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("image", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/v1/detections", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateDetection_Success(t *testing.T) {
	repo := &mockDetectionRepo{}
	deps := makeDeps(func(d *handler.Dependencies) {
		clf := &mockClassifier{verdict: domain.Classification{Disease: "Blast", Confidence: 0.93}}
		d.Detections = usecases.NewDetectionService(repo, clf, nil, nil)
	})
	app := setupApp(deps)

	req := detectionRequest(t, "leaf.JPG", []byte("\xff\xd8\xff fake jpeg"), map[string]string{
		"farmer_id": "f1", "lat": "17.385", "lon": "78.486",
	})
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var d domain.Detection
	json.NewDecoder(resp.Body).Decode(&d)
	if d.Disease != "Blast" || d.Healthy {
		t.Errorf("unexpected detection %+v", d)
	}
	if d.Treatment == "" {
		t.Error("expected treatment text for a diseased leaf")
	}
	if d.Location == nil || d.Location.Latitude != 17.385 {
		t.Errorf("expected location to be stored, got %+v", d.Location)
	}
	if len(repo.inserted) != 1 {
		t.Errorf("expected 1 stored detection, got %d", len(repo.inserted))
	}
}

func TestCreateDetection_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
	}{
		{"no image", "", nil, map[string]string{"farmer_id": "f1"}},
		{"wrong extension", "leaf.gif", []byte("GIF89a"), map[string]string{"farmer_id": "f1"}},
		{"empty image", "leaf.png", nil, map[string]string{"farmer_id": "f1"}},
		{"missing farmer", "leaf.png", []byte("png"), nil},
		{"bad latitude", "leaf.png", []byte("png"), map[string]string{"farmer_id": "f1", "lat": "95", "lon": "78"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps())
			resp, _ := app.Test(detectionRequest(t, tt.filename, tt.content, tt.fields), -1)
			if resp.StatusCode != 400 {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestCreateDetection_ClassifierDown(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		clf := &mockClassifier{err: errors.New("connection refused")}
		d.Detections = usecases.NewDetectionService(&mockDetectionRepo{}, clf, nil, nil)
	})
	app := setupApp(deps)

	resp, _ := app.Test(detectionRequest(t, "leaf.png", []byte("png"), map[string]string{"farmer_id": "f1"}), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.RequestID == "" {
		t.Error("expected request_id in error body")
	}
}

func TestDetectionStats(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		repo := &mockDetectionRepo{stats: &domain.DetectionStats{
			Total: 5, Healthy: 2, Diseased: 3, ByDisease: map[string]int{"Blast": 2, "Tungro": 1},
		}}
		d.Detections = usecases.NewDetectionService(repo, &mockClassifier{}, nil, nil)
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/detections/stats", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats domain.DetectionStats
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats.Total != 5 || stats.ByDisease["Blast"] != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-store" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

// ---- Researcher handler tests ----

func testFarmers() []domain.Farmer {
	return []domain.Farmer{
		{ID: "f1", FullName: "Ravi Kumar", Email: "ravi@example.com", City: "Warangal"},
		{ID: "f2", FullName: "Lakshmi Devi", Email: "lakshmi@example.com", City: "Guntur"},
		{ID: "f3", FullName: "Suresh Reddy", Email: "suresh@example.com", City: "Warangal"},
		{ID: "f4", FullName: "Anil Rao", Email: "anil@example.com", City: "Nalgonda"},
	}
}

func TestResearcherFarmers_Filter(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Farmers = usecases.NewFarmerService(&mockFarmerRepo{farmers: testFarmers()})
	})
	app := setupApp(deps)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"f1", "f2", "f3", "f4"}},
		{"city=Warangal", []string{"f1", "f3"}},
		{"q=LAKSHMI", []string{"f2"}},
		{"q=warangal", []string{"f1", "f3"}},
		{"q=reddy&city=Warangal", []string{"f3"}},
		{"city=warangal", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/researcher/farmers?"+tt.query, nil), -1)
			if resp.StatusCode != 200 {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			var result struct {
				Data       []domain.Farmer `json:"data"`
				Pagination handler.Pagination
			}
			json.NewDecoder(resp.Body).Decode(&result)
			var got []string
			for _, f := range result.Data {
				got = append(got, f.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResearcherFarmers_Pagination(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Farmers = usecases.NewFarmerService(&mockFarmerRepo{farmers: testFarmers()})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/researcher/farmers?city=Warangal&offset=1&limit=1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Farmer    `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 1 || result.Data[0].ID != "f3" {
		t.Errorf("expected [f3], got %+v", result.Data)
	}

	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="prev"`) || strings.Contains(link, `rel="next"`) {
		t.Errorf("unexpected Link header %q", link)
	}
	if !strings.Contains(link, "city=Warangal") {
		t.Errorf("expected filters kept in Link header, got %q", link)
	}
}

func TestCities(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Farmers = usecases.NewFarmerService(&mockFarmerRepo{farmers: testFarmers()})
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/researcher/cities", nil), -1)
	var cities []string
	json.NewDecoder(resp.Body).Decode(&cities)
	if strings.Join(cities, ",") != "Guntur,Nalgonda,Warangal" {
		t.Errorf("unexpected cities %v", cities)
	}
}

// ---- Product handler tests ----

func TestListProducts(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Products = usecases.NewProductService(&mockProductRepo{products: []domain.Product{
			{ID: "1", Name: "Mancozeb 75% WP", Type: domain.ProductTypePesticide, Price: 420, Unit: "kg", Stock: 30},
			{ID: "2", Name: "Urea", Type: domain.ProductTypeFertilizer, Price: 270, Unit: "bag", Stock: 100},
		}}, nil)
	})
	app := setupApp(deps)

	tests := []struct {
		query           string
		wantStatus      int
		wantPesticides  int
		wantFertilizers int
	}{
		{"", 200, 1, 1},
		{"?type=all", 200, 1, 1},
		{"?type=pesticide", 200, 1, 0},
		{"?type=fertilizer", 200, 0, 1},
		{"?type=seeds", 400, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/products"+tt.query, nil), -1)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantStatus != 200 {
				return
			}
			var catalog domain.ProductCatalog
			json.NewDecoder(resp.Body).Decode(&catalog)
			if len(catalog.Pesticides) != tt.wantPesticides || len(catalog.Fertilizers) != tt.wantFertilizers {
				t.Errorf("unexpected catalog %+v", catalog)
			}
			if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
				t.Errorf("unexpected Cache-Control %q", cc)
			}
		})
	}
}

// ---- Recommendation handler tests ----

func TestSendRecommendation(t *testing.T) {
	recs := &mockRecommendationRepo{}
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Recommendations = usecases.NewRecommendationService(recs, &mockFarmerRepo{farmers: testFarmers()}, nil)
	})
	app := setupApp(deps)

	body := `{"farmer_id":"f1","research_center_id":"c1","message":"Drain the field and spray Tricyclazole.","contact_method":"email"}`
	req := httptest.NewRequest("POST", "/v1/researcher/recommendations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var r domain.Recommendation
	json.NewDecoder(resp.Body).Decode(&r)
	if r.FarmerName != "Ravi Kumar" || r.Contact.Email != "ravi@example.com" {
		t.Errorf("unexpected recommendation %+v", r)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/farmers/f1/recommendations", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var history []domain.Recommendation
	json.NewDecoder(resp.Body).Decode(&history)
	if len(history) != 1 || history[0].ID != r.ID {
		t.Errorf("expected the sent recommendation in history, got %+v", history)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-store" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestSendRecommendation_BadInput(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Recommendations = usecases.NewRecommendationService(
			&mockRecommendationRepo{}, &mockFarmerRepo{farmers: testFarmers()}, nil)
	})
	app := setupApp(deps)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"not json", `farmer_id=f1`, 400},
		{"empty message", `{"farmer_id":"f1","message":" ","contact_method":"email"}`, 400},
		{"unknown method", `{"farmer_id":"f1","message":"hi","contact_method":"fax"}`, 400},
		{"unknown farmer", `{"farmer_id":"f9","message":"hi","contact_method":"phone"}`, 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/researcher/recommendations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, _ := app.Test(req, -1)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if apiErr := decodeError(t, resp.Body); apiErr.RequestID == "" {
				t.Error("expected request_id in error body")
			}
		})
	}
}

// ---- Health, GraphQL, middleware ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "not ready" {
		t.Errorf("expected status not ready, got %q", body.Status)
	}
	for _, name := range []string{"database", "nats", "cache"} {
		if body.Checks[name] != "not configured" {
			t.Errorf("check %s: expected not configured, got %q", name, body.Checks[name])
		}
	}
}

func TestGraphQL_SearchMap(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"query":"{ searchMap(term: \"agro\", lat: 17.385, lon: 78.486) { name category ref distance_km } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			SearchMap []struct {
				Name       string  `json:"name"`
				Ref        string  `json:"ref"`
				DistanceKm float64 `json:"distance_km"`
			} `json:"searchMap"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Data.SearchMap) != 1 || result.Data.SearchMap[0].Ref != "shop:1" {
		t.Fatalf("unexpected result %+v", result.Data.SearchMap)
	}
	if d := result.Data.SearchMap[0].DistanceKm; d < 4.99 || d > 5.01 {
		t.Errorf("expected ~5 km, got %v", d)
	}
}

func TestGraphQL_ShopsNearby(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"query":"{ shopsNearby(lat: 17.385, lon: 78.486, radius: 50) { id distance } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	var result struct {
		Data struct {
			ShopsNearby []struct {
				ID       string   `json:"id"`
				Distance *float64 `json:"distance"`
			} `json:"shopsNearby"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Data.ShopsNearby) != 3 {
		t.Fatalf("expected 3 shops within 50 km, got %d", len(result.Data.ShopsNearby))
	}
	if result.Data.ShopsNearby[0].ID != "2" || result.Data.ShopsNearby[0].Distance == nil {
		t.Errorf("unexpected first shop %+v", result.Data.ShopsNearby[0])
	}
}

func TestGraphQL_EmptySearchTerm(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"query":"{ searchMap(term: \"  \") { name } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) == 0 {
		t.Fatal("expected a GraphQL error for an empty term")
	}
}

func TestGraphQL_Products(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Products = usecases.NewProductService(&mockProductRepo{products: []domain.Product{
			{ID: "1", Name: "Mancozeb 75% WP", Type: domain.ProductTypePesticide, Price: 420, Unit: "kg"},
			{ID: "2", Name: "Urea", Type: domain.ProductTypeFertilizer, Price: 270, Unit: "bag"},
		}}, nil)
	})
	app := setupApp(deps)

	body := `{"query":"{ products(type: \"fertilizer\") { pesticides { name } fertilizers { name price } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Products struct {
				Pesticides  []struct{ Name string }
				Fertilizers []struct {
					Name  string
					Price float64
				}
			}
		}
		Errors []interface{}
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	got := result.Data.Products
	if len(got.Pesticides) != 0 || len(got.Fertilizers) != 1 || got.Fertilizers[0].Price != 270 {
		t.Errorf("unexpected products %+v", got)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/research-centers", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/research-centers", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}
