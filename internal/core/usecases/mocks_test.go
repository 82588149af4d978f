package usecases_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/paddymap/paddymap/internal/core/domain"
)

// --- Mock ShopRepository ---

type mockShopRepo struct {
	shops      []domain.Shop
	err        error
	inBoundsN  int
	lastBounds domain.Bounds
	lastLimit  int
	upserted   []domain.Shop
}

func (m *mockShopRepo) UpsertBatch(ctx context.Context, shops []domain.Shop) error {
	m.upserted = append(m.upserted, shops...)
	return m.err
}

func (m *mockShopRepo) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	for _, s := range m.shops {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockShopRepo) List(ctx context.Context, limit int) ([]domain.Shop, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if len(m.shops) > limit {
		return m.shops[:limit], nil
	}
	return m.shops, nil
}

func (m *mockShopRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shop, error) {
	m.inBoundsN++
	m.lastBounds = b
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Shop
	for _, s := range m.shops {
		if b.Contains(s.Location) {
			out = append(out, s)
		}
	}
	return out, nil
}

// --- Mock ResearchCenterRepository ---

type mockCenterRepo struct {
	centers []domain.ResearchCenter
	err     error
}

func (m *mockCenterRepo) UpsertBatch(ctx context.Context, centers []domain.ResearchCenter) error {
	return m.err
}

func (m *mockCenterRepo) GetByID(ctx context.Context, id string) (*domain.ResearchCenter, error) {
	for _, c := range m.centers {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCenterRepo) List(ctx context.Context) ([]domain.ResearchCenter, error) {
	return m.centers, m.err
}

// --- Mock PlaceProvider ---

type mockPlaces struct {
	places []domain.Place
	err    error
	calls  int
}

func (m *mockPlaces) Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters int) ([]domain.Place, error) {
	m.calls++
	return m.places, m.err
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	result *domain.GeocodeResult
	err    error
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	return m.result, m.err
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock DetectionRepository ---

type mockDetectionRepo struct {
	inserted   []domain.Detection
	treatments map[string]string
	insertErr  error
	stats      *domain.DetectionStats
	lastLimit  int
}

func (m *mockDetectionRepo) Insert(ctx context.Context, d *domain.Detection) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, *d)
	return nil
}

func (m *mockDetectionRepo) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Detection, error) {
	m.lastLimit = limit
	var out []domain.Detection
	for _, d := range m.inserted {
		if d.FarmerID == farmerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDetectionRepo) Stats(ctx context.Context) (*domain.DetectionStats, error) {
	return m.stats, nil
}

func (m *mockDetectionRepo) Treatment(ctx context.Context, disease string) (string, error) {
	return m.treatments[disease], nil
}

// --- Mock Classifier ---

type mockClassifier struct {
	verdict  *domain.Classification
	err      error
	gotBytes []byte
	gotName  string
}

func (m *mockClassifier) Classify(ctx context.Context, filename string, image io.Reader) (*domain.Classification, error) {
	m.gotName = filename
	m.gotBytes, _ = io.ReadAll(image)
	return m.verdict, m.err
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	detections      []domain.Detection
	advice          []domain.TreatmentAdvice
	recommendations []domain.Recommendation
	err             error
}

func (m *mockPublisher) PublishDetection(ctx context.Context, d *domain.Detection) error {
	m.detections = append(m.detections, *d)
	return m.err
}

func (m *mockPublisher) PublishAdvice(ctx context.Context, a *domain.TreatmentAdvice) error {
	m.advice = append(m.advice, *a)
	return m.err
}

func (m *mockPublisher) PublishRecommendation(ctx context.Context, r *domain.Recommendation) error {
	m.recommendations = append(m.recommendations, *r)
	return m.err
}

// --- Mock AdviceStarter ---

type mockAdvice struct {
	started []string
	err     error
}

func (m *mockAdvice) StartAdvice(ctx context.Context, d *domain.Detection) error {
	m.started = append(m.started, d.ID)
	return m.err
}

// --- Mock FarmerRepository ---

type mockFarmerRepo struct {
	farmers []domain.Farmer
	err     error
}

func (m *mockFarmerRepo) List(ctx context.Context) ([]domain.Farmer, error) {
	return m.farmers, m.err
}

func (m *mockFarmerRepo) GetByID(ctx context.Context, id string) (*domain.Farmer, error) {
	for _, f := range m.farmers {
		if f.ID == id {
			f := f
			return &f, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- Mock ProductRepository ---

type mockProductRepo struct {
	products  []domain.Product
	err       error
	lastType  string
	listCalls int
	upserted  []domain.Product
}

func (m *mockProductRepo) UpsertBatch(ctx context.Context, products []domain.Product) error {
	m.upserted = append(m.upserted, products...)
	return m.err
}

func (m *mockProductRepo) List(ctx context.Context, productType string) ([]domain.Product, error) {
	m.listCalls++
	m.lastType = productType
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Product
	for _, p := range m.products {
		if productType == "" || p.Type == productType {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Mock RecommendationRepository ---

type mockRecommendationRepo struct {
	inserted  []domain.Recommendation
	insertErr error
	lastLimit int
}

func (m *mockRecommendationRepo) Insert(ctx context.Context, r *domain.Recommendation) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, *r)
	return nil
}

func (m *mockRecommendationRepo) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]domain.Recommendation, error) {
	m.lastLimit = limit
	var out []domain.Recommendation
	for _, r := range m.inserted {
		if r.FarmerID == farmerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// northOf returns the point km kilometres due north of p.
func northOf(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Latitude: p.Latitude + km/111.195, Longitude: p.Longitude}
}

var hyderabad = domain.GeoPoint{Latitude: 17.385, Longitude: 78.486}
