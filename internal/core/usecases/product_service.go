package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/core/ports"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

// ProductService serves the pesticide and fertilizer catalog.
type ProductService struct {
	products ports.ProductRepository
	cache    ports.CacheService
}

// NewProductService creates a new ProductService. cache may be nil.
func NewProductService(products ports.ProductRepository, cache ports.CacheService) *ProductService {
	return &ProductService{products: products, cache: cache}
}

// Catalog returns the products of one type, or of every type when
// productType is "" or "all". Both lists are always present.
func (s *ProductService) Catalog(ctx context.Context, productType string) (*domain.ProductCatalog, error) {
	productType = strings.ToLower(strings.TrimSpace(productType))
	switch productType {
	case "", "all":
		productType = ""
	case domain.ProductTypePesticide, domain.ProductTypeFertilizer:
	default:
		return nil, fmt.Errorf("product type %q: %w", productType, domain.ErrInvalidInput)
	}

	cacheKey := "products:" + productType
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var catalog domain.ProductCatalog
			if err := json.Unmarshal(data, &catalog); err == nil {
				metrics.CacheHits.WithLabelValues("products").Inc()
				return &catalog, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("products").Inc()
	}

	products, err := s.products.List(ctx, productType)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	catalog := &domain.ProductCatalog{
		Pesticides:  make([]domain.Product, 0),
		Fertilizers: make([]domain.Product, 0),
	}
	for _, p := range products {
		switch p.Type {
		case domain.ProductTypePesticide:
			catalog.Pesticides = append(catalog.Pesticides, p)
		case domain.ProductTypeFertilizer:
			catalog.Fertilizers = append(catalog.Fertilizers, p)
		}
	}

	// Only the importer changes products.
	if s.cache != nil {
		if data, err := json.Marshal(catalog); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return catalog, nil
}

// UpsertBatch stores imported products.
func (s *ProductService) UpsertBatch(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		if p.Name == "" {
			return fmt.Errorf("product without name: %w", domain.ErrInvalidInput)
		}
		if p.Type != domain.ProductTypePesticide && p.Type != domain.ProductTypeFertilizer {
			return fmt.Errorf("product %q type %q: %w", p.Name, p.Type, domain.ErrInvalidInput)
		}
		if p.Price < 0 || p.Stock < 0 {
			return fmt.Errorf("product %q price or stock negative: %w", p.Name, domain.ErrInvalidInput)
		}
	}
	return s.products.UpsertBatch(ctx, products)
}
