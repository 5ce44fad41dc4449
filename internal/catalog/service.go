package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/joshua0006/testraveremedy/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Service is the catalog provider: static product records behind a
// read-through cache. Cache failures are logged and bypassed.
type Service struct {
	repo  RepoInterface
	cache Cache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo RepoInterface, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	// Use singleflight so concurrent cache misses hit the repository once
	v, err, _ := s.sfg.Do(productListKey, func() (interface{}, error) {
		products, err := s.cache.GetAll(ctx)
		if err == nil {
			return products, nil
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("catalog cache get error: %v", err) // log cache error but continue
		}

		products, errGet := s.repo.GetAllProducts(ctx)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.SetAll(context.Background(), products); errSet != nil {
				log.Printf("catalog cache set error: %v", errSet)
			}
		}()

		return products, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.Product), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}
