package dto

import (
	"context"
	"encoding/json"
	"runtime"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ProductRequest represents a product as supplied by clients
type ProductRequest struct {
	ProductID    string          `json:"productId"`
	Title        string          `json:"title"`
	Brand        string          `json:"brand"`
	Manufacturer string          `json:"manufacturer"`
	Price        decimal.Decimal `json:"price"`
}

// ProductResponse represents the product response
type ProductResponse struct {
	ProductID    string          `json:"productId"`
	Title        string          `json:"title"`
	Brand        string          `json:"brand"`
	Manufacturer string          `json:"manufacturer"`
	Price        decimal.Decimal `json:"price"`
}

// MarshalJSON writes the price as a JSON number (129.99, not "129.99") with
// the exact decimal digits stored.
func (r ProductResponse) MarshalJSON() ([]byte, error) {
	type plain ProductResponse
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain(r), json.Number(r.Price.String())})
}

// ToEntity converts a ProductRequest to a domain Product without an internal id
func ToEntity(req *ProductRequest) *domain.Product {
	return &domain.Product{
		ProductID:    req.ProductID,
		Title:        req.Title,
		Brand:        req.Brand,
		Manufacturer: req.Manufacturer,
		Price:        req.Price,
	}
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ProductID:    p.ProductID,
		Title:        p.Title,
		Brand:        p.Brand,
		Manufacturer: p.Manufacturer,
		Price:        p.Price,
	}
}

// ToEntities converts a list of requests, keeping input order
func ToEntities(reqs []ProductRequest) []*domain.Product {
	products := make([]*domain.Product, len(reqs))
	for i := range reqs {
		products[i] = ToEntity(&reqs[i])
	}
	return products
}

// ToProductResponseList converts a list of domain Products, keeping input order
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}

// ToEntitiesConcurrent is ToEntities spread over a bounded worker group.
// Each worker writes its own slot, so the output order matches the input.
func ToEntitiesConcurrent(ctx context.Context, reqs []ProductRequest) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(reqs))
	err := mapConcurrent(ctx, len(reqs), func(i int) {
		products[i] = ToEntity(&reqs[i])
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ToProductResponseListConcurrent is ToProductResponseList spread over a
// bounded worker group, with the same ordering guarantee.
func ToProductResponseListConcurrent(ctx context.Context, products []*domain.Product) ([]*ProductResponse, error) {
	responses := make([]*ProductResponse, len(products))
	err := mapConcurrent(ctx, len(products), func(i int) {
		responses[i] = ToProductResponse(products[i])
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

func mapConcurrent(ctx context.Context, n int, fn func(i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	return g.Wait()
}
