package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mrops-br/product-catalog-api/internal/app/apperr"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/telemetry"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// DefaultMaxBodyBytes bounds request bodies when no limit is configured
const DefaultMaxBodyBytes int64 = 1 << 20

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service      *service.ProductService
	dispatcher   *response.Dispatcher
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewProductHandler creates a new product handler
func NewProductHandler(
	service *service.ProductService,
	dispatcher *response.Dispatcher,
	logger *slog.Logger,
	maxBodyBytes int64,
) *ProductHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &ProductHandler{
		service:      service,
		dispatcher:   dispatcher,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.ProductRequest
	if err := h.decode(w, r, &req); err != nil {
		h.dispatcher.Error(w, r, err)
		return
	}
	r = r.WithContext(telemetry.WithProductID(r.Context(), req.ProductID))

	product, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		h.dispatcher.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, product)
}

// CreateProducts handles POST /products/bulk
func (h *ProductHandler) CreateProducts(w http.ResponseWriter, r *http.Request) {
	var reqs []dto.ProductRequest
	if err := h.decode(w, r, &reqs); err != nil {
		h.dispatcher.Error(w, r, err)
		return
	}

	products, err := h.service.CreateProducts(r.Context(), reqs)
	if err != nil {
		h.dispatcher.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, products)
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.dispatcher.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/productId?productId=...
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	var productID *string
	if query := r.URL.Query(); query.Has("productId") {
		id := query.Get("productId")
		productID = &id
		r = r.WithContext(telemetry.WithProductID(r.Context(), id))
	}

	product, err := h.service.GetProductByProductID(r.Context(), productID)
	if err != nil {
		h.dispatcher.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// decode reads exactly one JSON value from a size-limited body. Any decoding
// failure, or data after the value, is classified as invalid input.
func (h *ProductHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	err := dec.Decode(v)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = errTrailingData
		}
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = fmt.Errorf("body exceeds %d bytes: %w", maxErr.Limit, err)
		}
		h.logger.DebugContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		return apperr.Wrap(apperr.InvalidInputData, err)
	}
	return nil
}
