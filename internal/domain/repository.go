package domain

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateProductID = errors.New("product id already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUnstorableProduct marks a product the store cannot represent, such as
	// a price beyond the backend's decimal precision.
	ErrUnstorableProduct = errors.New("product cannot be stored")
)

// StorageError wraps any failure coming out of the document store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err for the given operation. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ProductRepository defines the contract for product storage.
//
// SaveAll and FindAll return single-use sequences: iteration drives the
// underlying I/O and a failure is yielded once as the last element.
type ProductRepository interface {
	Save(ctx context.Context, product *Product) (*Product, error)
	SaveAll(ctx context.Context, products []*Product) iter.Seq2[*Product, error]
	FindAll(ctx context.Context) iter.Seq2[*Product, error]
	FindByProductID(ctx context.Context, productID string) (*Product, error)
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[*Product, error]) ([]*Product, error) {
	products := make([]*Product, 0)
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
