package domain

import (
	"github.com/shopspring/decimal"
)

// Product represents the stored product entity.
// InternalID is assigned by the store on first save and never changes.
type Product struct {
	InternalID   string
	ProductID    string
	Title        string
	Brand        string
	Manufacturer string
	Price        decimal.Decimal
}

// Clone returns a copy of the product.
func (p *Product) Clone() *Product {
	c := *p
	return &c
}
