// Package validation checks product payloads before anything is persisted.
package validation

import (
	"strings"

	"github.com/mrops-br/product-catalog-api/internal/app/apperr"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
)

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateBulk fails the whole batch with InvalidInputData if any element
// has a blank productId. The input is returned unchanged otherwise.
func ValidateBulk(reqs []dto.ProductRequest) ([]dto.ProductRequest, error) {
	for i := range reqs {
		if IsBlank(reqs[i].ProductID) {
			return nil, apperr.New(apperr.InvalidInputData)
		}
	}
	return reqs, nil
}

// ValidateProductIDParam requires a present, non-blank product id.
func ValidateProductIDParam(id *string) (string, error) {
	if id == nil || IsBlank(*id) {
		return "", apperr.New(apperr.InvalidInputData)
	}
	return *id, nil
}

// DuplicateProductIDs returns the product ids that appear more than once
// in reqs, in order of their second occurrence.
func DuplicateProductIDs(reqs []dto.ProductRequest) []string {
	seen := make(map[string]int, len(reqs))
	var dups []string
	for i := range reqs {
		id := reqs[i].ProductID
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
