package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes_Table(t *testing.T) {
	tests := []struct {
		code     Code
		key      string
		status   int
		typ      Type
		severity Severity
		label    string
	}{
		{InvalidInputData, "SB_PL_INVALID_INPUT_DATA", http.StatusBadRequest, TypeBusiness, SeverityWarn, "Invalid input data."},
		{InvalidProductID, "INVALID_PRODUCT_ID", http.StatusBadRequest, TypeBusiness, SeverityWarn, "Product Id parameter is not valid"},
		{ProductAlreadyExists, "SB_PL_PRODUCT_ALREADY_EXISTS", http.StatusConflict, TypeBusiness, SeverityWarn, "Product already exists."},
		{Unauthorized, "SB_PL_UNAUTHORIZED", http.StatusUnauthorized, TypeSecurity, SeverityWarn, "Unauthorized access."},
		{Forbidden, "SB_PL_FORBIDDEN", http.StatusForbidden, TypeSecurity, SeverityWarn, "Access denied."},
		{DatabaseError, "SB_PL_DATABASE_ERROR", http.StatusInternalServerError, TypeTechnical, SeverityError, "Database error occurred."},
		{ServiceUnavailable, "SB_PL_SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, TypeTechnical, SeverityError, "Service temporarily unavailable."},
	}

	require.Len(t, Codes(), len(tests))
	for i, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.code.Key)
			assert.Equal(t, tt.status, tt.code.Status)
			assert.Equal(t, tt.typ, tt.code.Type)
			assert.Equal(t, tt.severity, tt.code.Severity)
			assert.Equal(t, tt.label, tt.code.Label)
			assert.Equal(t, tt.code, Codes()[i])
		})
	}
}

func TestLookup(t *testing.T) {
	code, ok := Lookup("INVALID_PRODUCT_ID")
	require.True(t, ok)
	assert.Equal(t, InvalidProductID, code)

	_, ok = Lookup("INTERNAL_ERROR")
	assert.False(t, ok)
}

func TestError_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("saving: %w", Wrap(DatabaseError, cause))

	appErr, ok := From(err)
	require.True(t, ok)
	assert.Equal(t, DatabaseError, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, New(DatabaseError))
	assert.NotErrorIs(t, err, New(ServiceUnavailable))
	assert.True(t, HasCode(err, DatabaseError))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFrom_Unclassified(t *testing.T) {
	_, ok := From(errors.New("boom"))
	assert.False(t, ok)
	assert.False(t, HasCode(nil, InvalidInputData))
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARN", SeverityWarn.String())
	assert.Equal(t, "ERROR", SeverityError.String())
	assert.Equal(t, "Severity(9)", Severity(9).String())
}
