package shop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockErrorCarriesDetails(t *testing.T) {
	var err error = &InsufficientStockError{ProductID: 3, Available: 2, Requested: 5}

	var serr *InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, int64(3), serr.ProductID)
	assert.Equal(t, 2, serr.Available)
	assert.Equal(t, 5, serr.Requested)
	assert.Contains(t, err.Error(), "available 2")
	assert.Contains(t, err.Error(), "requested 5")
}

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	var err error = &StorageError{Op: "commit finalize", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "commit finalize")
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("product 9: %w", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	err = fmt.Errorf("finalize: %w", ErrEmptyCart)
	assert.ErrorIs(t, err, ErrEmptyCart)
}
