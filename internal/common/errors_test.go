package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMatchesByCode(t *testing.T) {
	sentinel := NewAppError("invalid_price", "product price must be zero or greater", nil)
	detailed := sentinel.WithDetails(map[string]any{"index": 2})

	require.ErrorIs(t, detailed, sentinel)
	require.ErrorIs(t, fmt.Errorf("checkout: %w", detailed), sentinel)
	require.NotErrorIs(t, detailed, NewAppError("invalid_cart", "cart is empty or was not found", nil))
	require.Nil(t, sentinel.Details)
}

func TestAppErrorWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := NewAppError("stock_decrement_failed", "failed to decrement stock", nil).Wrap(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "failed to decrement stock: redis: connection refused", err.Error())
	require.True(t, IsAppError(err))
	require.Equal(t, "stock_decrement_failed", CodeOf(fmt.Errorf("outer: %w", err)))
}

func TestCodeOfPlainError(t *testing.T) {
	require.Empty(t, CodeOf(errors.New("boom")))
	require.False(t, IsAppError(nil))
}
