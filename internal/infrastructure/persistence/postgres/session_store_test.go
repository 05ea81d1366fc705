package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

func TestStoreUnavailableMatchesSentinel(t *testing.T) {
	backend := errors.New("connection refused")
	err := storeUnavailable("Get", backend)
	require.Error(t, err)

	// The sentinel match is what the completion retrier, the synchronizer
	// breaker and the HTTP 503 mapping all key off.
	assert.True(t, errors.Is(err, shared.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, shared.ErrServiceUnavailable))
	assert.True(t, shared.IsRetryable(err))
	assert.ErrorContains(t, err, "connection refused")
}

func TestStoreUnavailableIsNotValidation(t *testing.T) {
	err := storeUnavailable("Mutate", errors.New("broken pipe"))
	assert.False(t, shared.IsValidation(err))
	assert.False(t, shared.IsNotFound(err))
}
