package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorage(t *testing.T) {
	assert.Nil(t, Storage(nil))

	wrapped := Storage(sql.ErrConnDone)
	assert.Equal(t, CodeStorage, CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, sql.ErrConnDone))
	assert.Equal(t, "storage failure", MessageOf(wrapped))

	business := New(CodeInsufficientStock, "available 3, requested 7")
	assert.Same(t, business, Storage(business))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("ship: %w", Newf(CodeReservedConflict, "after %d < reserved %d", 5, 10))

	assert.Equal(t, CodeReservedConflict, CodeOf(err))
	assert.Equal(t, "after 5 < reserved 10", MessageOf(err))
	assert.True(t, Is(err, CodeReservedConflict))
	assert.False(t, Is(nil, CodeReservedConflict))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeStorage, CodeOf(errors.New("driver: bad connection")))
}

func TestClassification(t *testing.T) {
	for _, code := range []Code{CodeValidation, CodeRecordNotFound, CodeInsufficientStock, CodeNegativeStock, CodeReservedConflict} {
		assert.True(t, IsBusinessRule(code), code)
		assert.False(t, Retryable(code), code)
	}
	for _, code := range []Code{CodeConcurrentStockConflict, CodeOperationInProgress, CodeStorage} {
		assert.False(t, IsBusinessRule(code), code)
		assert.True(t, Retryable(code), code)
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NegativeStock: below zero", New(CodeNegativeStock, "below zero").Error())
	assert.Equal(t, "StorageError: storage failure: boom", Wrap(CodeStorage, "storage failure", errors.New("boom")).Error())
}
