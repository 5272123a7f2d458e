package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIsKind(t *testing.T) {
	err := fmt.Errorf("create order: %w", NewStockError("Insufficient stock for %s", "Lamp"))

	assert.ErrorIs(t, err, ErrStock)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusBadRequest, AsAppError(err).Status)
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("socket closed")
	appErr := AsAppError(cause)

	assert.Equal(t, KindUnknown, appErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, cause)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NewTotalMismatchError("Total amount mismatch"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, KindTotalMismatch, body.Code)
	assert.Equal(t, "Total amount mismatch", body.Message)
}

func TestWriteErrorHidesUnknownCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("mongo: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}
