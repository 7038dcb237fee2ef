package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("donation not found")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, "donation not found", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Contains(t, err.Error(), "not_found")
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("settings write failed")
	err := InternalError("failed to save settings", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "settings write failed")
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Nil(t, err.Cause)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestExternalError(t *testing.T) {
	cause := fmt.Errorf("ecpay timeout")
	err := ExternalError("failed to reach donation hub", cause)

	assert.Equal(t, TypeExternal, err.Type)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
	assert.Contains(t, err.Error(), "external")
	assert.Contains(t, err.Error(), "ecpay timeout")
}

func TestWithFieldChaining(t *testing.T) {
	err := ValidationError("invalid input").
		WithField("method", "updateVolume").
		WithField("volume", 9000)

	assert.Len(t, err.Context, 2)
	assert.Equal(t, "updateVolume", err.Context["method"])
	assert.Equal(t, 9000, err.Context["volume"])
}

func TestWithField(t *testing.T) {
	err := NotFoundError("donation not found").
		WithField("unique_id", "ECPAY123")

	assert.Equal(t, "ECPAY123", err.Context["unique_id"])
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := InternalError("wrapped", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestAsStructuredError(t *testing.T) {
	original := ValidationError("bad")
	assert.Same(t, original, AsStructuredError(original))

	plain := errors.New("plain failure")
	wrapped := AsStructuredError(plain)
	assert.Equal(t, TypeInternal, wrapped.Type)
	assert.Equal(t, plain, wrapped.Cause)

	assert.Nil(t, AsStructuredError(nil))
}

func TestToResponse(t *testing.T) {
	err := ValidationError("invalid input").WithField("field", "ms")
	resp := err.ToResponse()

	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "ms", resp.Context["field"])
}
