package xerrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := Domain("cart is full")
	assert.Equal(t, "[Domain] cart is full", err.Error())

	cause := errors.New("boom")
	wrapped := TransientInfra("append failed", cause)
	assert.Contains(t, wrapped.Error(), "boom")
	assert.ErrorIs(t, wrapped, cause)
}

func TestIs(t *testing.T) {
	err := Conflict("query version mismatch")
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindDomain))
	assert.False(t, Is(errors.New("plain"), KindConflict))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[*Error]int{
		Domain("x"):              http.StatusUnprocessableEntity,
		Conflict("x"):            http.StatusConflict,
		TransientInfra("x", nil): http.StatusInternalServerError,
		PermanentInfra("x", nil): http.StatusInternalServerError,
		TaskFailure("x", nil):    http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, err.HTTPStatus())
	}
}

func TestWithContext(t *testing.T) {
	err := Domain("cart full").WithContext("cart_id", "c-1")
	assert.Equal(t, "c-1", err.Context["cart_id"])
}
