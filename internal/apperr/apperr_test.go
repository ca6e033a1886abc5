package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := Conflict("version taken")
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.True(t, Is(err, CodeConflict))
	assert.False(t, Is(err, CodeNotFound))

	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestCodeOf_Wrapped(t *testing.T) {
	inner := NotFound("deal not found")
	wrapped := fmt.Errorf("loading deal: %w", inner)
	assert.True(t, Is(wrapped, CodeNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("deal storage unavailable").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "unavailable")
}

func TestWithMeta(t *testing.T) {
	err := Forbidden("not a party").
		WithMeta("deal_id", "d-1").
		WithMeta("required_role", "buyer or seller")

	assert.Equal(t, "d-1", err.Meta["deal_id"])
	assert.Equal(t, "buyer or seller", err.Meta["required_role"])
}
