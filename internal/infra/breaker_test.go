package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRelay = errors.New("relay down")

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Execute(func() error { return errRelay })
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, 1, time.Minute)
	assert.Equal(t, "closed", b.State())

	failN(b, 2)
	assert.Equal(t, "closed", b.State())

	failN(b, 1)
	assert.Equal(t, "open", b.State())

	// fast-fail without invoking fn
	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, 1, time.Minute)

	failN(b, 2)
	require.NoError(t, b.Execute(func() error { return nil }))
	failN(b, 2)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, 2, 10*time.Millisecond)

	failN(b, 1)
	assert.Equal(t, "open", b.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, "half-open", b.State())

	// a failed probe trips it straight back open
	_ = b.Execute(func() error { return errRelay })
	assert.Equal(t, "open", b.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, "half-open", b.State()) // one of two successes
	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_DefaultsOnBadArguments(t *testing.T) {
	b := NewBreaker(0, -1, 0)
	failN(b, 4)
	assert.Equal(t, "closed", b.State())
	failN(b, 1)
	assert.Equal(t, "open", b.State())
}
