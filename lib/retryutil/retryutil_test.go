package retryutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond * 4,
		Retryable: func(err error) bool {
			return errors.Is(err, errTransient)
		},
	}
}

func TestRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	out, err := Do(context.Background(), testPolicy(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, attempts)
}

func TestExhaustionSurfacesLastError(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), testPolicy(), func() (string, error) {
		attempts++
		return "", errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, attempts)
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), testPolicy(), func() (string, error) {
		attempts++
		return "", errFatal
	})
	require.ErrorIs(t, err, errFatal)
	require.Equal(t, 1, attempts)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, testPolicy(), func() (string, error) {
		return "", errTransient
	})
	require.Error(t, err)
}
