// ABOUTME: Tests for the typed error taxonomy
// ABOUTME: Verifies sentinel matching and status code extraction
package audio

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Wrap(KindWrite, "wav.Encoder.Write", errors.New("disk full"))

	assert.ErrorIs(t, err, ErrWrite)
	assert.NotErrorIs(t, err, ErrPathResolution)

	wrapped := fmt.Errorf("save failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrWrite)
	assert.Equal(t, KindWrite, KindOf(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindWrite, "op", nil))
}

func TestStatusCodeFromErrno(t *testing.T) {
	pathErr := &os.PathError{Op: "open", Path: "/nope", Err: syscall.ENOENT}
	err := Wrap(KindPathResolution, "create", pathErr)

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, int(syscall.ENOENT), e.Code)
	assert.Equal(t, "create", e.Op)
	assert.Contains(t, err.Error(), fmt.Sprintf("status %d", int(syscall.ENOENT)))
}

type codedErr int

func (c codedErr) Error() string   { return fmt.Sprintf("code %d", int(c)) }
func (c codedErr) StatusCode() int { return int(c) }

func TestStatusCodeFromCoder(t *testing.T) {
	err := Wrap(KindDeviceUnavailable, "device.Start", codedErr(-9986))
	assert.Equal(t, -9986, StatusCode(err))
}

func TestWrapStatusKeepsCode(t *testing.T) {
	err := fmt.Errorf("start failed: %w", WrapStatus(KindDeviceUnavailable, "device.Start", -2, errors.New("invalid args")))
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, -2, StatusCode(err))
	assert.NoError(t, WrapStatus(KindWrite, "op", 5, nil))
}

func TestStatusCodeNone(t *testing.T) {
	err := Errorf(KindInvalidState, "Session.Write", "session is closed")
	assert.Equal(t, NoStatus, StatusCode(err))
	assert.Equal(t, "Session.Write: invalid state: session is closed", err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestKindStrings(t *testing.T) {
	kinds := []Kind{KindDeviceUnavailable, KindPathResolution, KindFormatNegotiation,
		KindWrite, KindInvalidState, KindInvalidFormat}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert.NotEqual(t, "unknown error", s)
		assert.False(t, seen[s], "duplicate kind string %q", s)
		seen[s] = true
	}
}
