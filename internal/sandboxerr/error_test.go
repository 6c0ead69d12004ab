package sandboxerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryHTTPStatus(t *testing.T) {
	cases := []struct {
		cat  Category
		want int
	}{
		{CategoryClientInput, 400},
		{CategoryAuth, 401},
		{CategoryNotFound, 404},
		{CategoryConflict, 409},
		{CategoryRuntimeFailure, 500},
		{CategoryTimeout, 504},
		{CategoryUnavailable, 503},
		{CategoryUnsupported, 501},
		{CategoryUnknown, 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.cat.HTTPStatus())
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryNotFound, CategoryOf(SandboxNotFound))
	assert.Equal(t, CategoryAuth, CategoryOf(MissingAPIKey))
	assert.Equal(t, CategoryUnknown, CategoryOf(Code("NOT::A_REAL_CODE")))
}

func TestNewAndError(t *testing.T) {
	err := New(InvalidPort, "port %d out of range", 99999)
	assert.Equal(t, InvalidPort, err.Code)
	assert.Equal(t, "port 99999 out of range", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, "DOCKER::INVALID_PORT: port 99999 out of range", err.Error())
	assert.Equal(t, 400, err.HTTPStatus())
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(UnknownError, cause, "failed to reach docker daemon")

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "dial tcp: connection refused")
	assert.Contains(t, err.Error(), "failed to reach docker daemon")
}

func TestAs(t *testing.T) {
	var plain error = errors.New("boom")
	_, ok := As(plain)
	assert.False(t, ok)

	sbxErr := New(SandboxNotFound, "no sandbox %s", "abc")
	got, ok := As(sbxErr)
	require.True(t, ok)
	assert.Equal(t, SandboxNotFound, got.Code)
}
