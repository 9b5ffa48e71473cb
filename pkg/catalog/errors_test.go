package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These regression-test the typed-nil pitfall: WrapStoreError/WrapIOError
// must return a true nil error interface when cause is nil, not a non-nil
// interface wrapping a nil *Error.
func TestWrapStoreErrorNilIsTrueNil(t *testing.T) {
	err := WrapStoreError("a.md", nil)
	assert.NoError(t, err)
	assert.Nil(t, err)
}

func TestWrapIOErrorNilIsTrueNil(t *testing.T) {
	err := WrapIOError("a.md", nil)
	assert.NoError(t, err)
	assert.Nil(t, err)
}

func TestWrapStoreErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapStoreError("a.md", cause)
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindStore, ce.Kind)
	assert.Equal(t, "a.md", ce.Path)
	assert.ErrorIs(t, err, cause)
}

func TestWrapIOErrorWrapsCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapIOError("b.md", cause)
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindIO, ce.Kind)
}

func TestErrorMessageFormatting(t *testing.T) {
	err := NewErrorWithHint(KindNotFound, "x/y.md", "document does not exist", "try again")
	assert.Equal(t, `document does not exist: "x/y.md". try again`, err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
