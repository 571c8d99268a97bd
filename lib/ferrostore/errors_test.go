package ferrostore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOfUnwrapsFerrostoreError(t *testing.T) {
	err := NewError(NotFound, 0x1001, "tag not found")
	require.Equal(t, NotFound, CodeOf(err))
}

func TestCodeOfDefaultsToGenericForForeignError(t *testing.T) {
	require.Equal(t, Generic, CodeOf(errors.New("boom")))
}

func TestCodeOfNilIsOk(t *testing.T) {
	require.Equal(t, Ok, CodeOf(nil))
}

func TestNewBufferErrorCarriesRequired(t *testing.T) {
	err := NewBufferError(0x2002, 128)
	require.Equal(t, NoBufferMemory, err.Code)
	require.EqualValues(t, 128, err.Required)
}

func TestWrapErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapError(Generic, 0, "wrapped", cause)
	require.ErrorIs(t, err, cause)
}

func TestErrorMessageIncludesTagWhenNonzero(t *testing.T) {
	err := NewError(InvalidParam, 0x3003, "bad length")
	require.Contains(t, err.Error(), "0x3003")
}

func TestErrCodeStringKnownForEveryCode(t *testing.T) {
	codes := []ErrCode{Ok, Generic, InvalidParam, NotFound, NoBufferMemory,
		NoMemorySpace, NoIndexSpace, CrcFailed, Corrupted, Version, InvalidHandle, InvalidState}
	for _, c := range codes {
		require.NotEqual(t, "Unknown", c.String())
	}
}
