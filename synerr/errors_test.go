package synerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesOpKindAndCause(t *testing.T) {
	cause := errors.New("eof")
	err := New("LoadBank", KindBadBankFormat, cause)

	assert.Equal(t, "LoadBank: bad bank format: eof", err.Error())
}

func TestErrorMessageOmitsCauseWhenNil(t *testing.T) {
	err := New("NoteOn", KindBadArgument, nil)

	assert.Equal(t, "NoteOn: bad argument", err.Error())
}

func TestUnwrapReturnsWrappedCause(t *testing.T) {
	cause := errors.New("short read")
	err := New("LoadBank", KindBadBankFormat, cause)

	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsMatchesSentinelForSameKind(t *testing.T) {
	err := New("NoteOn", KindBankNotLoaded, nil)

	assert.True(t, errors.Is(err, ErrBankNotLoaded))
	assert.False(t, errors.Is(err, ErrBadArgument))
}

func TestKindStringCoversAllKinds(t *testing.T) {
	cases := map[Kind]string{
		KindBadArgument:            "bad argument",
		KindOutOfMemory:            "out of memory",
		KindBadBankFormat:          "bad bank format",
		KindUnsupportedBankFeature: "unsupported bank feature",
		KindVoiceExhausted:         "voice exhausted",
		KindBankNotLoaded:          "bank not loaded",
		KindTuningError:            "tuning error",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Equal(t, "unknown error", Kind(999).String())
}
