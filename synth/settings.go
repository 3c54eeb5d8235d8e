package synth

import "github.com/fluidbean/fluidbean/internal/voice"

// Settings configures a Synth at construction time.
type Settings struct {
	SampleRate   float64
	Polyphony    int
	Interp       voice.InterpMethod
	ChorusActive bool
	ReverbActive bool
}

// DefaultSettings returns the settings a freshly constructed Synth uses
// if the caller doesn't override them: 44.1kHz, 256 voices, 7th-order
// sinc interpolation, both effects busses active.
func DefaultSettings() Settings {
	return Settings{
		SampleRate:   44100,
		Polyphony:    256,
		Interp:       voice.InterpSinc7,
		ChorusActive: true,
		ReverbActive: true,
	}
}
