// Package lfo implements the triangular low-frequency oscillators used by
// a voice's modulation and vibrato LFOs. Both share identical math in the
// original engine; this type is shared rather than duplicated per LFO.
package lfo

import "github.com/fluidbean/fluidbean/internal/conv"

// Triangle is a triangle-wave oscillator advanced once per render block
// (not once per sample), matching the original engine's per-buffer LFO
// update.
type Triangle struct {
	Val            float64
	incr           float64
	delayRemaining int
}

// Start (re)arms the oscillator: delaySamples of silence at 0 before the
// wave begins, then a triangle wave at freqCents (absolute cents)
// advancing by incr = 4*bufSize*act2hz(freqCents)/sampleRate per block.
func (t *Triangle) Start(delaySamples int, freqCents, bufSize, sampleRate float64) {
	t.Val = 0
	t.delayRemaining = delaySamples
	t.incr = 4.0 * bufSize * conv.Act2hz(freqCents) / sampleRate
}

// Next advances the oscillator by one render block and returns the
// current value in [-1,1].
func (t *Triangle) Next(bufSize int) float64 {
	if t.delayRemaining > 0 {
		t.delayRemaining -= bufSize
		return 0
	}

	t.Val += t.incr
	for t.Val > 1.0 || t.Val < -1.0 {
		if t.Val > 1.0 {
			t.Val = 2.0 - t.Val
		} else {
			t.Val = -2.0 - t.Val
		}
		t.incr = -t.incr
	}
	return t.Val
}
