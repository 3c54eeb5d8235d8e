// Package reverb implements the Freeverb algorithm: eight parallel comb
// filters feeding four series allpass filters, run once per stereo
// channel with a small tuning offset between left and right to widen the
// stereo image.
package reverb

const (
	numCombs     = 8
	numAllpasses = 4
	fixedGain    = 0.015
	scaleWet     = 3.0
	scaleDamp    = 1.0
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	initialRoom  = 0.5
	initialDamp  = 0.2
	initialWet   = 1.0
	initialWidth = 1.0
	stereoSpread = 23

	// dcOffset keeps the recursive comb filters from settling into the
	// denormal range, where some FPUs slow down drastically. Freeverb's
	// original fix zeroes the float's exponent bits directly; adding a
	// tiny DC bias before the network and removing it after achieves the
	// same effect without relying on IEEE754 bit tricks.
	dcOffset = 1e-8
)

var combTuningL = [numCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var allpassTuningL = [numAllpasses]int{556, 441, 341, 225}

type comb struct {
	feedback, filterstore, damp1, damp2 float64
	buf                                  []float64
	idx                                  int
}

func newComb(size int) *comb {
	return &comb{buf: make([]float64, size)}
}

func (c *comb) setDamp(val float64) {
	c.damp1 = val
	c.damp2 = 1 - val
}

func (c *comb) process(input float64) float64 {
	out := c.buf[c.idx]
	c.filterstore = out*c.damp2 + c.filterstore*c.damp1
	c.buf[c.idx] = input + c.filterstore*c.feedback
	c.idx++
	if c.idx >= len(c.buf) {
		c.idx = 0
	}
	return out
}

type allpass struct {
	feedback float64
	buf      []float64
	idx      int
}

func newAllpass(size int) *allpass {
	return &allpass{feedback: 0.5, buf: make([]float64, size)}
}

func (a *allpass) process(input float64) float64 {
	bufout := a.buf[a.idx]
	output := bufout - input
	a.buf[a.idx] = input + bufout*a.feedback
	a.idx++
	if a.idx >= len(a.buf) {
		a.idx = 0
	}
	return output
}

// Reverb is a stereo Freeverb instance.
type Reverb struct {
	combL, combR       [numCombs]*comb
	allpassL, allpassR [numAllpasses]*allpass

	roomsize, damp, wet, wet1, wet2, width, gain float64
}

// New returns a Reverb with Freeverb's documented default parameters.
func New() *Reverb {
	r := &Reverb{gain: fixedGain}
	for i := 0; i < numCombs; i++ {
		r.combL[i] = newComb(combTuningL[i])
		r.combR[i] = newComb(combTuningL[i] + stereoSpread)
	}
	for i := 0; i < numAllpasses; i++ {
		r.allpassL[i] = newAllpass(allpassTuningL[i])
		r.allpassR[i] = newAllpass(allpassTuningL[i] + stereoSpread)
	}

	r.SetRoomSize(initialRoom)
	r.SetDamp(initialDamp)
	r.SetLevel(initialWet)
	r.SetWidth(initialWidth)
	return r
}

func (r *Reverb) update() {
	r.wet1 = r.wet * (r.width/2 + 0.5)
	r.wet2 = r.wet * ((1 - r.width) / 2)

	for i := 0; i < numCombs; i++ {
		r.combL[i].feedback = r.roomsize
		r.combR[i].feedback = r.roomsize
		r.combL[i].setDamp(r.damp)
		r.combR[i].setDamp(r.damp)
	}
}

// SetRoomSize sets the comb feedback (decay time) parameter, 0..1.
func (r *Reverb) SetRoomSize(value float64) {
	r.roomsize = value*scaleRoom + offsetRoom
	r.update()
}

// SetDamp sets the high-frequency damping parameter, 0..1.
func (r *Reverb) SetDamp(value float64) {
	r.damp = value * scaleDamp
	r.update()
}

// SetLevel sets the overall reverb wet level, 0..1.
func (r *Reverb) SetLevel(value float64) {
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	r.wet = value * scaleWet
	r.update()
}

// SetWidth sets the stereo width of the wet signal, 0..1.
func (r *Reverb) SetWidth(value float64) {
	r.width = value
	r.update()
}

// ProcessMix runs in (mono reverb send) through the network for
// len(in) samples and adds the wet stereo output into leftOut/rightOut.
func (r *Reverb) ProcessMix(in []float64, leftOut, rightOut []float32) {
	for k := range in {
		outL, outR := 0.0, 0.0
		input := (2*in[k] + dcOffset) * r.gain

		for i := 0; i < numCombs; i++ {
			outL += r.combL[i].process(input)
			outR += r.combR[i].process(input)
		}
		for i := 0; i < numAllpasses; i++ {
			outL = r.allpassL[i].process(outL)
			outR = r.allpassR[i].process(outR)
		}

		outL -= dcOffset
		outR -= dcOffset

		leftOut[k] += float32(outL*r.wet1 + outR*r.wet2)
		rightOut[k] += float32(outR*r.wet1 + outL*r.wet2)
	}
}
