package dsp

import "math"

// BufSize is the internal render granularity (samples per voice-write
// call), matching the original engine's fixed block size.
const BufSize = 64

// sincOrder is the tap count of the 7th-order windowed-sinc interpolator.
const sincOrder = 7

var (
	interpCoeffLinear [InterpMax][2]float64
	interpCoeffCubic  [InterpMax][4]float64
	sincTable7        [InterpMax][sincOrder]float64
)

func init() {
	for i := 0; i < InterpMax; i++ {
		x := float64(i) / float64(InterpMax)

		interpCoeffCubic[i][0] = x * (-0.5 + x*(1-0.5*x))
		interpCoeffCubic[i][1] = 1.0 + x*x*(1.5*x-2.5)
		interpCoeffCubic[i][2] = x * (0.5 + x*(2.0-1.5*x))
		interpCoeffCubic[i][3] = 0.5 * x * x * (x - 1.0)

		interpCoeffLinear[i][0] = 1.0 - x
		interpCoeffLinear[i][1] = x
	}

	for i := 0; i < sincOrder; i++ {
		for i2 := 0; i2 < InterpMax; i2++ {
			iShifted := float64(i) - float64(sincOrder)/2.0 + float64(i2)/float64(InterpMax)

			var v float64
			if math.Abs(iShifted) > 0.000001 {
				v = math.Sin(iShifted*math.Pi) / (math.Pi * iShifted)
				v *= 0.5 * (1.0 + math.Cos(2.0*math.Pi*iShifted/float64(sincOrder)))
			} else {
				v = 1.0
			}
			sincTable7[InterpMax-i2-1][i] = v
		}
	}
}

// State is the subset of a voice's playback position the interpolators
// read and advance. Looping selects whether the interpolator treats
// LoopStart/LoopEnd as the active playback boundary (LOOP_DURING_RELEASE,
// or LOOP_UNTIL_RELEASE while still before the release section).
type State struct {
	Phase     Phase
	PhaseIncr float64
	Amp       float64
	AmpIncr   float64

	Start, End           uint32
	LoopStart, LoopEnd   uint32
	Looping              bool
	HasLooped            bool
}

// InterpolateNone performs nearest-neighbor playback, writing up to
// BufSize samples to out and returning the count actually produced.
func InterpolateNone(s *State, data []int16, out []float32) int {
	phase := s.Phase
	incr := NewPhaseFromFloat(s.PhaseIncr)
	amp := s.Amp
	i := 0

	endIndex := s.End
	if s.Looping {
		endIndex = s.LoopEnd - 1
	}

	for {
		idx := phase.IndexRound()
		for i < BufSize && idx <= endIndex && int(i) < len(out) {
			out[i] = float32(amp) * float32(data[idx])
			phase.Incr(incr)
			idx = phase.IndexRound()
			amp += s.AmpIncr
			i++
		}

		if !s.Looping {
			break
		}
		if idx > endIndex {
			phase.SubInt(s.LoopEnd - s.LoopStart)
			s.HasLooped = true
		}
		if i >= BufSize {
			break
		}
	}

	s.Phase = phase
	s.Amp = amp
	return i
}

// InterpolateLinear performs two-tap linear interpolation.
func InterpolateLinear(s *State, data []int16, out []float32) int {
	phase := s.Phase
	incr := NewPhaseFromFloat(s.PhaseIncr)
	amp := s.Amp
	i := 0

	var endIndex uint32
	var point int16
	if s.Looping {
		endIndex = s.LoopEnd - 1 - 1
		point = data[s.LoopStart]
	} else {
		endIndex = s.End - 1
		point = data[s.End]
	}

	for {
		idx := phase.Index()
		for i < BufSize && idx <= endIndex && i < len(out) {
			c := interpCoeffLinear[phase.FractTableRow()]
			out[i] = float32(amp * (c[0]*float64(data[idx]) + c[1]*float64(data[idx+1])))
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		if i >= BufSize {
			break
		}
		endIndex++

		for idx <= endIndex && i < BufSize && i < len(out) {
			c := interpCoeffLinear[phase.FractTableRow()]
			out[i] = float32(amp * (c[0]*float64(data[idx]) + c[1]*float64(point)))
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		if !s.Looping {
			break
		}
		if idx > endIndex {
			phase.SubInt(s.LoopEnd - s.LoopStart)
			s.HasLooped = true
		}
		if i >= BufSize {
			break
		}
		endIndex--
	}

	s.Phase = phase
	s.Amp = amp
	return i
}

// InterpolateCubic performs 4th-order (cubic) interpolation using the
// Olli Niemitalo coefficient table.
func InterpolateCubic(s *State, data []int16, out []float32) int {
	phase := s.Phase
	incr := NewPhaseFromFloat(s.PhaseIncr)
	amp := s.Amp
	i := 0

	var endIndex uint32
	if s.Looping {
		endIndex = s.LoopEnd - 1 - 2
	} else {
		endIndex = s.End - 2
	}

	var startIndex uint32
	var startPoint int16
	if s.HasLooped {
		startIndex = s.LoopStart
		startPoint = data[s.LoopEnd-1]
	} else {
		startIndex = s.Start
		startPoint = data[s.Start]
	}

	var endPoint1, endPoint2 int16
	if s.Looping {
		endPoint1 = data[s.LoopStart]
		endPoint2 = data[s.LoopStart+1]
	} else {
		endPoint1 = data[s.End]
		endPoint2 = endPoint1
	}

	for {
		idx := phase.Index()

		for idx == startIndex && i < BufSize && i < len(out) {
			c := interpCoeffCubic[phase.FractTableRow()]
			out[i] = float32(amp * (c[0]*float64(startPoint) + c[1]*float64(data[idx]) +
				c[2]*float64(data[idx+1]) + c[3]*float64(data[idx+2])))
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		for i < BufSize && idx <= endIndex && i < len(out) {
			c := interpCoeffCubic[phase.FractTableRow()]
			out[i] = float32(amp * (c[0]*float64(data[idx-1]) + c[1]*float64(data[idx]) +
				c[2]*float64(data[idx+1]) + c[3]*float64(data[idx+2])))
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		if i >= BufSize {
			break
		}
		endIndex++

		for idx <= endIndex && i < BufSize && i < len(out) {
			c := interpCoeffCubic[phase.FractTableRow()]
			out[i] = float32(amp * (c[0]*float64(data[idx-1]) + c[1]*float64(data[idx]) +
				c[2]*float64(data[idx+1]) + c[3]*float64(endPoint1)))
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		endIndex++
		for idx <= endIndex && i < BufSize && i < len(out) {
			c := interpCoeffCubic[phase.FractTableRow()]
			out[i] = float32(amp * (c[0]*float64(data[idx-1]) + c[1]*float64(data[idx]) +
				c[2]*float64(endPoint1) + c[3]*float64(endPoint2)))
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		if !s.Looping {
			break
		}
		if idx > endIndex {
			phase.SubInt(s.LoopEnd - s.LoopStart)
			if !s.HasLooped {
				s.HasLooped = true
				startIndex = s.LoopStart
				startPoint = data[s.LoopEnd-1]
			}
		}
		if i >= BufSize {
			break
		}
		endIndex -= 2
	}

	s.Phase = phase
	s.Amp = amp
	return i
}

// InterpolateSinc7 performs 7th-order windowed-sinc interpolation,
// centered on the 4th tap (hence the +/- half-sample phase bias).
func InterpolateSinc7(s *State, data []int16, out []float32) int {
	phase := s.Phase
	phase.Incr(Phase(0x80000000))
	incr := NewPhaseFromFloat(s.PhaseIncr)
	amp := s.Amp
	i := 0

	var endIndex uint32
	if s.Looping {
		endIndex = s.LoopEnd - 1 - 3
	} else {
		endIndex = s.End - 3
	}

	var startIndex uint32
	var startPoints [3]int16
	if s.HasLooped {
		startIndex = s.LoopStart
		startPoints[0] = data[s.LoopEnd-1]
		startPoints[1] = data[s.LoopEnd-2]
		startPoints[2] = data[s.LoopEnd-3]
	} else {
		startIndex = s.Start
		startPoints[0] = data[s.Start]
		startPoints[1] = startPoints[0]
		startPoints[2] = startPoints[0]
	}

	var endPoints [3]int16
	if s.Looping {
		endPoints[0] = data[s.LoopStart]
		endPoints[1] = data[s.LoopStart+1]
		endPoints[2] = data[s.LoopStart+2]
	} else {
		endPoints[0] = data[s.End]
		endPoints[1] = endPoints[0]
		endPoints[2] = endPoints[0]
	}

	write := func(coeffs [sincOrder]float64, taps [sincOrder]float64) {
		var acc float64
		for k := 0; k < sincOrder; k++ {
			acc += coeffs[k] * taps[k]
		}
		out[i] = float32(amp * acc)
	}

	for {
		idx := phase.Index()

		for idx == startIndex && i < BufSize && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(startPoints[2]), float64(startPoints[1]), float64(startPoints[0]),
				float64(data[idx]), float64(data[idx+1]), float64(data[idx+2]), float64(data[idx+3]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}
		startIndex++

		for idx == startIndex && i < BufSize && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(startPoints[1]), float64(startPoints[0]), float64(data[idx-1]),
				float64(data[idx]), float64(data[idx+1]), float64(data[idx+2]), float64(data[idx+3]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}
		startIndex++

		for idx == startIndex && i < BufSize && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(startPoints[0]), float64(data[idx-2]), float64(data[idx-1]),
				float64(data[idx]), float64(data[idx+1]), float64(data[idx+2]), float64(data[idx+3]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}
		startIndex -= 2

		for i < BufSize && idx <= endIndex && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(data[idx-3]), float64(data[idx-2]), float64(data[idx-1]), float64(data[idx]),
				float64(data[idx+1]), float64(data[idx+2]), float64(data[idx+3]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		if i >= BufSize {
			break
		}
		endIndex++
		for idx <= endIndex && i < BufSize && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(data[idx-3]), float64(data[idx-2]), float64(data[idx-1]), float64(data[idx]),
				float64(data[idx+1]), float64(data[idx+2]), float64(endPoints[0]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		endIndex++
		for idx <= endIndex && i < BufSize && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(data[idx-3]), float64(data[idx-2]), float64(data[idx-1]), float64(data[idx]),
				float64(data[idx+1]), float64(endPoints[0]), float64(endPoints[1]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		endIndex++
		for idx <= endIndex && i < BufSize && i < len(out) {
			c := sincTable7[phase.FractTableRow()]
			write(c, [sincOrder]float64{
				float64(data[idx-3]), float64(data[idx-2]), float64(data[idx-1]), float64(data[idx]),
				float64(endPoints[0]), float64(endPoints[1]), float64(endPoints[2]),
			})
			phase.Incr(incr)
			idx = phase.Index()
			amp += s.AmpIncr
			i++
		}

		if !s.Looping {
			break
		}
		if idx > endIndex {
			phase.SubInt(s.LoopEnd - s.LoopStart)
			if !s.HasLooped {
				s.HasLooped = true
				startIndex = s.LoopStart
				startPoints[0] = data[s.LoopEnd-1]
				startPoints[1] = data[s.LoopEnd-2]
				startPoints[2] = data[s.LoopEnd-3]
			}
		}
		if i >= BufSize {
			break
		}
		endIndex -= 3
	}

	phase.Decr(Phase(0x80000000))
	s.Phase = phase
	s.Amp = amp
	return i
}
