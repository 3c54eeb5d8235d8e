// Command fluidplay loads a SoundFont bank, plays a single preset on
// channel 0, and either streams the rendered audio to the default
// output device or writes it to a WAV file. With no bank given at all
// it runs a MIDI-less smoke test: no note is played and silence is
// rendered, purely to exercise the render path end to end.
package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	charmlog "github.com/charmbracelet/log"

	"github.com/fluidbean/fluidbean/synth"
)

// wavChunkFrames is the request size renderToWAV hands RenderFrame each
// call; it is deliberately not a multiple of the engine's internal
// dsp.BufSize block to exercise the partial-block carryover path.
const wavChunkFrames = 1000

func main() {
	var (
		bankPath  = pflag.StringP("bank", "b", "", "path to an SF2 SoundFont file")
		bankNum   = pflag.IntP("bank-number", "B", 0, "SoundFont bank number to select")
		program   = pflag.IntP("program", "p", 0, "SoundFont program number to select")
		key       = pflag.IntP("key", "k", 60, "MIDI key to play (60 = middle C)")
		velocity  = pflag.IntP("velocity", "v", 100, "MIDI note-on velocity")
		seconds   = pflag.Float64P("seconds", "s", 2.0, "how long to hold the note before release")
		polyphony = pflag.IntP("polyphony", "n", 256, "maximum simultaneous voices")
		wavOut    = pflag.StringP("wav", "o", "", "render to this WAV file instead of the default audio device")
		verbose   = pflag.BoolP("verbose", "V", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fluidplay [flags]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := charmlog.New(os.Stderr)
	if *verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	settings := synth.DefaultSettings()
	settings.Polyphony = *polyphony

	s := synth.New(settings)
	s.SetLogger(logger)

	if *bankPath != "" {
		f, err := os.Open(*bankPath)
		if err != nil {
			logger.Fatal("open bank", "err", err)
		}
		defer f.Close()

		if err := s.LoadBank(f); err != nil {
			logger.Fatal("load bank", "err", err)
		}
		if err := s.BankSelect(0, *bankNum); err != nil {
			logger.Fatal("select bank", "err", err)
		}
		if err := s.ProgramChange(0, *program); err != nil {
			logger.Fatal("select program", "err", err)
		}
	} else {
		logger.Warn("no -bank given, running a silent smoke test")
	}

	holdFrames := int(*seconds * settings.SampleRate)
	tailFrames := int(2.0 * settings.SampleRate)

	if *bankPath != "" {
		if err := s.NoteOn(0, *key, *velocity); err != nil {
			logger.Fatal("note on", "err", err)
		}
	}

	render := func(out [][2]float32) error {
		_, err := s.RenderFrame(out)
		return err
	}

	if *wavOut != "" {
		if err := renderToWAV(*wavOut, int(settings.SampleRate), holdFrames, tailFrames, key, s, render); err != nil {
			logger.Fatal("render wav", "err", err)
		}
		return
	}

	if err := playLive(int(settings.SampleRate), holdFrames, tailFrames, key, s, render); err != nil {
		logger.Fatal("live playback", "err", err)
	}
}

// renderToWAV drives render for holdFrames samples, releases the note,
// drives it for tailFrames more to capture the release tail, and
// encodes the interleaved stereo result as a 16-bit PCM WAV file.
func renderToWAV(path string, sampleRate, holdFrames, tailFrames int, key *int, s *synth.Synth, render func(out [][2]float32) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	frames := make([][2]float32, wavChunkFrames)

	writeFrames := func(n int) error {
		for n > 0 {
			chunk := n
			if chunk > len(frames) {
				chunk = len(frames)
			}
			if err := render(frames[:chunk]); err != nil {
				return err
			}
			buf.Data = buf.Data[:0]
			for i := 0; i < chunk; i++ {
				buf.Data = append(buf.Data, floatToPCM16(frames[i][0]), floatToPCM16(frames[i][1]))
			}
			if err := enc.Write(buf); err != nil {
				return err
			}
			n -= chunk
		}
		return nil
	}

	if err := writeFrames(holdFrames); err != nil {
		return err
	}
	if err := s.NoteOff(0, *key); err != nil {
		return err
	}
	return writeFrames(tailFrames)
}

func floatToPCM16(f float32) int {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int(f * 32767)
}

// playLive streams rendered blocks to the default PortAudio output
// device, following the teacher pattern of a blocking callback loop
// wrapped behind a small struct. The host is left to choose its own
// buffer size (framesPerBuffer 0, paFramesPerBufferUnspecified) since
// RenderFrame now serves any request length directly.
func playLive(sampleRate, holdFrames, tailFrames int, key *int, s *synth.Synth, render func(out [][2]float32) error) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	var frames [][2]float32
	framesRendered := 0
	noteOffAt := holdFrames
	noteOffSent := false
	totalFrames := holdFrames + tailFrames
	done := false
	var cbErr error

	cb := func(out []float32) {
		n := len(out) / 2
		if cap(frames) < n {
			frames = make([][2]float32, n)
		}
		frames = frames[:n]
		if err := render(frames); err != nil {
			cbErr = err
			return
		}
		for i := 0; i < n; i++ {
			out[i*2] = frames[i][0]
			out[i*2+1] = frames[i][1]
		}
		framesRendered += n
		if !noteOffSent && framesRendered >= noteOffAt {
			noteOffSent = true
			if err := s.NoteOff(0, *key); err != nil {
				cbErr = err
			}
		}
		if framesRendered >= totalFrames {
			done = true
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), 0, cb)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for !done && cbErr == nil {
		portaudio.Sleep(50)
	}
	return cbErr
}
