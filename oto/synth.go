package oto

import (
	"math"
	"sync"

	"github.com/viterin/vek/vek32"
	"gitlab.com/gomidi/midi/v2"
)

const (
	SampleRate   = 44100
	ChannelCount = 2

	maxVoices   = 32
	voiceGain   = 0.15
	releaseTime = 0.08 // seconds
)

type (
	// Synth is a tiny polyphonic sine synthesizer. MIDI messages go in through
	// Send, float32 stereo frames come out through Read; both can be called
	// from different goroutines.
	Synth struct {
		mu     sync.Mutex
		voices []voice
		mix    []float32
		tmp    []float32
		buf    []byte
	}

	voice struct {
		channel, key uint8
		phase, step  float64
		amp          float32
		releasing    bool
	}
)

func NewSynth() *Synth {
	return &Synth{}
}

// Send handles note on, note off and the all notes off / all sound off
// controllers. Other messages are ignored.
func (s *Synth) Send(msg []byte) error {
	var ch, key, vel, ctl, val uint8
	m := midi.Message(msg)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		s.noteOn(ch, key, vel)
	case m.GetNoteEnd(&ch, &key):
		s.noteOff(ch, key)
	case m.GetControlChange(&ch, &ctl, &val):
		if ctl == 120 || ctl == 123 {
			for i := range s.voices {
				if s.voices[i].channel == ch {
					s.voices[i].releasing = true
				}
			}
		}
	}
	return nil
}

// Voices returns the number of voices currently sounding, including the ones
// fading out.
func (s *Synth) Voices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

func (s *Synth) noteOn(ch, key, vel uint8) {
	s.noteOff(ch, key)
	if len(s.voices) >= maxVoices {
		s.voices = s.voices[1:]
	}
	freq := 440 * math.Pow(2, (float64(key)-69)/12)
	s.voices = append(s.voices, voice{
		channel: ch,
		key:     key,
		step:    2 * math.Pi * freq / SampleRate,
		amp:     voiceGain * float32(vel) / 127,
	})
}

func (s *Synth) noteOff(ch, key uint8) {
	for i := range s.voices {
		if v := &s.voices[i]; v.channel == ch && v.key == key {
			v.releasing = true
		}
	}
}

// Read renders as many whole frames as fit in p, in 32-bit little-endian
// float format. It never blocks and never returns an error; silence is
// rendered when no voice is sounding.
func (s *Synth) Read(p []byte) (int, error) {
	frames := len(p) / (4 * ChannelCount)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render(frames)
	s.buf = floatBufferTo32BitLE(s.mix, s.buf[:0])
	return copy(p, s.buf), nil
}

func (s *Synth) render(frames int) {
	s.mix = grow(s.mix, frames*ChannelCount)
	s.tmp = grow(s.tmp, frames*ChannelCount)
	vek32.Zeros_Into(s.mix, len(s.mix))
	decay := float32(math.Exp(-1 / (releaseTime * SampleRate)))
	kept := s.voices[:0]
	for _, v := range s.voices {
		for i := 0; i < frames; i++ {
			sample := float32(math.Sin(v.phase))
			s.tmp[2*i], s.tmp[2*i+1] = sample, sample
			v.phase += v.step
			if v.releasing {
				// fold the release envelope into the sample, as the gain below
				// is constant for the whole buffer
				v.amp *= decay
				s.tmp[2*i] *= v.amp
				s.tmp[2*i+1] *= v.amp
			}
		}
		v.phase = math.Mod(v.phase, 2*math.Pi)
		if !v.releasing {
			vek32.MulNumber_Inplace(s.tmp, v.amp)
		}
		vek32.Add_Inplace(s.mix, s.tmp)
		if !v.releasing || v.amp > 1e-4 {
			kept = append(kept, v)
		}
	}
	s.voices = kept
}

func grow(b []float32, n int) []float32 {
	if cap(b) < n {
		return make([]float32, n)
	}
	return b[:n]
}
