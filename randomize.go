package midiplayer

import (
	"math/rand/v2"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type (
	// RandomizeParams controls how much each note-on event is jittered. The
	// ranges are inclusive.
	RandomizeParams struct {
		TimingJitter         uint32  `yaml:"timing_jitter"` // delta grows by [0, TimingJitter) ticks
		NoteShiftProbability float64 `yaml:"note_shift_probability"`
		NoteShift            [2]int  `yaml:"note_shift,flow"`
		VelocityThreshold    uint8   `yaml:"velocity_threshold"` // only velocities above this are jittered
		VelocityJitter       [2]int  `yaml:"velocity_jitter,flow"`
	}

	// Randomizer makes a song sound less mechanical, or more lame, depending
	// on who you ask.
	Randomizer struct {
		Params RandomizeParams
		rng    *rand.Rand
	}
)

// DefaultRandomizeParams shifts notes down by at most one semitone. An
// upward shift was never part of the distribution.
var DefaultRandomizeParams = RandomizeParams{
	TimingJitter:         10,
	NoteShiftProbability: 0.9,
	NoteShift:            [2]int{-1, 0},
	VelocityThreshold:    4,
	VelocityJitter:       [2]int{-4, 3},
}

func NewRandomizer(rng *rand.Rand, params RandomizeParams) *Randomizer {
	return &Randomizer{Params: params, rng: rng}
}

// Randomize mutates every note-on event of the song in place and returns the
// number of events touched. Note-ons with velocity 0 end a note and are left
// alone. Events are never added or removed.
func (r *Randomizer) Randomize(s *smf.SMF) int {
	var ch, key, vel uint8
	count := 0
	for i := range s.Tracks {
		for j := range s.Tracks[i] {
			ev := &s.Tracks[i][j]
			if !ev.Message.GetNoteStart(&ch, &key, &vel) {
				continue
			}
			if r.Params.TimingJitter > 0 {
				ev.Delta += r.rng.Uint32N(r.Params.TimingJitter)
			}
			if r.rng.Float64() < r.Params.NoteShiftProbability {
				key = clamp7(int(key) + r.intIn(r.Params.NoteShift))
			}
			if vel > r.Params.VelocityThreshold {
				vel = clamp7(int(vel) + r.intIn(r.Params.VelocityJitter))
			}
			ev.Message = smf.Message(midi.NoteOn(ch, key, vel))
			count++
		}
	}
	return count
}

func (r *Randomizer) intIn(rng [2]int) int {
	lo, hi := rng[0], rng[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.rng.IntN(hi-lo+1)
}

func clamp7(v int) uint8 {
	return uint8(min(max(v, 0), 127))
}
