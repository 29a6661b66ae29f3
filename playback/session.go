package playback

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/midiplayer/midiplayer"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

type (
	// Session is one playback of a song through one output device. The
	// session clock runs on its own goroutine; Stop and SetSpeed can be
	// called from any goroutine.
	Session struct {
		song     *midiplayer.Song
		out      midiplayer.OutputDevice
		timeline []timedMsg
		log      *zap.Logger

		speed   atomic.Uint64 // math.Float64bits of the multiplier
		running atomic.Bool
		nudge   chan struct{}

		startOnce sync.Once
		stopOnce  sync.Once
		stop      chan struct{}
		done      chan struct{}

		// written by the session goroutine before done is closed
		reason EndReason
		err    error

		onEnd func(*Session)
	}

	// EndReason tells why a session ended.
	EndReason int

	noteSet [16][128]bool
)

const (
	Finished EndReason = iota // all events were played
	Stopped                   // Stop was called
	Failed                    // the device refused a message
)

func (r EndReason) String() string {
	switch r {
	case Finished:
		return "finished"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// NewSession prepares a session; nothing is sent before Start. onEnd, if not
// nil, is called exactly once on the session goroutine when the session ends
// for any reason.
func NewSession(song *midiplayer.Song, out midiplayer.OutputDevice, speed float64, onEnd func(*Session), log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		song:     song,
		out:      out,
		timeline: buildTimeline(song.SMF),
		log:      log,
		nudge:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		onEnd:    onEnd,
	}
	s.speed.Store(math.Float64bits(speed))
	return s
}

func (s *Session) Song() *midiplayer.Song          { return s.song }
func (s *Session) Device() midiplayer.OutputDevice { return s.out }
func (s *Session) Running() bool                   { return s.running.Load() }
func (s *Session) Speed() float64                  { return math.Float64frombits(s.speed.Load()) }

// Done is closed after the session goroutine has exited and onEnd has
// returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Length is the duration of the song at speed 1.0.
func (s *Session) Length() time.Duration {
	if len(s.timeline) == 0 {
		return 0
	}
	return s.timeline[len(s.timeline)-1].at
}

// Result returns why the session ended. Only valid after Done is closed.
func (s *Session) Result() (EndReason, error) {
	return s.reason, s.err
}

// Start begins the playback. Calling Start more than once has no effect.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.running.Store(true)
		go s.run()
	})
}

// Stop halts the playback, releases all sounding notes and waits until the
// session goroutine has exited. Stopping a session that is not running is a
// no-op. Stop must not be called from onEnd.
func (s *Session) Stop() {
	s.startOnce.Do(func() {
		// never started: make sure a later Start does nothing either
		close(s.done)
	})
	select {
	case <-s.done:
		return
	default:
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// SetSpeed changes the speed multiplier. A running session picks it up
// immediately without losing its position.
func (s *Session) SetSpeed(speed float64) {
	s.speed.Store(math.Float64bits(speed))
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Session) run() {
	var sounding noteSet
	var pos time.Duration // position in the song at speed 1.0
	i := 0
	for i < len(s.timeline) {
		ev := s.timeline[i]
		speed := s.Speed()
		if wait := time.Duration(float64(ev.at-pos) / speed); wait > 0 {
			start := time.Now()
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
				pos = ev.at
			case <-s.nudge:
				timer.Stop()
				pos = min(pos+time.Duration(float64(time.Since(start))*speed), ev.at)
				continue
			case <-s.stop:
				timer.Stop()
				s.end(&sounding, Stopped, nil)
				return
			}
		} else {
			select {
			case <-s.stop:
				s.end(&sounding, Stopped, nil)
				return
			default:
			}
		}
		if err := s.out.Send(ev.msg); err != nil {
			s.end(&sounding, Failed, err)
			return
		}
		sounding.update(ev.msg)
		i++
	}
	s.end(&sounding, Finished, nil)
}

func (s *Session) end(sounding *noteSet, reason EndReason, err error) {
	sounding.release(s.out, s.log)
	s.reason, s.err = reason, err
	s.running.Store(false)
	if err != nil {
		s.log.Warn("playback failed", zap.String("song", s.song.Name()), zap.String("device", s.out.String()), zap.Error(err))
	} else {
		s.log.Debug("playback ended", zap.String("song", s.song.Name()), zap.Stringer("reason", reason))
	}
	if s.onEnd != nil {
		s.onEnd(s)
	}
	close(s.done)
}

func (n *noteSet) update(msg []byte) {
	var ch, key, vel uint8
	m := midi.Message(msg)
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		n[ch&15][key&127] = true
	case m.GetNoteEnd(&ch, &key):
		n[ch&15][key&127] = false
	}
}

func (n *noteSet) release(out midiplayer.OutputDevice, log *zap.Logger) {
	for ch := range n {
		for key, on := range n[ch] {
			if !on {
				continue
			}
			if err := out.Send(midi.NoteOff(uint8(ch), uint8(key))); err != nil {
				log.Debug("could not release note", zap.Int("channel", ch), zap.Int("key", key), zap.Error(err))
				return
			}
			n[ch][key] = false
		}
	}
}
