package playback

import (
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultBPM = 120

// timedMsg is a playable message at an absolute position, measured at speed
// 1.0 from the start of the song.
type timedMsg struct {
	at  time.Duration
	msg []byte
}

// buildTimeline merges all the tracks into one list ordered by absolute
// tick. Events at the same tick keep their track order. Tempo changes are
// applied to everything after them, regardless of the track they are in.
func buildTimeline(s *smf.SMF) []timedMsg {
	type absEvent struct {
		tick  uint64
		track int
		msg   smf.Message
	}
	var events []absEvent
	for i, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			events = append(events, absEvent{tick: tick, track: i, msg: ev.Message})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].track < events[j].track
	})
	ret := make([]timedMsg, 0, len(events))
	bpm := float64(defaultBPM)
	var at time.Duration
	var prev uint64
	for _, ev := range events {
		at += tickDuration(s.TimeFormat, bpm, ev.tick-prev)
		prev = ev.tick
		var newBPM float64
		if ev.msg.GetMetaTempo(&newBPM) && newBPM > 0 {
			bpm = newBPM
			continue
		}
		if !ev.msg.IsPlayable() {
			continue
		}
		ret = append(ret, timedMsg{at: at, msg: []byte(ev.msg)})
	}
	return ret
}

func tickDuration(tf smf.TimeFormat, bpm float64, ticks uint64) time.Duration {
	switch f := tf.(type) {
	case smf.MetricTicks:
		if f == 0 {
			f = smf.MetricTicks(960)
		}
		return f.Duration(bpm, uint32(ticks))
	case smf.TimeCode:
		perSecond := uint64(f.FramesPerSecond) * uint64(f.SubFrames)
		if perSecond == 0 {
			return 0
		}
		return time.Duration(ticks * uint64(time.Second) / perSecond)
	}
	return 0
}
