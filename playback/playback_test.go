package playback_test

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/playback"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type (
	recorder struct {
		name   string
		mu     sync.Mutex
		msgs   [][]byte
		closed bool
		fail   error
	}

	registry struct {
		devices map[string]*recorder
		opened  []string
	}
)

func (r *recorder) Send(msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.msgs = append(r.msgs, slices.Clone(msg))
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) String() string { return r.name }

func (r *recorder) Messages() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.msgs)
}

func (r *recorder) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func newRegistry(names ...string) *registry {
	r := &registry{devices: map[string]*recorder{}}
	for _, n := range names {
		r.devices[n] = &recorder{name: n}
	}
	return r
}

func (r *registry) Outputs() ([]string, error) {
	var ret []string
	for n := range r.devices {
		ret = append(ret, n)
	}
	slices.Sort(ret)
	return ret, nil
}

func (r *registry) Open(name string) (midiplayer.OutputDevice, error) {
	d, ok := r.devices[name]
	if !ok {
		return nil, midiplayer.ErrDeviceSelection
	}
	d.mu.Lock()
	d.closed = false
	d.mu.Unlock()
	r.opened = append(r.opened, name)
	return d, nil
}

func (r *registry) Close() error { return nil }

// writeSong writes a song of notes quarter notes at 120 BPM with a resolution
// of 96 ticks per quarter; each quarter note lasts 500ms.
func writeSong(t *testing.T, dir, name string, notes int, noteTicks uint32) string {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	for i := 0; i < notes; i++ {
		tr.Add(0, midi.NoteOn(0, uint8(60+i%12), 100))
		tr.Add(noteTicks, midi.NoteOff(0, uint8(60+i%12)))
	}
	tr.Close(0)
	s.Add(tr)
	path := filepath.Join(dir, name)
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("could not write %v: %v", path, err)
	}
	return path
}

func readSong(t *testing.T, path string) *midiplayer.Song {
	t.Helper()
	song, err := midiplayer.ReadSong(path)
	if err != nil {
		t.Fatal(err)
	}
	return song
}

func waitDone(t *testing.T, s *playback.Session, d time.Duration) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(d):
		t.Fatalf("session did not end within %v", d)
	}
}

func noteOns(msgs [][]byte) int {
	n := 0
	var ch, key, vel uint8
	for _, m := range msgs {
		if midi.Message(m).GetNoteStart(&ch, &key, &vel) {
			n++
		}
	}
	return n
}

func TestSessionPlaysAllNotes(t *testing.T) {
	song := readSong(t, writeSong(t, t.TempDir(), "a.mid", 4, 2))
	dev := &recorder{name: "out"}
	ends := 0
	s := playback.NewSession(song, dev, 1, func(*playback.Session) { ends++ }, nil)
	s.Start()
	waitDone(t, s, 2*time.Second)
	if reason, err := s.Result(); reason != playback.Finished || err != nil {
		t.Errorf("Result() = %v, %v; expected finished", reason, err)
	}
	if ends != 1 {
		t.Errorf("onEnd called %d times, expected 1", ends)
	}
	msgs := dev.Messages()
	if len(msgs) != 8 {
		t.Fatalf("device received %d messages, expected 8", len(msgs))
	}
	if noteOns(msgs) != 4 {
		t.Errorf("device received %d note-ons, expected 4", noteOns(msgs))
	}
	if s.Running() {
		t.Error("session still running after it finished")
	}
}

func TestSessionStopReleasesNotes(t *testing.T) {
	song := readSong(t, writeSong(t, t.TempDir(), "long.mid", 2, 96*20))
	dev := &recorder{name: "out"}
	ends := 0
	s := playback.NewSession(song, dev, 1, func(*playback.Session) { ends++ }, nil)
	s.Start()
	deadline := time.Now().Add(time.Second)
	for len(dev.Messages()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	if s.Running() {
		t.Fatal("session running after Stop")
	}
	if reason, _ := s.Result(); reason != playback.Stopped {
		t.Errorf("Result() = %v, expected stopped", reason)
	}
	msgs := dev.Messages()
	var ch, key uint8
	if len(msgs) != 2 || !midi.Message(msgs[1]).GetNoteEnd(&ch, &key) || key != 60 {
		t.Errorf("expected the sounding note to be released, got %v", msgs)
	}
	s.Stop()
	if ends != 1 {
		t.Errorf("onEnd called %d times, expected 1", ends)
	}
}

func TestSessionStopBeforeStart(t *testing.T) {
	song := readSong(t, writeSong(t, t.TempDir(), "a.mid", 1, 2))
	dev := &recorder{name: "out"}
	s := playback.NewSession(song, dev, 1, nil, nil)
	s.Stop()
	s.Start()
	waitDone(t, s, time.Second)
	if len(dev.Messages()) != 0 {
		t.Error("a stopped session should never play")
	}
}

func TestSessionSpeedChange(t *testing.T) {
	// 10 notes of 48 ticks: 2.5 seconds at speed 1
	song := readSong(t, writeSong(t, t.TempDir(), "a.mid", 10, 48))
	dev := &recorder{name: "out"}
	s := playback.NewSession(song, dev, 1, nil, nil)
	if s.Length() < 2*time.Second {
		t.Fatalf("unexpected song length %v", s.Length())
	}
	start := time.Now()
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.SetSpeed(4)
	if !s.Running() {
		t.Fatal("speed change stopped the session")
	}
	if s.Speed() != 4 {
		t.Errorf("Speed() = %v, expected 4", s.Speed())
	}
	waitDone(t, s, 2*time.Second)
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("playback took %v, the speed change was not applied", elapsed)
	}
	if noteOns(dev.Messages()) != 10 {
		t.Errorf("speed change lost notes: %d note-ons", noteOns(dev.Messages()))
	}
}

func TestSessionDeviceFailure(t *testing.T) {
	song := readSong(t, writeSong(t, t.TempDir(), "a.mid", 2, 2))
	dev := &recorder{name: "out", fail: errors.New("unplugged")}
	s := playback.NewSession(song, dev, 1, nil, nil)
	s.Start()
	waitDone(t, s, time.Second)
	if reason, err := s.Result(); reason != playback.Failed || err == nil {
		t.Errorf("Result() = %v, %v; expected failed", reason, err)
	}
}

func newController(t *testing.T, reg *registry, assets string) *playback.Controller {
	t.Helper()
	c := playback.NewController(reg, assets, playback.WithRand(rand.New(rand.NewPCG(1, 2))))
	t.Cleanup(c.Close)
	return c
}

func TestControllerStartTwiceStopsFirst(t *testing.T) {
	dir := t.TempDir()
	writeSong(t, dir, "a.mid", 2, 96*20)
	reg := newRegistry("out")
	c := newController(t, reg, dir)
	if err := c.SelectDevice("out"); err != nil {
		t.Fatal(err)
	}
	var ended []*playback.Session
	var mu sync.Mutex
	c.OnFinished(func(s *playback.Session) {
		mu.Lock()
		ended = append(ended, s)
		mu.Unlock()
	})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first := c.Current()
	if first.Song().Name() != "a.mid" {
		t.Errorf("picked %v, expected a.mid", first.Song().Name())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	second := c.Current()
	if first == second {
		t.Fatal("second Start did not create a new session")
	}
	if first.Running() {
		t.Error("first session still running after second Start")
	}
	if !second.Running() || !c.IsRunning() {
		t.Error("second session is not running")
	}
	if second.Song().Name() != "a.mid" {
		t.Errorf("picked %v, expected a.mid", second.Song().Name())
	}
	mu.Lock()
	if len(ended) != 1 || ended[0] != first {
		t.Errorf("expected exactly the first session to have ended, got %v", ended)
	}
	mu.Unlock()
}

func TestControllerStopWhenStopped(t *testing.T) {
	c := newController(t, newRegistry("out"), t.TempDir())
	c.Stop()
	c.Stop()
	if c.IsRunning() || c.Current() != nil {
		t.Error("Stop on a stopped controller changed its state")
	}
}

func TestControllerSetSpeedWhileRunning(t *testing.T) {
	dir := t.TempDir()
	writeSong(t, dir, "a.mid", 2, 96*20)
	c := newController(t, newRegistry("out"), dir)
	c.SelectDevice("out")
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	s := c.Current()
	if err := c.SetSpeed(2.0); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	if c.Current() != s || !s.Running() {
		t.Error("SetSpeed interrupted the playback")
	}
	if s.Speed() != 2.0 || c.Speed() != 2.0 {
		t.Errorf("speed is %v / %v, expected 2", s.Speed(), c.Speed())
	}
}

func TestControllerSpeedValidation(t *testing.T) {
	c := newController(t, newRegistry(), t.TempDir())
	for _, v := range []float64{0, -1} {
		if err := c.SetSpeed(v); !errors.Is(err, midiplayer.ErrInvalidSpeed) {
			t.Errorf("SetSpeed(%v) = %v, expected ErrInvalidSpeed", v, err)
		}
	}
	if c.Speed() != 1 {
		t.Errorf("invalid speeds changed the speed to %v", c.Speed())
	}
	c.SetSpeed(100)
	if _, hi := c.SpeedRange(); c.Speed() != hi {
		t.Errorf("speed %v was not clamped to %v", c.Speed(), hi)
	}
}

func TestControllerSelectUnknownDevice(t *testing.T) {
	reg := newRegistry("out")
	c := newController(t, reg, t.TempDir())
	if err := c.SelectDevice("out"); err != nil {
		t.Fatal(err)
	}
	err := c.SelectDevice("missing")
	if !errors.Is(err, midiplayer.ErrDeviceSelection) {
		t.Fatalf("expected ErrDeviceSelection, got %v", err)
	}
	if c.DeviceName() != "out" {
		t.Errorf("selected device changed to %q", c.DeviceName())
	}
	if reg.devices["out"].IsClosed() {
		t.Error("previous device was closed by a failed selection")
	}
}

func TestControllerSelectDeviceClosesPrevious(t *testing.T) {
	reg := newRegistry("a", "b")
	c := newController(t, reg, t.TempDir())
	c.SelectDevice("a")
	if err := c.SelectDevice("b"); err != nil {
		t.Fatal(err)
	}
	if !reg.devices["a"].IsClosed() {
		t.Error("previous device was not closed")
	}
	if c.DeviceName() != "b" {
		t.Errorf("DeviceName() = %q, expected b", c.DeviceName())
	}
}

func TestControllerSelectDeviceWhilePlaying(t *testing.T) {
	dir := t.TempDir()
	writeSong(t, dir, "a.mid", 2, 96*20)
	reg := newRegistry("a", "b")
	c := newController(t, reg, dir)
	c.SelectDevice("a")
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	s := c.Current()
	if err := c.SelectDevice("b"); err != nil {
		t.Fatal(err)
	}
	if !s.Running() || s.Device().String() != "a" {
		t.Error("device change interrupted the running session")
	}
	if reg.devices["a"].IsClosed() {
		t.Error("device closed while still in use")
	}
	c.Stop()
	if !reg.devices["a"].IsClosed() {
		t.Error("replaced device not closed after the session ended")
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if c.Current().Device().String() != "b" {
		t.Error("next session does not use the new device")
	}
}

func TestControllerStartErrors(t *testing.T) {
	c := newController(t, newRegistry("out"), t.TempDir())
	if err := c.Start(); !errors.Is(err, midiplayer.ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
	c.SelectDevice("out")
	if err := c.Start(); !errors.Is(err, midiplayer.ErrNoPlayableFiles) {
		t.Errorf("expected ErrNoPlayableFiles, got %v", err)
	}
	if c.IsRunning() {
		t.Error("controller running after a failed Start")
	}
}

func TestControllerRandomize(t *testing.T) {
	dir := t.TempDir()
	writeSong(t, dir, "a.mid", 4, 2)
	reg := newRegistry("out")
	c := newController(t, reg, dir)
	c.SelectDevice("out")
	c.SetRandomize(true)
	if !c.Randomize() {
		t.Fatal("Randomize() = false after SetRandomize(true)")
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, c.Current(), 2*time.Second)
	if n := noteOns(reg.devices["out"].Messages()); n != 4 {
		t.Errorf("randomized song played %d note-ons, expected 4", n)
	}
}
