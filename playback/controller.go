package playback

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/midiplayer/midiplayer"
	"go.uber.org/zap"
)

type (
	// Controller owns the selected output device and the current playback
	// session. It is not safe for concurrent use: all methods must be called
	// from the goroutine that owns the controller, typically the UI goroutine.
	// The only callback leaving the session goroutine is the OnFinished
	// observer.
	Controller struct {
		registry   midiplayer.DeviceRegistry
		assets     string
		rng        *rand.Rand
		randomizer *midiplayer.Randomizer
		randomize  bool
		speed      float64
		minSpeed   float64
		maxSpeed   float64
		log        *zap.Logger

		device  midiplayer.OutputDevice
		retired []midiplayer.OutputDevice // replaced while a session was still using them
		session *Session

		onFinished func(*Session)
	}

	// Option configures a Controller.
	Option func(*Controller)
)

const (
	DefaultMinSpeed = 0.1
	DefaultMaxSpeed = 4.0
)

// WithLogger sets the logger of the controller and its sessions.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithRand sets the random source used to pick songs and randomize notes.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithRandomizeParams sets the note randomization parameters.
func WithRandomizeParams(p midiplayer.RandomizeParams) Option {
	return func(c *Controller) { c.randomizer.Params = p }
}

// WithSpeedRange sets the range speed multipliers are clamped to.
func WithSpeedRange(lo, hi float64) Option {
	return func(c *Controller) { c.minSpeed, c.maxSpeed = lo, hi }
}

func NewController(registry midiplayer.DeviceRegistry, assets string, opts ...Option) *Controller {
	c := &Controller{
		registry:   registry,
		assets:     assets,
		speed:      1,
		minSpeed:   DefaultMinSpeed,
		maxSpeed:   DefaultMaxSpeed,
		log:        zap.NewNop(),
		randomizer: &midiplayer.Randomizer{Params: midiplayer.DefaultRandomizeParams},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		seed := uint64(time.Now().UnixNano())
		c.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	c.randomizer = midiplayer.NewRandomizer(c.rng, c.randomizer.Params)
	return c
}

// OnFinished registers the observer called once at the end of every session,
// whatever the reason. It runs on the session goroutine, so it should only
// hand the session over to the owning goroutine. Only one observer is kept.
func (c *Controller) OnFinished(f func(*Session)) {
	c.onFinished = f
}

// Devices lists the names of the available output devices.
func (c *Controller) Devices() ([]string, error) {
	names, err := c.registry.Outputs()
	if err != nil {
		if errors.Is(err, midiplayer.ErrDeviceEnumeration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", midiplayer.ErrDeviceEnumeration, err)
	}
	return names, nil
}

// SelectDevice opens the named device and closes the previous one. If the
// device cannot be opened, the previous device stays selected. A running
// session keeps playing through the device it was started with; the new
// device is used from the next Start.
func (c *Controller) SelectDevice(name string) error {
	if c.device != nil && c.device.String() == name {
		return nil
	}
	d, err := c.registry.Open(name)
	if err != nil {
		if errors.Is(err, midiplayer.ErrDeviceSelection) {
			return err
		}
		return fmt.Errorf("%w %q: %w", midiplayer.ErrDeviceSelection, name, err)
	}
	if c.device != nil {
		if c.IsRunning() && c.session.Device() == c.device {
			c.retired = append(c.retired, c.device)
		} else {
			c.closeDevice(c.device)
		}
	}
	c.device = d
	c.log.Info("output device selected", zap.String("device", name))
	return nil
}

// DeviceName returns the name of the selected device, or "" if none.
func (c *Controller) DeviceName() string {
	if c.device == nil {
		return ""
	}
	return c.device.String()
}

// Start picks a random song from the asset directory and plays it. A running
// session is stopped first, so two sessions are never heard at once.
func (c *Controller) Start() error {
	c.Stop()
	if c.device == nil {
		return midiplayer.ErrNoDevice
	}
	path, err := midiplayer.PickSong(c.assets, c.rng)
	if err != nil {
		return err
	}
	song, err := midiplayer.ReadSong(path)
	if err != nil {
		return err
	}
	if c.randomize {
		n := c.randomizer.Randomize(song.SMF)
		c.log.Debug("randomized notes", zap.String("song", song.Name()), zap.Int("notes", n))
	}
	c.session = NewSession(song, c.device, c.speed, c.onFinished, c.log)
	c.session.Start()
	c.log.Info("playback started",
		zap.String("song", song.Name()),
		zap.String("device", c.device.String()),
		zap.Float64("speed", c.speed),
		zap.Bool("randomized", c.randomize),
		zap.Duration("length", c.session.Length()))
	return nil
}

// Stop halts the running session. It is a no-op when nothing is playing.
func (c *Controller) Stop() {
	if c.IsRunning() {
		c.session.Stop()
		c.log.Info("playback stopped", zap.String("song", c.session.Song().Name()))
	}
	c.releaseRetired()
}

// SessionEnded should be called on the owning goroutine after the
// OnFinished observer has handed over s. It releases devices that were kept
// open only for s.
func (c *Controller) SessionEnded(s *Session) {
	if s != c.session {
		return
	}
	c.releaseRetired()
}

// IsRunning reports whether a session is currently playing.
func (c *Controller) IsRunning() bool {
	return c.session != nil && c.session.Running()
}

// Current returns the most recent session, running or not. It is nil before
// the first Start.
func (c *Controller) Current() *Session {
	return c.session
}

func (c *Controller) Speed() float64 {
	return c.speed
}

// SetSpeed sets the speed multiplier, clamped to the speed range, and applies
// it to the running session at once.
func (c *Controller) SetSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return fmt.Errorf("%w: %v", midiplayer.ErrInvalidSpeed, speed)
	}
	c.speed = min(max(speed, c.minSpeed), c.maxSpeed)
	if c.IsRunning() {
		c.session.SetSpeed(c.speed)
	}
	return nil
}

// SpeedRange returns the range speed multipliers are clamped to.
func (c *Controller) SpeedRange() (lo, hi float64) {
	return c.minSpeed, c.maxSpeed
}

func (c *Controller) Randomize() bool {
	return c.randomize
}

// SetRandomize toggles note randomization. It affects the next Start only.
func (c *Controller) SetRandomize(v bool) {
	c.randomize = v
}

// Close stops the session and releases the output device. The registry is
// not closed; it is owned by whoever created it.
func (c *Controller) Close() {
	c.Stop()
	if c.device != nil {
		c.closeDevice(c.device)
		c.device = nil
	}
}

func (c *Controller) releaseRetired() {
	if c.IsRunning() {
		return
	}
	for _, d := range c.retired {
		c.closeDevice(d)
	}
	c.retired = c.retired[:0]
}

func (c *Controller) closeDevice(d midiplayer.OutputDevice) {
	if err := d.Close(); err != nil {
		c.log.Warn("could not close output device", zap.String("device", d.String()), zap.Error(err))
	}
}
