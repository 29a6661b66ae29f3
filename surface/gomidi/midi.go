package gomidi

import (
	"fmt"
	"sync"

	"github.com/midiplayer/midiplayer"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIRegistry lists the MIDI output ports of the system through
	// rtmidi.
	RTMIDIRegistry struct {
		driver *rtmididrv.Driver
		err    error

		mu    sync.Mutex
		ports map[string]*port
	}

	port struct {
		out  drivers.Out
		refs int
	}

	// RTMIDIDevice is an opened output port. The same port may be opened more
	// than once; it is closed when the last RTMIDIDevice using it is.
	RTMIDIDevice struct {
		registry *RTMIDIRegistry
		out      drivers.Out
		once     sync.Once
	}
)

// Open the driver.
func NewRegistry() *RTMIDIRegistry {
	r := &RTMIDIRegistry{ports: map[string]*port{}}
	// the error is reported when the devices are first listed, so the
	// application can still start without MIDI ports
	r.driver, r.err = rtmididrv.New()
	return r
}

func (r *RTMIDIRegistry) Outputs() ([]string, error) {
	outs, err := r.outs()
	if err != nil {
		return nil, err
	}
	ret := make([]string, len(outs))
	for i, o := range outs {
		ret[i] = o.String()
	}
	return ret, nil
}

// Open opens the port whose name matches name exactly.
func (r *RTMIDIRegistry) Open(name string) (midiplayer.OutputDevice, error) {
	outs, err := r.outs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", midiplayer.ErrDeviceSelection, err)
	}
	for _, o := range outs {
		if o.String() != name {
			continue
		}
		p, err := r.acquire(o)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", midiplayer.ErrDeviceSelection, name, err)
		}
		return &RTMIDIDevice{registry: r, out: p.out}, nil
	}
	return nil, fmt.Errorf("%w: no device called %q", midiplayer.ErrDeviceSelection, name)
}

func (r *RTMIDIRegistry) Close() error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Close()
}

func (r *RTMIDIRegistry) outs() ([]drivers.Out, error) {
	if r.driver == nil {
		return nil, fmt.Errorf("%w: %w", midiplayer.ErrDeviceEnumeration, r.err)
	}
	outs, err := r.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", midiplayer.ErrDeviceEnumeration, err)
	}
	return outs, nil
}

// acquire opens o, or reuses the port with the same name if it is still
// open.
func (r *RTMIDIRegistry) acquire(o drivers.Out) (*port, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[o.String()]
	if !ok {
		if err := o.Open(); err != nil {
			return nil, err
		}
		p = &port{out: o}
		r.ports[o.String()] = p
	}
	p.refs++
	return p, nil
}

func (r *RTMIDIRegistry) release(o drivers.Out) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[o.String()]
	if !ok {
		return nil
	}
	if p.refs--; p.refs > 0 {
		return nil
	}
	delete(r.ports, o.String())
	return p.out.Close()
}

func (d *RTMIDIDevice) Send(msg []byte) error {
	return d.out.Send(msg)
}

func (d *RTMIDIDevice) String() string {
	return d.out.String()
}

func (d *RTMIDIDevice) Close() (err error) {
	d.once.Do(func() { err = d.registry.release(d.out) })
	return err
}
