package oto

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/midiplayer/midiplayer"
)

// DeviceName is the name the built-in synth is listed with.
const DeviceName = "Built-in synth"

type (
	// Registry offers the built-in synth as an output device. The audio
	// context is created when the synth is first opened; there can be only
	// one per process, so it is kept until the process exits.
	Registry struct {
		mu      sync.Mutex
		context *oto.Context
	}

	// Device is an opened built-in synth, playing through the audio context.
	Device struct {
		synth  *Synth
		player *oto.Player
	}
)

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Outputs() ([]string, error) {
	return []string{DeviceName}, nil
}

func (r *Registry) Open(name string) (midiplayer.OutputDevice, error) {
	if name != DeviceName {
		return nil, fmt.Errorf("%w: no device called %q", midiplayer.ErrDeviceSelection, name)
	}
	ctx, err := r.audioContext()
	if err != nil {
		return nil, err
	}
	synth := NewSynth()
	player := ctx.NewPlayer(synth)
	player.Play()
	return &Device{synth: synth, player: player}, nil
}

func (r *Registry) Close() error {
	return nil
}

func (r *Registry) audioContext() (*oto.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.context != nil {
		return r.context, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create oto context: %w", midiplayer.ErrDeviceSelection, err)
	}
	<-ready
	r.context = ctx
	return ctx, nil
}

func (d *Device) Send(msg []byte) error {
	return d.synth.Send(msg)
}

func (d *Device) String() string {
	return DeviceName
}

// Close disposes of resources
func (d *Device) Close() error {
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
