//go:build cgo

package cmd

import (
	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/oto"
	"github.com/midiplayer/midiplayer/surface/gomidi"
)

// NewDeviceRegistry lists the system MIDI ports, followed by the built-in
// synth if enabled.
func NewDeviceRegistry(builtinSynth bool) midiplayer.DeviceRegistry {
	if !builtinSynth {
		return gomidi.NewRegistry()
	}
	return midiplayer.JoinRegistries(gomidi.NewRegistry(), oto.NewRegistry())
}
