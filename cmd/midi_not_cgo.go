//go:build !cgo

package cmd

import (
	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/oto"
)

// NewDeviceRegistry offers only the built-in synth: without cgo, the system
// MIDI ports cannot be reached.
func NewDeviceRegistry(builtinSynth bool) midiplayer.DeviceRegistry {
	if !builtinSynth {
		return midiplayer.NullRegistry{}
	}
	return oto.NewRegistry()
}
