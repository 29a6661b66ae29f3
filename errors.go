package midiplayer

import "errors"

// Errors reported to the user. None of them is fatal: the application keeps
// running without the capability that failed.
var (
	ErrDeviceEnumeration = errors.New("could not enumerate MIDI output devices")
	ErrDeviceSelection   = errors.New("could not select MIDI output device")
	ErrServerInit        = errors.New("could not start the OSC server")
	ErrNoPlayableFiles   = errors.New("no playable MIDI files found")

	ErrNoDevice     = errors.New("no MIDI output device selected")
	ErrReadSong     = errors.New("could not read MIDI file")
	ErrInvalidSpeed = errors.New("invalid playback speed")
)
