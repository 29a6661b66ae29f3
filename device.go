package midiplayer

import (
	"errors"
	"fmt"
	"slices"
)

type (
	// OutputDevice is an opened MIDI output. Send receives complete channel
	// messages (status byte followed by data bytes).
	OutputDevice interface {
		Send(msg []byte) error
		Close() error
		String() string
	}

	// DeviceRegistry enumerates output devices and opens them by name. The
	// registry owns the driver; devices opened from it must be closed before
	// the registry is.
	DeviceRegistry interface {
		Outputs() ([]string, error)
		Open(name string) (OutputDevice, error)
		Close() error
	}

	joinedRegistry []DeviceRegistry

	// NullRegistry is a DeviceRegistry without any devices.
	NullRegistry struct{}
)

// JoinRegistries returns a registry listing the devices of all given
// registries, in order. Open asks each registry in turn and returns the first
// device that opens.
func JoinRegistries(registries ...DeviceRegistry) DeviceRegistry {
	return joinedRegistry(registries)
}

func (j joinedRegistry) Outputs() ([]string, error) {
	var ret []string
	var errs []error
	for _, r := range j {
		names, err := r.Outputs()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ret = append(ret, names...)
	}
	if len(ret) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrDeviceEnumeration, errors.Join(errs...))
	}
	return ret, nil
}

func (j joinedRegistry) Open(name string) (OutputDevice, error) {
	for _, r := range j {
		names, err := r.Outputs()
		if err != nil || !slices.Contains(names, name) {
			continue
		}
		return r.Open(name)
	}
	return nil, fmt.Errorf("%w: no device named %q", ErrDeviceSelection, name)
}

func (j joinedRegistry) Close() error {
	var errs []error
	for _, r := range j {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (NullRegistry) Outputs() ([]string, error) { return nil, nil }
func (NullRegistry) Open(name string) (OutputDevice, error) {
	return nil, fmt.Errorf("%w: no device named %q", ErrDeviceSelection, name)
}
func (NullRegistry) Close() error { return nil }
