package surface

import (
	"context"
	"errors"
	"fmt"

	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/playback"
	"go.uber.org/zap"
)

// Model implements the mutable state of the player UI: the playback
// controller, the device list and the pending alerts. It is owned by one
// goroutine (the GUI loop, or Run in headless mode); everything else talks to
// it through the Broker.
type Model struct {
	broker  *Broker
	ctrl    *playback.Controller
	alerts  Alerts
	devices []string
	log     *zap.Logger
}

// sessionEnded is posted by the session goroutine when a playback ends.
type sessionEnded struct {
	session *playback.Session
}

func NewModel(broker *Broker, ctrl *playback.Controller, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		broker: broker,
		ctrl:   ctrl,
		log:    log,
		alerts: Alerts{log: log.Named("alert")},
	}
	ctrl.OnFinished(func(s *playback.Session) {
		if !broker.Post(sessionEnded{session: s}) {
			log.Warn("model queue full, dropped session end")
		}
	})
	return m
}

func (m *Model) Broker() *Broker   { return m.broker }
func (m *Model) Alerts() *Alerts   { return &m.alerts }
func (m *Model) Playing() bool     { return m.ctrl.IsRunning() }
func (m *Model) Devices() []string { return m.devices }
func (m *Model) DeviceName() string {
	return m.ctrl.DeviceName()
}

// NowPlaying returns the name of the song being played, or "" if stopped.
func (m *Model) NowPlaying() string {
	if !m.Playing() {
		return ""
	}
	return m.ctrl.Current().Song().Name()
}

// ProcessMsg handles a message posted through the Broker. It must be called
// on the goroutine owning the model.
func (m *Model) ProcessMsg(msg MsgToModel) {
	switch d := msg.Data.(type) {
	case PlayMsg:
		m.startPlayback()
	case StopMsg:
		m.stopPlayback()
	case SpeedMsg:
		m.setSpeed(d.Value)
	case sessionEnded:
		m.sessionEnded(d.session)
	case func():
		d()
	default:
		m.log.Debug("unknown message to model", zap.Any("data", msg.Data))
	}
}

// Run handles messages until ctx is done or CloseModel is signaled. It is the
// owning goroutine when there is no GUI. Alerts are logged as they are
// added, so they are dismissed right away.
func (m *Model) Run(ctx context.Context) {
	defer close(m.broker.FinishedModel)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.broker.CloseModel:
			return
		case msg := <-m.broker.ToModel:
			m.ProcessMsg(msg)
			for m.alerts.Len() > 0 {
				m.alerts.Dismiss()
			}
		}
	}
}

// SelectInitialDevice opens the device called name. If name is empty, the
// device at index is opened instead, falling back to the first device.
func (m *Model) SelectInitialDevice(name string, index int) {
	m.refreshDevices()
	if name != "" {
		m.SelectDevice(name)
		return
	}
	if len(m.devices) == 0 {
		m.alerts.Add("No MIDI output devices found", Warning)
		return
	}
	if index < 0 || index >= len(m.devices) {
		index = 0
	}
	m.SelectDevice(m.devices[index])
}

// SelectDevice opens the named output device. On failure the previous device
// stays selected and an alert is shown.
func (m *Model) SelectDevice(name string) bool {
	if err := m.ctrl.SelectDevice(name); err != nil {
		m.report(err)
		return false
	}
	if m.Playing() {
		m.alerts.Add(fmt.Sprintf("Selected %s; it will be used from the next song", name), Info)
	} else {
		m.alerts.Add(fmt.Sprintf("Selected %s", name), Info)
	}
	return true
}

// Close stops the playback and releases the device.
func (m *Model) Close() {
	m.ctrl.Close()
}

func (m *Model) startPlayback() {
	if err := m.ctrl.Start(); err != nil {
		m.report(err)
		return
	}
	m.alerts.Add("Playing "+m.ctrl.Current().Song().Name(), Info)
}

func (m *Model) stopPlayback() {
	if !m.Playing() {
		return
	}
	m.ctrl.Stop()
	m.alerts.Add("Stopped", Info)
}

func (m *Model) setSpeed(v float64) {
	if err := m.ctrl.SetSpeed(v); err != nil {
		m.report(err)
	}
}

func (m *Model) refreshDevices() {
	names, err := m.ctrl.Devices()
	if err != nil {
		m.report(err)
		return
	}
	m.devices = names
}

func (m *Model) sessionEnded(s *playback.Session) {
	m.ctrl.SessionEnded(s)
	if s != m.ctrl.Current() {
		return
	}
	switch reason, err := s.Result(); reason {
	case playback.Finished:
		m.alerts.Add("Finished "+s.Song().Name(), Info)
	case playback.Failed:
		m.alerts.Add(fmt.Sprintf("Playback of %s failed: %v", s.Song().Name(), err), Error)
	}
}

func (m *Model) report(err error) {
	switch {
	case errors.Is(err, midiplayer.ErrInvalidSpeed):
		m.alerts.Add(err.Error(), Warning)
	case errors.Is(err, midiplayer.ErrDeviceEnumeration):
		m.alerts.Add(fmt.Sprintf("Error initializing MIDI devices: %v", err), Error)
	case errors.Is(err, midiplayer.ErrDeviceSelection):
		m.alerts.Add(fmt.Sprintf("Error selecting MIDI device: %v", err), Error)
	default:
		m.alerts.Add(err.Error(), Error)
	}
}
