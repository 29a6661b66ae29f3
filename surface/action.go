package surface

type (
	// Action describes a user action that can be performed on the model, which
	// can be initiated by calling the Do() method. It is usually initiated by a
	// button press. Action advertises whether it is enabled, so UI can e.g.
	// gray out buttons when the underlying action is not allowed. The
	// underlying Doer can optionally implement the Enabler interface to decide
	// if the action is enabled or not; if it does not implement the Enabler
	// interface, the action is always allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, which is called
	// when an action is performed.
	Doer interface {
		Do()
	}

	// Enabler is an interface that defines a single Enabled() method, which
	// is used by the UI to check if UI Action/Bool/Float is enabled or not.
	Enabler interface {
		Enabled() bool
	}
)

func MakeAction(doer Doer) Action {
	return Action{doer: doer}
}

func (a Action) Do() {
	e, ok := a.doer.(Enabler)
	if ok && !e.Enabled() {
		return
	}
	if a.doer != nil {
		a.doer.Do()
	}
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// play
type play Model

func (m *Model) Play() Action { return MakeAction((*play)(m)) }
func (m *play) Enabled() bool { return !(*Model)(m).Playing() }
func (m *play) Do()           { (*Model)(m).startPlayback() }

// stop
type stop Model

func (m *Model) Stop() Action { return MakeAction((*stop)(m)) }
func (m *stop) Enabled() bool { return (*Model)(m).Playing() }
func (m *stop) Do()           { (*Model)(m).stopPlayback() }

// refreshDevices
type refreshDevices Model

func (m *Model) RefreshDevices() Action { return MakeAction((*refreshDevices)(m)) }
func (m *refreshDevices) Do()           { (*Model)(m).refreshDevices() }

// dismissAlert
type dismissAlert Model

func (m *Model) DismissAlert() Action { return MakeAction((*dismissAlert)(m)) }
func (m *dismissAlert) Enabled() bool { return m.alerts.Len() > 0 }
func (m *dismissAlert) Do()           { m.alerts.Dismiss() }
