package surface

import "go.uber.org/zap"

type (
	// Alerts is the queue of notifications waiting for the user. Warnings and
	// errors stay queued until dismissed; the GUI shows the oldest one as a
	// modal dialog. Info messages only replace the status line.
	Alerts struct {
		queue  []Alert
		status string
		log    *zap.Logger
	}

	Alert struct {
		Priority AlertPriority
		Message  string
	}

	AlertPriority int
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

func (p AlertPriority) String() string {
	switch p {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	}
	return "Unknown"
}

func (a *Alerts) Add(message string, priority AlertPriority) {
	switch priority {
	case Info:
		a.log.Info(message)
		a.status = message
		return
	case Warning:
		a.log.Warn(message)
	default:
		a.log.Error(message)
	}
	a.queue = append(a.queue, Alert{Priority: priority, Message: message})
}

// Front returns the oldest alert not yet dismissed.
func (a *Alerts) Front() (Alert, bool) {
	if len(a.queue) == 0 {
		return Alert{}, false
	}
	return a.queue[0], true
}

func (a *Alerts) Dismiss() {
	if len(a.queue) > 0 {
		a.queue = a.queue[1:]
	}
}

func (a *Alerts) Len() int { return len(a.queue) }

// Status is the latest info message.
func (a *Alerts) Status() string { return a.status }
