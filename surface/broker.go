package surface

import "time"

type (
	// Broker carries messages into the goroutine that owns the Model. The OSC
	// server and the playback sessions run on goroutines of their own; they
	// never touch the Model directly but post a MsgToModel instead, which the
	// owning goroutine (the GUI loop, or Run in headless mode) handles with
	// ProcessMsg.
	//
	// CloseModel has a capacity of 1, so an empty struct can always be sent
	// to it without blocking; if it is already full, someone else has
	// requested the closing and dropping the message is fine. FinishedModel
	// is never sent to, only closed once the owning goroutine is done.
	Broker struct {
		ToModel chan MsgToModel

		CloseModel    chan struct{}
		FinishedModel chan struct{}
	}

	// MsgToModel is a message to the Model. Data is one of PlayMsg, StopMsg,
	// SpeedMsg, a session end notification, or a func() to be run on the
	// owning goroutine.
	MsgToModel struct {
		Data any
	}

	// PlayMsg requests a new playback, restarting if one is running.
	PlayMsg struct{}
	// StopMsg requests stopping the playback.
	StopMsg struct{}
	// SpeedMsg sets the speed multiplier.
	SpeedMsg struct{ Value float64 }
)

func NewBroker() *Broker {
	return &Broker{
		ToModel:       make(chan MsgToModel, 1024),
		CloseModel:    make(chan struct{}, 1),
		FinishedModel: make(chan struct{}),
	}
}

// Post sends data to the Model without blocking. It returns false if the
// queue was full and the message was dropped.
func (b *Broker) Post(data any) bool {
	return TrySend(b.ToModel, MsgToModel{Data: data})
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
