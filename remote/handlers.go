package remote

import (
	"math"

	"github.com/hypebeast/go-osc/osc"
	"github.com/midiplayer/midiplayer/surface"
	"go.uber.org/zap"
)

const (
	PlayAddress  = "/play"
	StopAddress  = "/stop"
	SpeedAddress = "/speed"
)

// NewDispatcher returns a dispatcher translating the transport messages into
// messages to the model.
func NewDispatcher(broker *surface.Broker, log *zap.Logger) (*osc.StandardDispatcher, error) {
	post := func(msg *osc.Message, data any) {
		log.Debug("OSC message", zap.String("address", msg.Address), zap.Any("arguments", msg.Arguments))
		if !broker.Post(data) {
			log.Warn("model queue full, dropped OSC message", zap.String("address", msg.Address))
		}
	}
	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler(PlayAddress, func(msg *osc.Message) {
		post(msg, surface.PlayMsg{})
	}); err != nil {
		return nil, err
	}
	if err := d.AddMsgHandler(StopAddress, func(msg *osc.Message) {
		post(msg, surface.StopMsg{})
	}); err != nil {
		return nil, err
	}
	if err := d.AddMsgHandler(SpeedAddress, func(msg *osc.Message) {
		if len(msg.Arguments) == 0 {
			log.Warn("ignoring OSC message without arguments", zap.String("address", msg.Address))
			return
		}
		v, ok := number(msg.Arguments[0])
		if !ok {
			log.Warn("ignoring OSC message with a non-numeric argument",
				zap.String("address", msg.Address), zap.Any("argument", msg.Arguments[0]))
			return
		}
		post(msg, surface.SpeedMsg{Value: v})
	}); err != nil {
		return nil, err
	}
	return d, nil
}

func number(arg any) (float64, bool) {
	var v float64
	switch a := arg.(type) {
	case float32:
		v = float64(a)
	case float64:
		v = a
	case int32:
		v = float64(a)
	case int64:
		v = float64(a)
	default:
		return 0, false
	}
	return v, !math.IsNaN(v)
}
