package remote_test

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/remote"
	"github.com/midiplayer/midiplayer/surface"
)

func TestDispatcher(t *testing.T) {
	for _, tt := range []struct {
		name string
		msg  *osc.Message
		want any
	}{
		{"play", osc.NewMessage("/play"), surface.PlayMsg{}},
		{"play with arguments", osc.NewMessage("/play", int32(1)), surface.PlayMsg{}},
		{"stop", osc.NewMessage("/stop"), surface.StopMsg{}},
		{"speed float32", osc.NewMessage("/speed", float32(2)), surface.SpeedMsg{Value: 2}},
		{"speed float64", osc.NewMessage("/speed", 0.5), surface.SpeedMsg{Value: 0.5}},
		{"speed int32", osc.NewMessage("/speed", int32(3)), surface.SpeedMsg{Value: 3}},
		{"speed negative", osc.NewMessage("/speed", float32(-1)), surface.SpeedMsg{Value: -1}},
		{"speed without argument", osc.NewMessage("/speed"), nil},
		{"speed string", osc.NewMessage("/speed", "fast"), nil},
		{"unknown address", osc.NewMessage("/rewind"), nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			broker := surface.NewBroker()
			d, err := remote.NewDispatcher(broker, nil)
			if err != nil {
				t.Fatal(err)
			}
			d.Dispatch(tt.msg)
			msg, ok := surface.TimeoutReceive(broker.ToModel, 50*time.Millisecond)
			if tt.want == nil {
				if ok {
					t.Errorf("expected no message, got %v", msg.Data)
				}
				return
			}
			if !ok {
				t.Fatalf("expected %v, got nothing", tt.want)
			}
			if msg.Data != tt.want {
				t.Errorf("got %v, expected %v", msg.Data, tt.want)
			}
		})
	}
}

func TestListenInvalidAddress(t *testing.T) {
	_, err := remote.Listen("127.0.0.1:-1", surface.NewBroker(), nil)
	if !errors.Is(err, midiplayer.ErrServerInit) {
		t.Errorf("Listen error %v is not ErrServerInit", err)
	}
}

func TestListenAddressInUse(t *testing.T) {
	first, err := remote.Listen("127.0.0.1:0", surface.NewBroker(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	_, err = remote.Listen(first.Addr().String(), surface.NewBroker(), nil)
	if !errors.Is(err, midiplayer.ErrServerInit) {
		t.Errorf("Listen error %v is not ErrServerInit", err)
	}
}

func TestServerReceives(t *testing.T) {
	broker := surface.NewBroker()
	s, err := remote.Listen("127.0.0.1:0", broker, nil)
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve()
	client := osc.NewClient("127.0.0.1", s.Addr().(*net.UDPAddr).Port)
	if err := client.Send(osc.NewMessage("/speed", float32(1.5))); err != nil {
		t.Fatal(err)
	}
	msg, ok := surface.TimeoutReceive(broker.ToModel, 2*time.Second)
	if !ok {
		t.Fatal("no message received over UDP")
	}
	if msg.Data != (surface.SpeedMsg{Value: 1.5}) {
		t.Errorf("got %v, expected a speed of 1.5", msg.Data)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestServerSkipsMalformedPackets(t *testing.T) {
	broker := surface.NewBroker()
	s, err := remote.Listen("127.0.0.1:0", broker, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	go s.Serve()
	conn, err := net.Dial("udp", s.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	for _, garbage := range []string{"/pl", "\x00\x01"} {
		if _, err := conn.Write([]byte(garbage)); err != nil {
			t.Fatal(err)
		}
	}
	client := osc.NewClient("127.0.0.1", s.Addr().(*net.UDPAddr).Port)
	if err := client.Send(osc.NewMessage("/play")); err != nil {
		t.Fatal(err)
	}
	msg, ok := surface.TimeoutReceive(broker.ToModel, 2*time.Second)
	if !ok {
		t.Fatal("/play after malformed packets was never delivered")
	}
	if msg.Data != (surface.PlayMsg{}) {
		t.Errorf("got %v, expected PlayMsg", msg.Data)
	}
}
