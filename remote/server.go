// Package remote accepts transport control over OSC: /play, /stop and
// /speed f. Messages are only translated and posted to the Broker; they are
// handled on the goroutine owning the model.
package remote

import (
	"fmt"
	"net"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/surface"
	"go.uber.org/zap"
)

// Server is an OSC server listening on UDP.
type Server struct {
	conn       net.PacketConn
	dispatcher osc.Dispatcher
	log        *zap.Logger

	mu      sync.Mutex
	closed  bool
	serving chan struct{} // closed when Serve returns; nil if Serve was never called
}

// Listen binds addr, e.g. ":9001". A failure is wrapped in ErrServerInit.
func Listen(addr string, broker *surface.Broker, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := NewDispatcher(broker, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", midiplayer.ErrServerInit, err)
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", midiplayer.ErrServerInit, err)
	}
	return &Server{
		conn:       conn,
		dispatcher: d,
		log:        log,
	}, nil
}

// Addr is the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve handles incoming packets until Close is called. Packets that are
// not valid OSC are dropped.
func (s *Server) Serve() {
	s.mu.Lock()
	if s.closed || s.serving != nil {
		s.mu.Unlock()
		return
	}
	done := make(chan struct{})
	s.serving = done
	s.mu.Unlock()
	defer close(done)
	s.log.Info("OSC server listening", zap.Stringer("addr", s.Addr()))
	buf := make([]byte, 65535)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if !s.isClosed() {
				s.log.Error("OSC server stopped", zap.Error(err))
			}
			return
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			s.log.Debug("dropping malformed OSC packet", zap.Stringer("from", from), zap.Int("size", n), zap.Error(err))
			continue
		}
		s.dispatcher.Dispatch(packet)
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the listener and waits for Serve to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	done := s.serving
	s.mu.Unlock()
	err := s.conn.Close()
	if done != nil {
		<-done
	}
	if err != nil {
		return fmt.Errorf("cannot close OSC listener: %w", err)
	}
	return nil
}
