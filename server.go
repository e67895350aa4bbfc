// Package rtspd contains a RTSP server that handles the control plane of
// RTSP connections.
package rtspd

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bluenviron/rtspd/internal/metrics"
	"github.com/bluenviron/rtspd/pkg/liberrors"
)

const (
	tracerName = "github.com/bluenviron/rtspd"
)

// Server is a RTSP server.
// It accepts connections, serves them and acts as their registry.
type Server struct {
	//
	// RTSP parameters (all optional except RTSPAddress)
	//
	// the RTSP address of the server, to accept connections through TCP.
	// if empty, connections can only be provided with Serve().
	RTSPAddress string
	// the address of the RTSP over WebSocket tunnel.
	WebSocketAddress string
	// timeout of read operations.
	// It defaults to 10 seconds.
	ReadTimeout time.Duration
	// timeout of write operations.
	// It defaults to 10 seconds.
	WriteTimeout time.Duration
	// maximum number of simultaneous TCP connections.
	// It defaults to 0 (unlimited).
	MaxConnections int

	//
	// handler (optional)
	//
	// an handler to receive connection events.
	Handler ServerHandler

	//
	// observability (all optional)
	//
	// logger. It defaults to a no-op logger.
	Log *zap.Logger
	// metrics.
	Metrics *metrics.Metrics
	// tracer provider. It defaults to the global provider.
	TracerProvider trace.TracerProvider

	//
	// system functions (all optional)
	//
	// function used to initialize the TCP listener.
	// It defaults to net.Listen.
	Listen func(network string, address string) (net.Listener, error)
	// function used to generate session IDs.
	SessionIDGenerator SessionIDGenerator

	//
	// private
	//

	ctx         context.Context
	ctxCancel   func()
	wg          sync.WaitGroup
	tracer      trace.Tracer
	tcpListener *serverTCPListener
	wsListener  *serverWebSocketListener
	mutex       sync.RWMutex
	conns       map[*ServerConn]struct{}
	closeError  error

	// in
	chNewConn    chan net.Conn
	chRemoveConn chan *ServerConn
	chAcceptErr  chan error

	// out
	done chan struct{}
}

// Start starts the server.
func (s *Server) Start() error {
	// RTSP parameters
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 10 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 10 * time.Second
	}
	if s.MaxConnections < 0 {
		return fmt.Errorf("MaxConnections must not be negative")
	}

	// observability
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	if s.TracerProvider == nil {
		s.TracerProvider = otel.GetTracerProvider()
	}

	// system functions
	if s.Listen == nil {
		s.Listen = net.Listen
	}
	if s.SessionIDGenerator == nil {
		s.SessionIDGenerator = generateSessionID
	}

	s.ctx, s.ctxCancel = context.WithCancel(context.Background())
	s.tracer = s.TracerProvider.Tracer(tracerName)
	s.conns = make(map[*ServerConn]struct{})
	s.chNewConn = make(chan net.Conn)
	s.chRemoveConn = make(chan *ServerConn)
	s.chAcceptErr = make(chan error)
	s.done = make(chan struct{})

	if s.RTSPAddress != "" {
		s.tcpListener = &serverTCPListener{
			s: s,
		}
		err := s.tcpListener.initialize()
		if err != nil {
			s.ctxCancel()
			return err
		}
	}

	if s.WebSocketAddress != "" {
		s.wsListener = &serverWebSocketListener{
			s: s,
		}
		err := s.wsListener.initialize()
		if err != nil {
			if s.tcpListener != nil {
				s.tcpListener.close()
			}
			s.ctxCancel()
			s.wg.Wait()
			return err
		}
	}

	go s.run()

	return nil
}

// Close closes all the server resources and waits for them to close.
func (s *Server) Close() {
	s.ctxCancel()
	<-s.done
}

// Wait waits until all server resources are closed.
// This can happen when a fatal error occurs or when Close() is called.
func (s *Server) Wait() error {
	<-s.done
	return s.closeError
}

func (s *Server) run() {
	defer close(s.done)

	s.closeError = s.runInner()

	s.ctxCancel()

	if s.wsListener != nil {
		s.wsListener.close()
	}

	if s.tcpListener != nil {
		s.tcpListener.close()
	}

	for _, sc := range s.Conns() {
		s.dispose(sc)
	}

	s.wg.Wait()
}

func (s *Server) runInner() error {
	for {
		select {
		case err := <-s.chAcceptErr:
			return err

		case nconn := <-s.chNewConn:
			s.handleNewConn(nconn)

		case sc := <-s.chRemoveConn:
			s.dispose(sc)

		case <-s.ctx.Done():
			return liberrors.ErrServerTerminated{}
		}
	}
}

func (s *Server) handleNewConn(nconn net.Conn) {
	sc := &ServerConn{
		nconn:        nconn,
		registry:     s,
		handler:      s.Handler,
		log:          s.Log,
		metrics:      s.Metrics,
		tracer:       s.tracer,
		readTimeout:  s.ReadTimeout,
		writeTimeout: s.WriteTimeout,
		newSessionID: s.SessionIDGenerator,
		parentCtx:    s.ctx,
	}
	sc.initialize()

	s.mutex.Lock()
	s.conns[sc] = struct{}{}
	s.mutex.Unlock()

	s.Metrics.ConnOpened()

	err := sc.Start()
	if err != nil {
		s.Log.Error("unable to start connection", zap.Error(err))
		s.dispose(sc)
	}
}

// dispose notifies every registered connection, then destroys and unregisters sc.
// It runs in the server routine.
func (s *Server) dispose(sc *ServerConn) {
	s.mutex.RLock()
	_, ok := s.conns[sc]
	s.mutex.RUnlock()

	if !ok || !sc.markDisposing() {
		return
	}

	conns := s.Conns()

	for _, c := range conns {
		c.OnBeforeDispose(sc)
	}

	for _, c := range conns {
		c.OnDisposing(sc)
	}

	sc.destroy()

	s.Metrics.ConnClosed()

	s.mutex.Lock()
	delete(s.conns, sc)
	s.mutex.Unlock()
}

// Serve serves a connection that has been accepted outside of the server.
func (s *Server) Serve(nconn net.Conn) error {
	select {
	case s.chNewConn <- nconn:
		return nil

	case <-s.ctx.Done():
		nconn.Close()
		return liberrors.ErrServerTerminated{}
	}
}

// Remove implements ConnRegistry.
// It can be called multiple times and from any routine.
func (s *Server) Remove(sc *ServerConn) {
	// the connection is already being destroyed by the server routine.
	if sc.Disposing() {
		return
	}

	select {
	case s.chRemoveConn <- sc:
	case <-sc.chDestroy:
	case <-s.ctx.Done():
	}
}

// Conns returns the connections currently registered.
func (s *Server) Conns() []*ServerConn {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*ServerConn, 0, len(s.conns))
	for sc := range s.conns {
		out = append(out, sc)
	}
	return out
}

func (s *Server) acceptErr(err error) {
	select {
	case s.chAcceptErr <- err:
	case <-s.ctx.Done():
	}
}
