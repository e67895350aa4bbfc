package rtspd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/bluenviron/rtspd/internal/metrics"
	"github.com/bluenviron/rtspd/internal/task"
	"github.com/bluenviron/rtspd/pkg/bytecounter"
	"github.com/bluenviron/rtspd/pkg/liberrors"
)

// ConnRegistry is the registry that owns connections.
type ConnRegistry interface {
	// Remove releases a connection.
	// It is called exactly once per connection, when its serve loop exits.
	Remove(*ServerConn)
}

type connState int32

const (
	connStateActive connState = iota
	connStateDisposing
)

// ConnStats are connection statistics.
type ConnStats struct {
	BytesReceived uint64
	BytesSent     uint64
}

// ServerConn is a server-side RTSP connection.
type ServerConn struct {
	nconn        net.Conn
	registry     ConnRegistry
	adapter      WireAdapter
	handler      ServerHandler
	log          *zap.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	readTimeout  time.Duration
	writeTimeout time.Duration
	newSessionID SessionIDGenerator
	newTrackID   func() (string, error)
	parentCtx    context.Context

	remoteAddr  net.Addr
	bc          *bytecounter.ByteCounter
	task        task.Task
	span        trace.Span
	propsMutex  sync.RWMutex
	sessionID   string
	state       atomic.Int32
	removeOnce  sync.Once
	destroyOnce sync.Once

	// out
	chDestroy chan struct{}
}

func (sc *ServerConn) initialize() {
	if sc.log == nil {
		sc.log = zap.NewNop()
	}
	if sc.tracer == nil {
		sc.tracer = noop.NewTracerProvider().Tracer("")
	}
	if sc.newSessionID == nil {
		sc.newSessionID = generateSessionID
	}
	if sc.newTrackID == nil {
		sc.newTrackID = generateTrackID
	}

	sc.remoteAddr = sc.nconn.RemoteAddr()
	sc.chDestroy = make(chan struct{})
	sc.bc = &bytecounter.ByteCounter{
		RW:      sc.nconn,
		OnRead:  sc.metrics.BytesReceived,
		OnWrite: sc.metrics.BytesSent,
	}

	if sc.adapter == nil {
		sc.adapter = newWireAdapter(sc.nconn, sc.bc, sc.readTimeout, sc.writeTimeout)
	}

	sc.task.Run = sc.run
	sc.task.Parent = sc.parentCtx
	sc.task.Initialize()

	sc.log = sc.log.With(
		zap.Stringer("conn", sc.task.ID()),
		zap.Stringer("remote", sc.remoteAddr))
}

// Start starts the serve loop.
// It returns immediately.
func (sc *ServerConn) Start() error {
	err := sc.task.Start()
	if err != nil {
		if errors.As(err, &task.ErrAlreadyStarted{}) {
			return liberrors.ErrServerConnAlreadyStarted{}
		}
		return fmt.Errorf("unable to start connection: %w", err)
	}
	return nil
}

// Close asks the connection to stop.
// The serve loop exits and the connection is removed from its registry.
func (sc *ServerConn) Close() {
	sc.task.Interrupt()
	sc.nconn.Close()
}

// destroy releases the connection.
// It interrupts the serve loop before releasing the transport, then waits for the loop.
func (sc *ServerConn) destroy() {
	sc.destroyOnce.Do(func() {
		close(sc.chDestroy)
		sc.task.Interrupt()
		sc.nconn.Close()
		sc.task.Wait() //nolint:errcheck
	})
}

// NetConn returns the underlying net.Conn.
func (sc *ServerConn) NetConn() net.Conn {
	return sc.nconn
}

// RemoteAddr returns the remote address of the connection.
func (sc *ServerConn) RemoteAddr() net.Addr {
	return sc.remoteAddr
}

// ID returns an identifier that is stable for the whole life of the connection.
func (sc *ServerConn) ID() uuid.UUID {
	return sc.task.ID()
}

// Desc returns a description of the connection kind.
func (sc *ServerConn) Desc() string {
	return "rtsp"
}

// SessionID returns the session id.
// It is empty until the first request has been received.
func (sc *ServerConn) SessionID() string {
	sc.propsMutex.RLock()
	defer sc.propsMutex.RUnlock()

	return sc.sessionID
}

// Stats returns connection statistics.
func (sc *ServerConn) Stats() *ConnStats {
	return &ConnStats{
		BytesReceived: sc.bc.BytesReceived(),
		BytesSent:     sc.bc.BytesSent(),
	}
}

// Disposing returns whether the connection is being disposed.
func (sc *ServerConn) Disposing() bool {
	return connState(sc.state.Load()) == connStateDisposing
}

func (sc *ServerConn) markDisposing() bool {
	return sc.state.CompareAndSwap(int32(connStateActive), int32(connStateDisposing))
}

// OnBeforeDispose is called by the registry before a connection is disposed.
// Notifications received while the connection itself is disposing are ignored.
func (sc *ServerConn) OnBeforeDispose(c *ServerConn) {
	if sc.Disposing() {
		return
	}

	sc.log.Debug("before dispose", zap.Stringer("peer", c.ID()))
}

// OnDisposing is called by the registry while a connection is disposed.
// Notifications received while the connection itself is disposing are ignored.
func (sc *ServerConn) OnDisposing(c *ServerConn) {
	if sc.Disposing() {
		return
	}

	sc.log.Debug("disposing", zap.Stringer("peer", c.ID()))
}

func (sc *ServerConn) run() error {
	_, sc.span = sc.tracer.Start(sc.task.Context(), "rtsp.conn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rtsp.conn.id", sc.task.ID().String()),
			attribute.String("net.peer.addr", sc.remoteAddr.String())))

	sc.log.Debug("serving")

	if h, ok := sc.handler.(ServerHandlerOnConnOpen); ok {
		h.OnConnOpen(&ServerHandlerOnConnOpenCtx{
			Conn: sc,
		})
	}

	err := sc.runInner()

	outcome := classifyOutcome(err)
	logOutcome(sc.log, outcome, err)
	sc.metrics.Outcome(outcome.String())

	sc.span.SetAttributes(attribute.String("rtsp.outcome", outcome.String()))
	if outcome == OutcomeUnclassified {
		sc.span.RecordError(err)
		sc.span.SetStatus(codes.Error, err.Error())
	}
	sc.span.End()

	sc.removeOnce.Do(func() {
		sc.registry.Remove(sc)
	})

	if h, ok := sc.handler.(ServerHandlerOnConnClose); ok {
		h.OnConnClose(&ServerHandlerOnConnCloseCtx{
			Conn:    sc,
			Outcome: outcome,
			Error:   err,
		})
	}

	// every outcome has been classified and logged.
	return nil
}

func (sc *ServerConn) runInner() error {
	for {
		err := sc.task.Pull()
		if err != nil {
			return err
		}

		req, err := sc.adapter.Receive()
		if err != nil {
			if err2 := sc.task.Pull(); err2 != nil {
				return err2
			}
			return fmt.Errorf("recv message: %w", err)
		}

		err = sc.assignSessionID()
		if err != nil {
			return err
		}

		sc.metrics.Request(req.Method.String())
		sc.span.AddEvent("request", trace.WithAttributes(
			attribute.String("rtsp.method", req.Method.String()),
			attribute.Int("rtsp.cseq", req.CSeq)))

		sc.log.Debug("got request",
			zap.Stringer("method", req.Method),
			zap.String("uri", req.URI),
			zap.Int("cseq", req.CSeq))

		if h, ok := sc.handler.(ServerHandlerOnRequest); ok {
			h.OnRequest(sc, req)
		}

		res, err := dispatch(req, sc.SessionID(), sc.newTrackID)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", req.Method, err)
		}

		if res == nil {
			sc.log.Warn("publish not supported yet", zap.String("uri", req.URI))
			continue
		}

		if res.Kind == ResponseSetup {
			sc.logSetup(req, res)
		}

		if h, ok := sc.handler.(ServerHandlerOnResponse); ok {
			h.OnResponse(sc, res)
		}

		err = sc.adapter.Send(res)
		if err != nil {
			if err2 := sc.task.Pull(); err2 != nil {
				return err2
			}
			return fmt.Errorf("response %s: %w", req.Method, err)
		}
	}
}

func (sc *ServerConn) assignSessionID() error {
	sc.propsMutex.Lock()
	defer sc.propsMutex.Unlock()

	if sc.sessionID != "" {
		return nil
	}

	id, err := sc.newSessionID()
	if err != nil {
		return fmt.Errorf("unable to generate session ID: %w", err)
	}

	sc.sessionID = id
	return nil
}

func (sc *ServerConn) logSetup(req *Request, res *Response) {
	streamID := 0
	if req.StreamID != nil {
		streamID = *req.StreamID
	}

	kind := "Audio"
	if streamID == 0 {
		kind = "Video"
	}

	sc.log.Info("setup",
		zap.Int("stream", streamID),
		zap.String("kind", kind),
		zap.String("transport", req.Transport.Transport),
		zap.String("profile", req.Transport.Profile),
		zap.String("lower_transport", req.Transport.LowerTransport),
		zap.String("cast_type", req.Transport.CastType),
		zap.Ints("client_port", res.ClientPorts[:]),
		zap.Ints("server_port", res.LocalPorts[:]))
}
