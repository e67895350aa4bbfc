package rtspd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	webSocketSubprotocol = "rtsp.onvif.org"
)

type wsReader struct {
	wc *websocket.Conn

	buf []byte
}

func (r *wsReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		var msgType int
		var err error
		msgType, r.buf, err = r.wc.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				return 0, io.EOF

			case websocket.IsCloseError(err, websocket.CloseAbnormalClosure):
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}

		if msgType != websocket.BinaryMessage {
			return 0, fmt.Errorf("unexpected message type %v", msgType)
		}
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]

	return n, nil
}

type wsWriter struct {
	wc *websocket.Conn

	mutex sync.Mutex
}

func (w *wsWriter) Write(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	err := w.wc.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// serverTunnelWebSocket is a net.Conn that carries RTSP over binary WebSocket messages.
type serverTunnelWebSocket struct {
	wc *websocket.Conn
	r  io.Reader
	w  io.Writer
}

func newServerTunnelWebSocket(wc *websocket.Conn) *serverTunnelWebSocket {
	return &serverTunnelWebSocket{
		wc: wc,
		r:  &wsReader{wc: wc},
		w:  &wsWriter{wc: wc},
	}
}

func (tu *serverTunnelWebSocket) Read(b []byte) (int, error) {
	return tu.r.Read(b)
}

func (tu *serverTunnelWebSocket) Write(b []byte) (int, error) {
	return tu.w.Write(b)
}

func (tu *serverTunnelWebSocket) Close() error {
	return tu.wc.Close()
}

func (tu *serverTunnelWebSocket) LocalAddr() net.Addr {
	return tu.wc.LocalAddr()
}

func (tu *serverTunnelWebSocket) RemoteAddr() net.Addr {
	return tu.wc.RemoteAddr()
}

func (tu *serverTunnelWebSocket) SetDeadline(t time.Time) error {
	err := tu.wc.SetReadDeadline(t)
	if err != nil {
		return err
	}
	return tu.wc.SetWriteDeadline(t)
}

func (tu *serverTunnelWebSocket) SetReadDeadline(t time.Time) error {
	return tu.wc.SetReadDeadline(t)
}

func (tu *serverTunnelWebSocket) SetWriteDeadline(t time.Time) error {
	return tu.wc.SetWriteDeadline(t)
}

type serverWebSocketListener struct {
	s *Server

	ln         net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func (sl *serverWebSocketListener) initialize() error {
	var err error
	sl.ln, err = sl.s.Listen("tcp", sl.s.WebSocketAddress)
	if err != nil {
		return err
	}

	sl.upgrader = websocket.Upgrader{
		Subprotocols: []string{webSocketSubprotocol},
		CheckOrigin: func(_ *http.Request) bool {
			return true
		},
	}

	sl.httpServer = &http.Server{
		Handler:           sl,
		ReadHeaderTimeout: sl.s.ReadTimeout,
	}

	sl.s.Log.Info("listener opened", zap.String("proto", "rtsp/ws"), zap.Stringer("addr", sl.ln.Addr()))

	sl.s.wg.Add(1)
	go sl.run()

	return nil
}

func (sl *serverWebSocketListener) close() {
	sl.httpServer.Close()
}

func (sl *serverWebSocketListener) run() {
	defer sl.s.wg.Done()

	err := sl.httpServer.Serve(sl.ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		sl.s.acceptErr(err)
	}
}

// ServeHTTP implements http.Handler.
func (sl *serverWebSocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wc, err := sl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sl.s.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sl.s.Serve(newServerTunnelWebSocket(wc)) //nolint:errcheck
}
