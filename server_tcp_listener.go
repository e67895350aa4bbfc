package rtspd

import (
	"errors"
	"net"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

type serverTCPListener struct {
	s *Server

	ln net.Listener
}

func (sl *serverTCPListener) initialize() error {
	var err error
	sl.ln, err = sl.s.Listen("tcp", sl.s.RTSPAddress)
	if err != nil {
		return err
	}

	if sl.s.MaxConnections > 0 {
		sl.ln = netutil.LimitListener(sl.ln, sl.s.MaxConnections)
	}

	sl.s.Log.Info("listener opened", zap.String("proto", "rtsp/tcp"), zap.Stringer("addr", sl.ln.Addr()))

	sl.s.wg.Add(1)
	go sl.run()

	return nil
}

func (sl *serverTCPListener) close() {
	sl.ln.Close()
}

func (sl *serverTCPListener) run() {
	defer sl.s.wg.Done()

	for {
		nconn, err := sl.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				sl.s.acceptErr(err)
			}
			return
		}

		err = sl.s.Serve(nconn)
		if err != nil {
			return
		}
	}
}
