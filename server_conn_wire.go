package rtspd

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bluenviron/rtspd/pkg/base"
	"github.com/bluenviron/rtspd/pkg/conn"
	"github.com/bluenviron/rtspd/pkg/headers"
	"github.com/bluenviron/rtspd/pkg/liberrors"
)

const (
	serverHeader = "rtspd"
	dateFormat   = "Mon, Jan 02 2006 15:04:05 GMT"
)

var publicMethods = []base.Method{
	base.Options,
	base.Describe,
	base.Play,
	base.Pause,
	base.Setup,
	base.Teardown,
	base.SetParameter,
	base.GetParameter,
}

// WireAdapter converts bytes into requests and responses into bytes.
// Any error is terminal for the connection.
type WireAdapter interface {
	// Receive blocks until a request is available.
	Receive() (*Request, error)

	// Send delivers a response.
	Send(*Response) error
}

// findFirstSupportedTransport returns the first transport of the list,
// in order of preference, that can be answered.
// Secure profiles are skipped since key management is not handled.
func findFirstSupportedTransport(ts headers.Transports) *headers.Transport {
	for _, th := range ts {
		if th.Profile == headers.TransportProfileAVP {
			return &th
		}
	}
	return nil
}

func decodeTransport(v base.HeaderValue) (*TransportParams, error) {
	var ts headers.Transports
	err := ts.Unmarshal(v)
	if err != nil {
		return nil, err
	}

	th := findFirstSupportedTransport(ts)
	if th == nil {
		return nil, fmt.Errorf("no supported transport in '%s'", v[0])
	}

	tp := &TransportParams{
		Transport:      "RTP",
		Profile:        th.Profile.String(),
		LowerTransport: th.Protocol.String(),
		CastType:       headers.TransportDeliveryUnicast.String(),
	}

	if th.Delivery != nil {
		tp.CastType = th.Delivery.String()
	}

	if th.ClientPorts != nil {
		tp.ClientPorts = *th.ClientPorts
	}

	return tp, nil
}

func decodeRequest(breq *base.Request) (*Request, error) {
	cseq, ok := breq.Header["CSeq"]
	if !ok || len(cseq) != 1 {
		return nil, liberrors.ErrServerCSeqMissing{}
	}

	cseqNum, err := strconv.ParseUint(strings.TrimSpace(cseq[0]), 10, 31)
	if err != nil {
		return nil, liberrors.ErrServerCSeqInvalid{Value: cseq[0]}
	}

	req := &Request{
		Method: methodFromBase(breq.Method),
		CSeq:   int(cseqNum),
	}

	if breq.URL == nil {
		if req.Method != MethodOptions {
			return nil, liberrors.ErrServerInvalidPath{}
		}
		req.URI = "*"
	} else {
		req.URI = breq.URL.String()

		if id, ok := breq.URL.StreamID(); ok {
			req.StreamID = &id
		}
	}

	if req.Method == MethodSetup {
		v, ok := breq.Header["Transport"]
		if !ok {
			return nil, liberrors.ErrServerTransportHeaderInvalid{Err: fmt.Errorf("header is missing")}
		}

		req.Transport, err = decodeTransport(v)
		if err != nil {
			return nil, liberrors.ErrServerTransportHeaderInvalid{Err: err}
		}
	}

	return req, nil
}

func encodeResponse(res *Response, now time.Time) (*base.Response, error) {
	bres := &base.Response{
		StatusCode: base.StatusOK,
		Header: base.Header{
			"CSeq":   base.HeaderValue{strconv.FormatInt(int64(res.CSeq), 10)},
			"Server": base.HeaderValue{serverHeader},
		},
	}

	if res.Session != "" {
		bres.Header["Session"] = headers.Session{Session: res.Session}.Marshal()
	}

	switch res.Kind {
	case ResponseOptions:
		methods := make([]string, len(publicMethods))
		for i, m := range publicMethods {
			methods[i] = string(m)
		}

		bres.Header["Public"] = base.HeaderValue{strings.Join(methods, ", ")}
		bres.Header["Date"] = base.HeaderValue{now.UTC().Format(dateFormat)}

	case ResponseDescribe:
		bres.Header["Content-Base"] = base.HeaderValue{res.ContentBase}
		bres.Header["Content-Type"] = base.HeaderValue{"application/sdp"}

		if res.SDP != nil {
			byts, err := res.SDP.Marshal()
			if err != nil {
				return nil, err
			}
			bres.Body = byts
		}

	case ResponseSetup:
		delivery := headers.TransportDeliveryUnicast
		th := headers.Transport{
			Protocol:    headers.TransportProtocolUDP,
			Profile:     headers.TransportProfileAVP,
			Delivery:    &delivery,
			ClientPorts: &res.ClientPorts,
			ServerPorts: &res.LocalPorts,
		}

		if res.TrackID != "" {
			v, err := strconv.ParseUint(res.TrackID, 16, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid track ID '%s'", res.TrackID)
			}
			ssrc := uint32(v)
			th.SSRC = &ssrc
		}

		bres.Header["Transport"] = th.Marshal()

	case ResponsePlay:
		bres.Header["Content-Base"] = base.HeaderValue{res.ContentBase}
		bres.Header["Range"] = base.HeaderValue{"npt=0.000-"}
	}

	return bres, nil
}

// wireAdapter is the WireAdapter used by default, on top of a net.Conn.
type wireAdapter struct {
	nconn        net.Conn
	conn         *conn.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	// CSeq of the last request, as received.
	lastCSeq    int
	lastCSeqRaw string
}

func newWireAdapter(
	nconn net.Conn,
	rw io.ReadWriter,
	readTimeout time.Duration,
	writeTimeout time.Duration,
) *wireAdapter {
	return &wireAdapter{
		nconn:        nconn,
		conn:         conn.NewConn(rw),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Receive implements WireAdapter.
func (a *wireAdapter) Receive() (*Request, error) {
	if a.readTimeout > 0 {
		a.nconn.SetReadDeadline(time.Now().Add(a.readTimeout)) //nolint:errcheck
	}

	breq, err := a.conn.ReadRequest()
	if err != nil {
		return nil, liberrors.ErrServerProtocolRead{Err: err}
	}

	req, err := decodeRequest(breq)
	if err != nil {
		return nil, liberrors.ErrServerProtocolRead{Err: err}
	}

	a.lastCSeq = req.CSeq
	a.lastCSeqRaw = strings.TrimSpace(breq.Header["CSeq"][0])

	return req, nil
}

// Send implements WireAdapter.
func (a *wireAdapter) Send(res *Response) error {
	bres, err := encodeResponse(res, time.Now())
	if err != nil {
		return liberrors.ErrServerProtocolWrite{Err: err}
	}

	// requests are answered in order, therefore the response
	// normally refers to the last received request.
	if a.lastCSeqRaw != "" && res.CSeq == a.lastCSeq {
		bres.Header["CSeq"] = base.HeaderValue{a.lastCSeqRaw}
	}

	if a.writeTimeout > 0 {
		a.nconn.SetWriteDeadline(time.Now().Add(a.writeTimeout)) //nolint:errcheck
	}

	err = a.conn.WriteResponse(bres)
	if err != nil {
		return liberrors.ErrServerProtocolWrite{Err: err}
	}

	return nil
}
