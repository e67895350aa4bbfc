package rtspd

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspd/pkg/base"
	"github.com/bluenviron/rtspd/pkg/conn"
	"github.com/bluenviron/rtspd/pkg/description"
	"github.com/bluenviron/rtspd/pkg/liberrors"
)

func TestDecodeRequest(t *testing.T) {
	for _, ca := range []struct {
		name string
		req  base.Request
		dec  *Request
	}{
		{
			"options without url",
			base.Request{
				Method: base.Options,
				Header: base.Header{
					"CSeq": base.HeaderValue{"1"},
				},
			},
			&Request{
				Method: MethodOptions,
				CSeq:   1,
				URI:    "*",
			},
		},
		{
			"describe",
			base.Request{
				Method: base.Describe,
				URL:    base.MustParseURL("rtsp://10.0.16.111:554/Streaming/Channels/101"),
				Header: base.Header{
					"CSeq":   base.HeaderValue{"3"},
					"Accept": base.HeaderValue{"application/sdp"},
				},
			},
			&Request{
				Method: MethodDescribe,
				CSeq:   3,
				URI:    "rtsp://10.0.16.111:554/Streaming/Channels/101",
			},
		},
		{
			"setup",
			base.Request{
				Method: base.Setup,
				URL:    base.MustParseURL("rtsp://localhost:8554/live/trackID=1"),
				Header: base.Header{
					"CSeq":      base.HeaderValue{"4"},
					"Transport": base.HeaderValue{"RTP/AVP;unicast;client_port=5000-5001"},
				},
			},
			&Request{
				Method: MethodSetup,
				CSeq:   4,
				URI:    "rtsp://localhost:8554/live/trackID=1",
				Transport: &TransportParams{
					Transport:      "RTP",
					Profile:        "AVP",
					LowerTransport: "UDP",
					CastType:       "unicast",
					ClientPorts:    [2]int{5000, 5001},
				},
				StreamID: intPtr(1),
			},
		},
		{
			"setup tcp multicast",
			base.Request{
				Method: base.Setup,
				URL:    base.MustParseURL("rtsp://localhost:8554/live/streamid=0"),
				Header: base.Header{
					"CSeq":      base.HeaderValue{"5"},
					"Transport": base.HeaderValue{"RTP/AVP/TCP;multicast"},
				},
			},
			&Request{
				Method: MethodSetup,
				CSeq:   5,
				URI:    "rtsp://localhost:8554/live/streamid=0",
				Transport: &TransportParams{
					Transport:      "RTP",
					Profile:        "AVP",
					LowerTransport: "TCP",
					CastType:       "multicast",
				},
				StreamID: intPtr(0),
			},
		},
		{
			"setup with transport list",
			base.Request{
				Method: base.Setup,
				URL:    base.MustParseURL("rtsp://localhost:8554/live/trackID=0"),
				Header: base.Header{
					"CSeq": base.HeaderValue{"6"},
					"Transport": base.HeaderValue{
						"RTP/AVP;unicast;client_port=5000-5001,RTP/AVP/TCP;unicast;interleaved=0-1",
					},
				},
			},
			&Request{
				Method: MethodSetup,
				CSeq:   6,
				URI:    "rtsp://localhost:8554/live/trackID=0",
				Transport: &TransportParams{
					Transport:      "RTP",
					Profile:        "AVP",
					LowerTransport: "UDP",
					CastType:       "unicast",
					ClientPorts:    [2]int{5000, 5001},
				},
				StreamID: intPtr(0),
			},
		},
		{
			"setup with secure transport first",
			base.Request{
				Method: base.Setup,
				URL:    base.MustParseURL("rtsp://localhost:8554/live/trackID=1"),
				Header: base.Header{
					"CSeq": base.HeaderValue{"7"},
					"Transport": base.HeaderValue{
						"RTP/SAVP;unicast;client_port=6000-6001, RTP/AVP/TCP;unicast;interleaved=2-3",
					},
				},
			},
			&Request{
				Method: MethodSetup,
				CSeq:   7,
				URI:    "rtsp://localhost:8554/live/trackID=1",
				Transport: &TransportParams{
					Transport:      "RTP",
					Profile:        "AVP",
					LowerTransport: "TCP",
					CastType:       "unicast",
				},
				StreamID: intPtr(1),
			},
		},
		{
			"pause",
			base.Request{
				Method: base.Pause,
				URL:    base.MustParseURL("rtsp://localhost:8554/live"),
				Header: base.Header{
					"CSeq": base.HeaderValue{"6"},
				},
			},
			&Request{
				Method: MethodOther,
				CSeq:   6,
				URI:    "rtsp://localhost:8554/live",
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			dec, err := decodeRequest(&ca.req)
			require.NoError(t, err)
			require.Equal(t, ca.dec, dec)
		})
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		req  base.Request
		err  string
	}{
		{
			"missing cseq",
			base.Request{
				Method: base.Options,
				Header: base.Header{},
			},
			"CSeq is missing",
		},
		{
			"invalid cseq",
			base.Request{
				Method: base.Options,
				Header: base.Header{
					"CSeq": base.HeaderValue{"abc"},
				},
			},
			"invalid CSeq 'abc'",
		},
		{
			"missing url",
			base.Request{
				Method: base.Describe,
				Header: base.Header{
					"CSeq": base.HeaderValue{"1"},
				},
			},
			"invalid path",
		},
		{
			"setup without transport",
			base.Request{
				Method: base.Setup,
				URL:    base.MustParseURL("rtsp://localhost:8554/live"),
				Header: base.Header{
					"CSeq": base.HeaderValue{"1"},
				},
			},
			"invalid transport header: header is missing",
		},
		{
			"setup without supported transport",
			base.Request{
				Method: base.Setup,
				URL:    base.MustParseURL("rtsp://localhost:8554/live"),
				Header: base.Header{
					"CSeq":      base.HeaderValue{"1"},
					"Transport": base.HeaderValue{"RTP/SAVP;unicast;client_port=5000-5001"},
				},
			},
			"invalid transport header: no supported transport in 'RTP/SAVP;unicast;client_port=5000-5001'",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := decodeRequest(&ca.req)
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestEncodeResponse(t *testing.T) {
	now := time.Date(2023, 12, 1, 11, 15, 59, 0, time.UTC)

	for _, ca := range []struct {
		name string
		res  Response
		enc  *base.Response
	}{
		{
			"options",
			Response{
				Kind:    ResponseOptions,
				CSeq:    1,
				Session: "abcd1234",
			},
			&base.Response{
				StatusCode: base.StatusOK,
				Header: base.Header{
					"CSeq":    base.HeaderValue{"1"},
					"Server":  base.HeaderValue{"rtspd"},
					"Session": base.HeaderValue{"abcd1234"},
					"Public": base.HeaderValue{
						"OPTIONS, DESCRIBE, PLAY, PAUSE, SETUP, TEARDOWN, SET_PARAMETER, GET_PARAMETER",
					},
					"Date": base.HeaderValue{"Fri, Dec 01 2023 11:15:59 GMT"},
				},
			},
		},
		{
			"describe",
			Response{
				Kind:        ResponseDescribe,
				CSeq:        3,
				Session:     "abcd1234",
				ContentBase: "rtsp://10.0.16.111:554/Streaming/Channels/101",
				SDP:         &description.Session{},
			},
			&base.Response{
				StatusCode: base.StatusOK,
				Header: base.Header{
					"CSeq":         base.HeaderValue{"3"},
					"Server":       base.HeaderValue{"rtspd"},
					"Session":      base.HeaderValue{"abcd1234"},
					"Content-Base": base.HeaderValue{"rtsp://10.0.16.111:554/Streaming/Channels/101"},
					"Content-Type": base.HeaderValue{"application/sdp"},
				},
				Body: []byte("v=0\r\n" +
					"o=- 0 0 IN IP4 127.0.0.1\r\n" +
					"s= \r\n" +
					"c=IN IP4 0.0.0.0\r\n" +
					"t=0 0\r\n"),
			},
		},
		{
			"setup",
			Response{
				Kind:        ResponseSetup,
				CSeq:        4,
				Session:     "abcd1234",
				ClientPorts: [2]int{5000, 5001},
				LocalPorts:  [2]int{0, 1},
				TrackID:     "0000ABCD",
			},
			&base.Response{
				StatusCode: base.StatusOK,
				Header: base.Header{
					"CSeq":      base.HeaderValue{"4"},
					"Server":    base.HeaderValue{"rtspd"},
					"Session":   base.HeaderValue{"abcd1234"},
					"Transport": base.HeaderValue{"RTP/AVP;unicast;client_port=5000-5001;server_port=0-1;ssrc=0000ABCD"},
				},
			},
		},
		{
			"play",
			Response{
				Kind:        ResponsePlay,
				CSeq:        5,
				Session:     "abcd1234",
				ContentBase: "rtsp://localhost:8554/live",
			},
			&base.Response{
				StatusCode: base.StatusOK,
				Header: base.Header{
					"CSeq":         base.HeaderValue{"5"},
					"Server":       base.HeaderValue{"rtspd"},
					"Session":      base.HeaderValue{"abcd1234"},
					"Content-Base": base.HeaderValue{"rtsp://localhost:8554/live"},
					"Range":        base.HeaderValue{"npt=0.000-"},
				},
			},
		},
		{
			"generic without session",
			Response{
				Kind: ResponseGeneric,
				CSeq: 6,
			},
			&base.Response{
				StatusCode: base.StatusOK,
				Header: base.Header{
					"CSeq":   base.HeaderValue{"6"},
					"Server": base.HeaderValue{"rtspd"},
				},
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			enc, err := encodeResponse(&ca.res, now)
			require.NoError(t, err)
			require.Equal(t, ca.enc, enc)
		})
	}
}

func TestEncodeResponseInvalidTrackID(t *testing.T) {
	_, err := encodeResponse(&Response{
		Kind:    ResponseSetup,
		TrackID: "zzzz",
	}, time.Now())
	require.EqualError(t, err, "invalid track ID 'zzzz'")
}

func TestWireAdapterReceiveSend(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	a := newWireAdapter(serverConn, serverConn, time.Second, time.Second)

	go func() {
		clientConn.Write([]byte("SETUP rtsp://localhost:8554/live/trackID=0 RTSP/1.0\r\n" + //nolint:errcheck
			"CSeq: 2\r\n" +
			"Transport: RTP/AVP;unicast;client_port=5000-5001\r\n" +
			"\r\n"))
	}()

	req, err := a.Receive()
	require.NoError(t, err)
	require.Equal(t, MethodSetup, req.Method)
	require.Equal(t, 2, req.CSeq)
	require.Equal(t, [2]int{5000, 5001}, req.Transport.ClientPorts)

	done := make(chan error)
	go func() {
		done <- a.Send(&Response{
			Kind:        ResponseSetup,
			CSeq:        req.CSeq,
			Session:     "abcd1234",
			ClientPorts: req.Transport.ClientPorts,
			LocalPorts:  [2]int{0, 1},
			TrackID:     "0000ABCD",
		})
	}()

	var res base.Response
	err = res.Unmarshal(bufio.NewReader(clientConn))
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Equal(t, base.StatusOK, res.StatusCode)
	require.Equal(t, base.HeaderValue{"2"}, res.Header["CSeq"])
	require.Equal(t, base.HeaderValue{"RTP/AVP;unicast;client_port=5000-5001;server_port=0-1;ssrc=0000ABCD"},
		res.Header["Transport"])
}

func TestWireAdapterTransportListAndCSeqEcho(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	a := newWireAdapter(serverConn, serverConn, time.Second, time.Second)

	go func() {
		clientConn.Write([]byte("SETUP rtsp://localhost:8554/live/trackID=0 RTSP/1.0\r\n" + //nolint:errcheck
			"CSeq: 007\r\n" +
			"Transport: RTP/AVP;unicast;client_port=5000-5001,RTP/AVP/TCP;unicast;interleaved=0-1\r\n" +
			"\r\n"))
	}()

	req, err := a.Receive()
	require.NoError(t, err)
	require.Equal(t, 7, req.CSeq)
	require.Equal(t, "UDP", req.Transport.LowerTransport)
	require.Equal(t, [2]int{5000, 5001}, req.Transport.ClientPorts)

	done := make(chan error)
	go func() {
		done <- a.Send(&Response{
			Kind:        ResponseSetup,
			CSeq:        req.CSeq,
			ClientPorts: req.Transport.ClientPorts,
			LocalPorts:  [2]int{0, 1},
			TrackID:     "0000ABCD",
		})
	}()

	var res base.Response
	err = res.Unmarshal(bufio.NewReader(clientConn))
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Equal(t, base.HeaderValue{"007"}, res.Header["CSeq"])
}

func TestEncodeResponseSetupInterleavedRequest(t *testing.T) {
	tp, err := decodeTransport(base.HeaderValue{"RTP/AVP/TCP;unicast;interleaved=0-1"})
	require.NoError(t, err)
	require.Equal(t, "TCP", tp.LowerTransport)

	res, err := dispatch(&Request{
		Method:    MethodSetup,
		CSeq:      3,
		URI:       "rtsp://localhost:8554/live/trackID=0",
		Transport: tp,
	}, "abcd1234", fixedTrackID)
	require.NoError(t, err)

	bres, err := encodeResponse(res, time.Now())
	require.NoError(t, err)
	require.Equal(t, base.HeaderValue{"RTP/AVP;unicast;client_port=0-0;server_port=0-1;ssrc=0000ABCD"},
		bres.Header["Transport"])
}

func TestWireAdapterReceiveTimeout(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	a := newWireAdapter(serverConn, serverConn, 50*time.Millisecond, time.Second)

	_, err := a.Receive()
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrDeadlineExceeded))

	var perr liberrors.ErrServerProtocolRead
	require.True(t, errors.As(err, &perr))
}

func TestWireAdapterReceiveInvalid(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("DESCRIBE * RTSP/1.0\r\nCSeq: 1\r\n\r\n")

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	a := &wireAdapter{
		nconn: serverConn,
		conn:  conn.NewConn(&buf),
	}

	_, err := a.Receive()
	require.EqualError(t, err, "unable to read request: invalid path")
}
