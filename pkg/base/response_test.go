package base

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var casesResponse = []struct {
	name string
	byts []byte
	res  Response
}{
	{
		"ok with single header",
		[]byte("RTSP/1.0 200 OK\r\n" +
			"CSeq: 1\r\n" +
			"Public: OPTIONS, DESCRIBE, PLAY, PAUSE, SETUP, TEARDOWN, SET_PARAMETER, GET_PARAMETER\r\n" +
			"Session: abcdefgh\r\n" +
			"\r\n"),
		Response{
			StatusCode:    StatusOK,
			StatusMessage: "OK",
			Header: Header{
				"CSeq":    HeaderValue{"1"},
				"Public":  HeaderValue{"OPTIONS, DESCRIBE, PLAY, PAUSE, SETUP, TEARDOWN, SET_PARAMETER, GET_PARAMETER"},
				"Session": HeaderValue{"abcdefgh"},
			},
		},
	},
	{
		"ok with payload",
		[]byte("RTSP/1.0 200 OK\r\n" +
			"CSeq: 3\r\n" +
			"Content-Base: rtsp://example.com/media/\r\n" +
			"Content-Length: 7\r\n" +
			"Content-Type: application/sdp\r\n" +
			"\r\n" +
			"v=0\r\n\r\n"),
		Response{
			StatusCode:    StatusOK,
			StatusMessage: "OK",
			Header: Header{
				"CSeq":           HeaderValue{"3"},
				"Content-Base":   HeaderValue{"rtsp://example.com/media/"},
				"Content-Length": HeaderValue{"7"},
				"Content-Type":   HeaderValue{"application/sdp"},
			},
			Body: []byte("v=0\r\n\r\n"),
		},
	},
}

func TestResponseUnmarshal(t *testing.T) {
	for _, ca := range casesResponse {
		t.Run(ca.name, func(t *testing.T) {
			var res Response
			err := res.Unmarshal(bufio.NewReader(bytes.NewBuffer(ca.byts)))
			require.NoError(t, err)
			require.Equal(t, ca.res, res)
		})
	}
}

func TestResponseMarshal(t *testing.T) {
	for _, ca := range casesResponse {
		t.Run(ca.name, func(t *testing.T) {
			buf, err := ca.res.Marshal()
			require.NoError(t, err)
			require.Equal(t, ca.byts, buf)
		})
	}
}

func TestResponseMarshalAutoFillStatus(t *testing.T) {
	res := &Response{
		StatusCode: StatusNotImplemented,
		Header: Header{
			"CSeq": HeaderValue{"2"},
		},
	}

	buf, err := res.Marshal()
	require.NoError(t, err)
	require.Equal(t, []byte("RTSP/1.0 501 Not Implemented\r\n"+
		"CSeq: 2\r\n"+
		"\r\n"), buf)
}

func TestResponseUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts []byte
		err  string
	}{
		{
			"empty",
			[]byte{},
			"EOF",
		},
		{
			"invalid protocol",
			[]byte("RTSP/2.0 200 OK\r\n"),
			"expected 'RTSP/1.0', got 'RTSP/2.0'",
		},
		{
			"invalid code",
			[]byte("RTSP/1.0 abc OK\r\n"),
			"unable to parse status code",
		},
		{
			"empty message",
			[]byte("RTSP/1.0 200 \r\n"),
			"empty status message",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var res Response
			err := res.Unmarshal(bufio.NewReader(bytes.NewBuffer(ca.byts)))
			require.EqualError(t, err, ca.err)
		})
	}
}
