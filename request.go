package rtspd

import (
	"github.com/bluenviron/rtspd/pkg/base"
)

// Method is the method of a request, as seen by the dispatcher.
type Method int

// methods.
const (
	MethodOther Method = iota
	MethodOptions
	MethodDescribe
	MethodSetup
	MethodAnnounce
	MethodPlay
	MethodRecord
	MethodTeardown
)

var methodNames = map[Method]string{
	MethodOther:    "OTHER",
	MethodOptions:  string(base.Options),
	MethodDescribe: string(base.Describe),
	MethodSetup:    string(base.Setup),
	MethodAnnounce: string(base.Announce),
	MethodPlay:     string(base.Play),
	MethodRecord:   string(base.Record),
	MethodTeardown: string(base.Teardown),
}

// String implements fmt.Stringer.
func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "OTHER"
}

func methodFromBase(m base.Method) Method {
	switch m {
	case base.Options:
		return MethodOptions

	case base.Describe:
		return MethodDescribe

	case base.Setup:
		return MethodSetup

	case base.Announce:
		return MethodAnnounce

	case base.Play:
		return MethodPlay

	case base.Record:
		return MethodRecord

	case base.Teardown:
		return MethodTeardown
	}

	return MethodOther
}

// TransportParams are the transport parameters of a SETUP request.
type TransportParams struct {
	// "RTP"
	Transport string

	// "AVP" or "SAVP"
	Profile string

	// "UDP" or "TCP"
	LowerTransport string

	// "unicast" or "multicast"
	CastType string

	// client port range.
	ClientPorts [2]int
}

// Request is a decoded request.
type Request struct {
	// method.
	Method Method

	// sequence number, echoed in the response.
	CSeq int

	// target URI.
	URI string

	// (SETUP only) transport parameters.
	Transport *TransportParams

	// (optional) stream identifier, from a "trackID=N" or "streamid=N" control attribute.
	StreamID *int
}
