package rtspd

import (
	"github.com/bluenviron/rtspd/pkg/description"
)

// ResponseKind is the kind of a response.
type ResponseKind int

// response kinds.
const (
	ResponseGeneric ResponseKind = iota
	ResponseOptions
	ResponseDescribe
	ResponseSetup
	ResponsePlay
)

// String implements fmt.Stringer.
func (k ResponseKind) String() string {
	switch k {
	case ResponseOptions:
		return "options"

	case ResponseDescribe:
		return "describe"

	case ResponseSetup:
		return "setup"

	case ResponsePlay:
		return "play"
	}
	return "generic"
}

// Response is a response to be encoded.
// Fields that are not relevant to Kind are left empty.
type Response struct {
	// kind of the response.
	Kind ResponseKind

	// sequence number of the request.
	CSeq int

	// session id.
	Session string

	// (Describe, Play) content base.
	ContentBase string

	// (Describe) session description.
	SDP *description.Session

	// (Setup) client port range.
	ClientPorts [2]int

	// (Setup) local port range.
	LocalPorts [2]int

	// (Setup) track identifier.
	TrackID string
}
