package rtspd

import (
	"github.com/bluenviron/rtspd/pkg/description"
	"github.com/bluenviron/rtspd/pkg/liberrors"
)

// local port range advertised by SETUP.
// media ports are not allocated.
var setupLocalPorts = [2]int{0, 1}

// dispatch builds the response to a request.
// It returns a nil response when the request must not be answered.
func dispatch(
	req *Request,
	sessionID string,
	newTrackID func() (string, error),
) (*Response, error) {
	switch req.Method {
	case MethodOptions:
		return &Response{
			Kind:    ResponseOptions,
			CSeq:    req.CSeq,
			Session: sessionID,
		}, nil

	case MethodDescribe:
		return &Response{
			Kind:        ResponseDescribe,
			CSeq:        req.CSeq,
			Session:     sessionID,
			ContentBase: req.URI,
			SDP:         &description.Session{},
		}, nil

	case MethodSetup:
		if req.Transport == nil {
			return nil, liberrors.ErrServerContractViolation{What: "SETUP request without transport parameters"}
		}

		trackID, err := newTrackID()
		if err != nil {
			return nil, err
		}

		return &Response{
			Kind:        ResponseSetup,
			CSeq:        req.CSeq,
			Session:     sessionID,
			ClientPorts: req.Transport.ClientPorts,
			LocalPorts:  setupLocalPorts,
			TrackID:     trackID,
		}, nil

	case MethodAnnounce:
		return nil, nil

	case MethodPlay:
		return &Response{
			Kind:        ResponsePlay,
			CSeq:        req.CSeq,
			Session:     sessionID,
			ContentBase: req.URI,
		}, nil
	}

	return &Response{
		Kind:    ResponseGeneric,
		CSeq:    req.CSeq,
		Session: sessionID,
	}, nil
}
