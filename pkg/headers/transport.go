// Package headers contains various RTSP headers.
package headers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/rtspd/pkg/base"
)

// TransportProtocol is the lower transport of a Transport header.
type TransportProtocol int

// transport protocols.
const (
	TransportProtocolUDP TransportProtocol = iota
	TransportProtocolTCP
)

// String implements fmt.Stringer.
func (p TransportProtocol) String() string {
	if p == TransportProtocolTCP {
		return "TCP"
	}
	return "UDP"
}

// TransportProfile is the profile of a Transport header.
type TransportProfile int

// transport profiles.
const (
	TransportProfileAVP TransportProfile = iota
	TransportProfileSAVP
)

// String implements fmt.Stringer.
func (p TransportProfile) String() string {
	if p == TransportProfileSAVP {
		return "SAVP"
	}
	return "AVP"
}

// TransportDelivery is a delivery method.
type TransportDelivery int

// transport delivery methods.
const (
	TransportDeliveryUnicast TransportDelivery = iota
	TransportDeliveryMulticast
)

// String implements fmt.Stringer.
func (d TransportDelivery) String() string {
	if d == TransportDeliveryMulticast {
		return "multicast"
	}
	return "unicast"
}

// TransportMode is a transport mode.
type TransportMode int

// transport modes.
const (
	TransportModePlay TransportMode = iota
	TransportModeRecord
)

// String implements fmt.Stringer.
func (m TransportMode) String() string {
	if m == TransportModeRecord {
		return "record"
	}
	return "play"
}

// Transport is a Transport header.
type Transport struct {
	// lower transport of the stream
	Protocol TransportProtocol

	// profile of the stream
	Profile TransportProfile

	// (optional) delivery method of the stream
	Delivery *TransportDelivery

	// (optional) client ports
	ClientPorts *[2]int

	// (optional) server ports
	ServerPorts *[2]int

	// (optional) interleaved frame IDs
	InterleavedIDs *[2]int

	// (optional) SSRC of the packets of the stream
	SSRC *uint32

	// (optional) mode
	Mode *TransportMode
}

func parsePorts(val string) (*[2]int, error) {
	ports := strings.Split(val, "-")
	if len(ports) == 2 {
		port1, err := strconv.ParseUint(ports[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ports (%v)", val)
		}

		port2, err := strconv.ParseUint(ports[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ports (%v)", val)
		}

		return &[2]int{int(port1), int(port2)}, nil
	}

	if len(ports) == 1 {
		port1, err := strconv.ParseUint(ports[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ports (%v)", val)
		}

		return &[2]int{int(port1), int(port1 + 1)}, nil
	}

	return nil, fmt.Errorf("invalid ports (%v)", val)
}

func parseProtocolSpec(h *Transport, spec string) error {
	parts := strings.Split(spec, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "RTP" {
		return fmt.Errorf("invalid transport (%v)", spec)
	}

	switch parts[1] {
	case "AVP":
		h.Profile = TransportProfileAVP

	case "SAVP":
		h.Profile = TransportProfileSAVP

	default:
		return fmt.Errorf("invalid profile (%v)", spec)
	}

	h.Protocol = TransportProtocolUDP

	if len(parts) == 3 {
		switch parts[2] {
		case "UDP":

		case "TCP":
			h.Protocol = TransportProtocolTCP

		default:
			return fmt.Errorf("invalid lower transport (%v)", spec)
		}
	}

	return nil
}

// Unmarshal decodes a Transport header.
func (h *Transport) Unmarshal(v base.HeaderValue) error {
	if len(v) == 0 {
		return fmt.Errorf("value not provided")
	}

	if len(v) > 1 {
		return fmt.Errorf("value provided multiple times (%v)", v)
	}

	parts := strings.Split(v[0], ";")

	err := parseProtocolSpec(h, parts[0])
	if err != nil {
		return err
	}

	for _, part := range parts[1:] {
		key, val, _ := strings.Cut(part, "=")

		switch key {
		case "unicast":
			v := TransportDeliveryUnicast
			h.Delivery = &v

		case "multicast":
			v := TransportDeliveryMulticast
			h.Delivery = &v

		case "client_port":
			h.ClientPorts, err = parsePorts(val)
			if err != nil {
				return err
			}

		case "server_port":
			h.ServerPorts, err = parsePorts(val)
			if err != nil {
				return err
			}

		case "interleaved":
			h.InterleavedIDs, err = parsePorts(val)
			if err != nil {
				return err
			}

		case "ssrc":
			val = strings.TrimLeft(val, " ")

			if (len(val) % 2) != 0 {
				val = "0" + val
			}

			tmp, err := strconv.ParseUint(val, 16, 32)
			if err != nil {
				return fmt.Errorf("invalid SSRC (%v)", val)
			}
			ssrc := uint32(tmp)
			h.SSRC = &ssrc

		case "mode":
			str := strings.ToLower(val)
			str = strings.TrimPrefix(str, "\"")
			str = strings.TrimSuffix(str, "\"")

			switch str {
			case "play":
				v := TransportModePlay
				h.Mode = &v

			// receive is an old alias for record, used by ffmpeg with the
			// -listen flag, and by Darwin Streaming Server
			case "record", "receive":
				v := TransportModeRecord
				h.Mode = &v

			default:
				return fmt.Errorf("invalid transport mode: '%s'", str)
			}
		}

		// ignore non-standard keys
	}

	return nil
}

// Marshal encodes a Transport header.
func (h Transport) Marshal() base.HeaderValue {
	var rets []string

	spec := "RTP/" + h.Profile.String()
	if h.Protocol == TransportProtocolTCP {
		spec += "/TCP"
	}
	rets = append(rets, spec)

	if h.Delivery != nil {
		rets = append(rets, h.Delivery.String())
	}

	if h.ClientPorts != nil {
		ports := *h.ClientPorts
		rets = append(rets, "client_port="+strconv.FormatInt(int64(ports[0]), 10)+"-"+strconv.FormatInt(int64(ports[1]), 10))
	}

	if h.ServerPorts != nil {
		ports := *h.ServerPorts
		rets = append(rets, "server_port="+strconv.FormatInt(int64(ports[0]), 10)+"-"+strconv.FormatInt(int64(ports[1]), 10))
	}

	if h.InterleavedIDs != nil {
		ports := *h.InterleavedIDs
		rets = append(rets, "interleaved="+strconv.FormatInt(int64(ports[0]), 10)+"-"+strconv.FormatInt(int64(ports[1]), 10))
	}

	if h.SSRC != nil {
		rets = append(rets, "ssrc="+fmt.Sprintf("%08X", *h.SSRC))
	}

	if h.Mode != nil {
		rets = append(rets, "mode="+h.Mode.String())
	}

	return base.HeaderValue{strings.Join(rets, ";")}
}
