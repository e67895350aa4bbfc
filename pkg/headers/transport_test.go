package headers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspd/pkg/base"
)

func deliveryPtr(v TransportDelivery) *TransportDelivery {
	return &v
}

func modePtr(v TransportMode) *TransportMode {
	return &v
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

var casesTransport = []struct {
	name string
	dec  base.HeaderValue
	enc  base.HeaderValue
	h    Transport
}{
	{
		"udp unicast play request",
		base.HeaderValue{`RTP/AVP;unicast;client_port=3456-3457;mode="PLAY"`},
		base.HeaderValue{`RTP/AVP;unicast;client_port=3456-3457;mode=play`},
		Transport{
			Protocol:    TransportProtocolUDP,
			Profile:     TransportProfileAVP,
			Delivery:    deliveryPtr(TransportDeliveryUnicast),
			ClientPorts: &[2]int{3456, 3457},
			Mode:        modePtr(TransportModePlay),
		},
	},
	{
		"udp unicast play response",
		base.HeaderValue{`RTP/AVP/UDP;unicast;client_port=5000-5001;server_port=0-1;ssrc=0A1B2C3D`},
		base.HeaderValue{`RTP/AVP;unicast;client_port=5000-5001;server_port=0-1;ssrc=0A1B2C3D`},
		Transport{
			Protocol:    TransportProtocolUDP,
			Profile:     TransportProfileAVP,
			Delivery:    deliveryPtr(TransportDeliveryUnicast),
			ClientPorts: &[2]int{5000, 5001},
			ServerPorts: &[2]int{0, 1},
			SSRC:        uint32Ptr(0x0A1B2C3D),
		},
	},
	{
		"udp multicast",
		base.HeaderValue{`RTP/AVP;multicast;destination=225.219.201.15;port=7000-7001;ttl=127`},
		base.HeaderValue{`RTP/AVP;multicast`},
		Transport{
			Protocol: TransportProtocolUDP,
			Profile:  TransportProfileAVP,
			Delivery: deliveryPtr(TransportDeliveryMulticast),
		},
	},
	{
		"tcp play request",
		base.HeaderValue{`RTP/AVP/TCP;interleaved=0-1`},
		base.HeaderValue{`RTP/AVP/TCP;interleaved=0-1`},
		Transport{
			Protocol:       TransportProtocolTCP,
			Profile:        TransportProfileAVP,
			InterleavedIDs: &[2]int{0, 1},
		},
	},
	{
		"secure single port",
		base.HeaderValue{`RTP/SAVP;unicast;client_port=14186;mode=receive`},
		base.HeaderValue{`RTP/SAVP;unicast;client_port=14186-14187;mode=record`},
		Transport{
			Protocol:    TransportProtocolUDP,
			Profile:     TransportProfileSAVP,
			Delivery:    deliveryPtr(TransportDeliveryUnicast),
			ClientPorts: &[2]int{14186, 14187},
			Mode:        modePtr(TransportModeRecord),
		},
	},
}

func TestTransportUnmarshal(t *testing.T) {
	for _, ca := range casesTransport {
		t.Run(ca.name, func(t *testing.T) {
			var h Transport
			err := h.Unmarshal(ca.dec)
			require.NoError(t, err)
			require.Equal(t, ca.h, h)
		})
	}
}

func TestTransportMarshal(t *testing.T) {
	for _, ca := range casesTransport {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.enc, ca.h.Marshal())
		})
	}
}

func TestTransportUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		hv   base.HeaderValue
		err  string
	}{
		{
			"empty",
			base.HeaderValue{},
			"value not provided",
		},
		{
			"2 values",
			base.HeaderValue{"a", "b"},
			"value provided multiple times ([a b])",
		},
		{
			"invalid transport",
			base.HeaderValue{`abc;unicast`},
			"invalid transport (abc)",
		},
		{
			"invalid profile",
			base.HeaderValue{`RTP/XYZ;unicast`},
			"invalid profile (RTP/XYZ)",
		},
		{
			"invalid lower transport",
			base.HeaderValue{`RTP/AVP/SCTP;unicast`},
			"invalid lower transport (RTP/AVP/SCTP)",
		},
		{
			"invalid client ports",
			base.HeaderValue{`RTP/AVP;unicast;client_port=aa-14187`},
			"invalid ports (aa-14187)",
		},
		{
			"invalid server ports",
			base.HeaderValue{`RTP/AVP;unicast;server_port=1-2-3`},
			"invalid ports (1-2-3)",
		},
		{
			"invalid ssrc",
			base.HeaderValue{`RTP/AVP;unicast;ssrc=zz`},
			"invalid SSRC (zz)",
		},
		{
			"invalid mode",
			base.HeaderValue{`RTP/AVP;unicast;mode=aa`},
			"invalid transport mode: 'aa'",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var h Transport
			err := h.Unmarshal(ca.hv)
			require.EqualError(t, err, ca.err)
		})
	}
}
