package headers

import (
	"fmt"
	"strings"

	"github.com/bluenviron/rtspd/pkg/base"
)

// Transports is a Transport header that lists one or more transports,
// in order of preference.
type Transports []Transport

// Unmarshal decodes a Transport header.
func (ts *Transports) Unmarshal(v base.HeaderValue) error {
	if len(v) == 0 {
		return fmt.Errorf("value not provided")
	}

	if len(v) > 1 {
		return fmt.Errorf("value provided multiple times (%v)", v)
	}

	entries := strings.Split(v[0], ",")
	*ts = make(Transports, len(entries))

	for i, entry := range entries {
		var th Transport
		err := th.Unmarshal(base.HeaderValue{strings.TrimSpace(entry)})
		if err != nil {
			return err
		}
		(*ts)[i] = th
	}

	return nil
}

// Marshal encodes a Transport header.
func (ts Transports) Marshal() base.HeaderValue {
	vals := make([]string, len(ts))

	for i, th := range ts {
		vals[i] = th.Marshal()[0]
	}

	return base.HeaderValue{strings.Join(vals, ",")}
}
