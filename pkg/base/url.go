package base

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URL is a RTSP URL.
// This is basically an HTTP URL with some additional functions to handle
// control attributes.
type URL url.URL

// ParseURL parses a RTSP URL.
func ParseURL(s string) (*URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "rtsp" && u.Scheme != "rtsps" {
		return nil, fmt.Errorf("unsupported scheme '%s'", u.Scheme)
	}

	if u.Opaque != "" {
		return nil, fmt.Errorf("URLs with opaque data are not supported")
	}

	if u.Fragment != "" {
		return nil, fmt.Errorf("URLs with fragments are not supported")
	}

	return (*URL)(u), nil
}

// MustParseURL is like ParseURL but panics in case of errors.
func MustParseURL(s string) *URL {
	u, err := ParseURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String implements fmt.Stringer.
func (u *URL) String() string {
	return (*url.URL)(u).String()
}

// Clone clones a URL.
func (u *URL) Clone() *URL {
	return (*URL)(&url.URL{
		Scheme:     u.Scheme,
		User:       u.User,
		Host:       u.Host,
		Path:       u.Path,
		RawPath:    u.RawPath,
		ForceQuery: u.ForceQuery,
		RawQuery:   u.RawQuery,
	})
}

// CloneWithoutCredentials clones a URL without its credentials.
func (u *URL) CloneWithoutCredentials() *URL {
	c := u.Clone()
	c.User = nil
	return c
}

// StreamID returns the stream identifier contained in the control attribute
// of the URL path ("trackID=N" or "streamid=N").
// It returns false when the URL does not contain any.
func (u *URL) StreamID() (int, bool) {
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	for _, prefix := range []string{"trackID=", "streamid="} {
		i := strings.LastIndex(path, prefix)
		if i < 0 {
			continue
		}

		// the attribute must start a path segment or a query
		if i > 0 && path[i-1] != '/' && path[i-1] != '?' {
			continue
		}

		tmp, err := strconv.ParseUint(path[i+len(prefix):], 10, 31)
		if err != nil {
			return 0, false
		}

		return int(tmp), true
	}

	return 0, false
}
