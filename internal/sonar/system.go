package sonar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedVersion is returned for features the connected server no longer provides.
var ErrUnsupportedVersion = errors.New("unsupported server version")

// Version is a dotted server version such as 8.9.10.61524.
type Version []int

// ParseVersion parses a dotted version string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	v := make(Version, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid server version %q", s)
		}
		v = append(v, n)
	}
	return v, nil
}

// AtLeast reports whether v >= other, comparing component by component.
func (v Version) AtLeast(other ...int) bool {
	for i, want := range other {
		got := 0
		if i < len(v) {
			got = v[i]
		}
		if got != want {
			return got > want
		}
	}
	return true
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// ServerVersion returns the version of the server.
func (c *Client) ServerVersion() (Version, error) {
	resp, err := c.RestyClient.R().Get(c.resolveURL("/api/server/version"))
	if err != nil {
		return nil, fmt.Errorf("error fetching server version: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return ParseVersion(resp.String())
}
