package discovery

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultIdent returns the instance identifier to use when none was given,
// derived from the address that the instance can be reached at. That's just
// the port for local addresses (which is handy when running a few of them on
// one box) and the whole host:port otherwise.
func DefaultIdent(addr string) (string, error) {
	host, sPort, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	nPort, err := strconv.Atoi(sPort)
	if err != nil {
		return "", err
	}

	if host == "" || host == "localhost" || host == "127.0.0.1" {
		return fmt.Sprintf("%d", nPort), nil
	}

	return fmt.Sprintf("%s:%d", host, nPort), nil
}

// SplitAddr splits addr into a host and a numeric port.
func SplitAddr(addr string) (string, int, error) {
	host, sPort, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}

	port, err := strconv.Atoi(sPort)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}

	return host, port, nil
}
