package api

import (
	"fmt"
)

// Remote represents a service listening on some remote host and port. They're
// returned by discovery. Most often it's an instance of the numbers service,
// but the frontend registers itself the same way.
//
// Ident is the instance identifier. It must be unique among the instances of
// a service and stable for the lifetime of the process, since it's what
// callers are told when they ask who computed their result.
type Remote struct {
	Ident string
	Host  string
	Port  int
}

// Addr returns an address which can be dialled to connect to the remote.
func (r Remote) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
