package discovery

import "github.com/adammck/numbers/pkg/api"

// Discoverable is an interface to make oneself discoverable (by name), and
// discovering other services by name.
//
// This is not a general-purpose service discovery interface! This is just the
// specific thing that the numbers service and its frontend need, to avoid
// letting Consul details get all over the place.
type Discoverable interface {
	Start() error
	Stop() error
	Get(string) ([]api.Remote, error)
}

// Discoverer watches a service by name, and calls add and remove as instances
// of it come and go. Either callback may be nil. Callbacks are never called
// concurrently with each other for the same Getter.
type Discoverer interface {
	Discover(svcName string, add, remove func(api.Remote)) Getter
}

// Getter returns the instances currently known for a single service.
type Getter interface {
	Get() ([]api.Remote, error)
	Stop() error
}
