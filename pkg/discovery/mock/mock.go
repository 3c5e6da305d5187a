// Package mock provides in-memory implementations of the discovery interfaces,
// for tests.
package mock

import (
	"sync"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/discovery"
)

// Discovery is an in-memory discovery.Discoverable and discovery.Discoverer.
// Tests add and remove remotes by service name, and any getters watching that
// name are called back synchronously.
type Discovery struct {
	mu      sync.RWMutex
	remotes map[string][]api.Remote // svcName (e.g. "numbers") -> remotes
	getters []*discoveryGetter
	started bool
	stopped bool
}

func New() *Discovery {
	return &Discovery{
		remotes: map[string][]api.Remote{},
	}
}

// interface

func (d *Discovery) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *Discovery) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *Discovery) Get(name string) ([]api.Remote, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res := make([]api.Remote, len(d.remotes[name]))
	copy(res, d.remotes[name])

	return res, nil
}

type discoveryGetter struct {
	disc    *Discovery
	svcName string
	stopped bool

	// Functions to be called when new remotes are added and removed.
	add    func(api.Remote)
	remove func(api.Remote)
}

// Discover calls add for every remote already known, before returning.
func (d *Discovery) Discover(svcName string, add, remove func(api.Remote)) discovery.Getter {
	dg := &discoveryGetter{
		disc:    d,
		svcName: svcName,
		add:     add,
		remove:  remove,
	}

	d.mu.Lock()
	d.getters = append(d.getters, dg)
	existing := make([]api.Remote, len(d.remotes[svcName]))
	copy(existing, d.remotes[svcName])
	d.mu.Unlock()

	if add != nil {
		for _, rem := range existing {
			add(rem)
		}
	}

	return dg
}

func (dg *discoveryGetter) Get() ([]api.Remote, error) {
	return dg.disc.Get(dg.svcName)
}

func (dg *discoveryGetter) Stop() error {
	dg.disc.mu.Lock()
	defer dg.disc.mu.Unlock()
	dg.stopped = true
	return nil
}

// test helpers

// Started returns true if Start has been called.
func (d *Discovery) Started() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.started
}

// Stopped returns true if Stop has been called.
func (d *Discovery) Stopped() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stopped
}

func (d *Discovery) Add(svcName string, remote api.Remote) {
	d.mu.Lock()
	d.remotes[svcName] = append(d.remotes[svcName], remote)
	getters := d.watching(svcName)
	d.mu.Unlock()

	for _, dg := range getters {
		if dg.add != nil {
			dg.add(remote)
		}
	}
}

func (d *Discovery) Remove(svcName string, ident string) {
	d.mu.Lock()
	var removed []api.Remote
	kept := []api.Remote{}
	for _, rem := range d.remotes[svcName] {
		if rem.Ident == ident {
			removed = append(removed, rem)
		} else {
			kept = append(kept, rem)
		}
	}
	d.remotes[svcName] = kept
	getters := d.watching(svcName)
	d.mu.Unlock()

	for _, dg := range getters {
		if dg.remove != nil {
			for _, rem := range removed {
				dg.remove(rem)
			}
		}
	}
}

// Caller must hold d.mu.
func (d *Discovery) watching(svcName string) []*discoveryGetter {
	out := []*discoveryGetter{}
	for _, dg := range d.getters {
		if dg.svcName == svcName && !dg.stopped {
			out = append(out, dg)
		}
	}
	return out
}
