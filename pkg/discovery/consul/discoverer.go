package consul

import (
	"fmt"
	"sync"
	"time"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/discovery"
	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// Discoverer polls Consul for the passing instances of a service, and calls
// back when they change.
type Discoverer struct {
	consul   *consulapi.Client
	interval time.Duration
	log      *zap.Logger
}

func NewDiscoverer(client *consulapi.Client, interval time.Duration, log *zap.Logger) *Discoverer {
	return &Discoverer{
		consul:   client,
		interval: interval,
		log:      log,
	}
}

type discoveryGetter struct {
	disc *Discoverer
	name string

	// stop is closed to signal that run should stop ticking and return.
	stop chan bool

	// running can be waited on to block until run is about to return. Wait on
	// this after closing stop to ensure that no more ticks will happen.
	running sync.WaitGroup

	// Remotes that we know about, and the error from the most recent lookup
	// (if it failed). Both guarded by remotesMu.
	remotes   map[string]api.Remote
	err       error
	remotesMu sync.RWMutex

	// Functions to be called when new remotes are added and removed.
	add    func(api.Remote)
	remove func(api.Remote)
}

// Discover performs one blocking fetch, so that the caller can make a request
// as soon as this returns, and then keeps polling in the background until the
// Getter is stopped.
func (d *Discoverer) Discover(svcName string, add, remove func(api.Remote)) discovery.Getter {
	dg := &discoveryGetter{
		disc:    d,
		name:    svcName,
		stop:    make(chan bool),
		remotes: map[string]api.Remote{},
		add:     add,
		remove:  remove,
	}

	if err := dg.tick(); err != nil {
		d.log.Warn("initial discovery failed", zap.String("service", svcName), zap.Error(err))
	}

	dg.running.Add(1)
	go dg.run()

	return dg
}

func (dg *discoveryGetter) tick() error {
	res, err := passing(dg.disc.consul, dg.name)

	dg.remotesMu.Lock()
	dg.err = err
	dg.remotesMu.Unlock()

	if err != nil {
		return err
	}

	added, removed := dg.update(res)

	// Call add/remove callbacks outside of lock. But still synchronously inside
	// this function, so that we won't tick again until they return. Should keep
	// things linear (i.e. no remotes being removed before they're added).

	for _, rem := range added {
		dg.disc.log.Info("added remote", zap.String("service", dg.name), zap.String("ident", rem.Ident), zap.String("addr", rem.Addr()))
		if dg.add != nil {
			dg.add(rem)
		}
	}

	for _, rem := range removed {
		dg.disc.log.Warn("removed remote", zap.String("service", dg.name), zap.String("ident", rem.Ident))
		if dg.remove != nil {
			dg.remove(rem)
		}
	}

	return nil
}

// update replaces the known remotes with res, and returns what changed. A
// remote whose address changed is both removed and added.
func (dg *discoveryGetter) update(res []api.Remote) (added, removed []api.Remote) {
	seen := map[string]struct{}{}

	dg.remotesMu.Lock()
	defer dg.remotesMu.Unlock()

	for _, rem := range res {
		seen[rem.Ident] = struct{}{}

		if prev, ok := dg.remotes[rem.Ident]; ok {
			if prev == rem {
				continue
			}
			removed = append(removed, prev)
		}

		dg.remotes[rem.Ident] = rem
		added = append(added, rem)
	}

	// Remove any instances which have gone from consul.
	for ident, rem := range dg.remotes {
		if _, ok := seen[ident]; !ok {
			delete(dg.remotes, ident)
			removed = append(removed, rem)
		}
	}

	return added, removed
}

func (dg *discoveryGetter) run() {
	defer dg.running.Done()

	ticker := time.NewTicker(dg.disc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := dg.tick(); err != nil {
				dg.disc.log.Warn("discovery failed", zap.String("service", dg.name), zap.Error(err))
			}
		case <-dg.stop:
			return
		}
	}
}

// Get returns the remotes found by the most recent lookup, or its error if it
// failed. The remotes from earlier lookups are kept (and no callbacks fired)
// while Consul is unreachable.
func (dg *discoveryGetter) Get() ([]api.Remote, error) {
	dg.remotesMu.RLock()
	defer dg.remotesMu.RUnlock()

	if dg.err != nil {
		return nil, fmt.Errorf("error looking up %s: %w", dg.name, dg.err)
	}

	res := make([]api.Remote, 0, len(dg.remotes))
	for _, v := range dg.remotes {
		res = append(res, v)
	}

	return res, nil
}

func (dg *discoveryGetter) Stop() error {

	// Signal run to return instead of tick again.
	close(dg.stop)

	// Block until any in-progress ticks are finished.
	dg.running.Wait()

	return nil
}
