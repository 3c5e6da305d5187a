package frontend

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/metrics"
	"github.com/adammck/numbers/pkg/proto/pb"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrNoBackends is returned by Pick when discovery hasn't found any instances
// of the numbers service.
var ErrNoBackends = errors.New("no numbers instances available")

type backend struct {
	remote api.Remote
	conn   *grpc.ClientConn
	client pb.PrimesClient

	// Calls currently using conn. Only incremented while the backend is in
	// Balancer.backends, so once it's been taken out, this only goes down.
	inflight sync.WaitGroup
}

// retire closes the connection once every call already using it has returned,
// so that they finish (or fail) on their own.
func (be *backend) retire() {
	go func() {
		be.inflight.Wait()
		be.conn.Close()
	}()
}

// Balancer keeps a client for every known instance of the numbers service, and
// hands them out round robin. Its Add and Remove methods are meant to be given
// to a discovery.Discoverer as callbacks.
type Balancer struct {
	backends map[string]*backend // ident -> backend
	order    []string            // sorted idents, for stable rotation
	mu       sync.RWMutex        // guards backends and order

	next atomic.Uint64

	opts []grpc.DialOption
	log  *zap.Logger
}

// NewBalancer returns an empty Balancer. Connections are insecure; opts are
// appended to that, mostly so that tests can swap the dialer.
func NewBalancer(log *zap.Logger, opts ...grpc.DialOption) *Balancer {
	return &Balancer{
		backends: map[string]*backend{},
		opts:     append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...),
		log:      log,
	}
}

// Add starts sending requests to rem. If an instance with the same ident is
// already known, it's replaced. Calls already sent to the old one are allowed
// to finish.
func (b *Balancer) Add(rem api.Remote) {

	// Doesn't actually connect until the first request. The passthrough scheme
	// hands the address straight to the dialer, like grpc.Dial used to.
	conn, err := grpc.NewClient("passthrough:///"+rem.Addr(), b.opts...)
	if err != nil {
		b.log.Error("error creating client", zap.String("ident", rem.Ident), zap.String("addr", rem.Addr()), zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.backends[rem.Ident]; ok {
		prev.retire()
	}

	b.backends[rem.Ident] = &backend{
		remote: rem,
		conn:   conn,
		client: pb.NewPrimesClient(conn),
	}

	b.reorder()
}

// Remove stops sending requests to rem, and closes its connection once the
// calls in flight to it have returned. Does nothing if the instance with that
// ident has since been replaced by one at a different address.
func (b *Balancer) Remove(rem api.Remote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	be, ok := b.backends[rem.Ident]
	if !ok {
		b.log.Warn("tried to remove unknown backend", zap.String("ident", rem.Ident))
		return
	}

	if be.remote != rem {
		return
	}

	be.retire()
	delete(b.backends, rem.Ident)
	b.reorder()
}

// Caller must hold b.mu.
func (b *Balancer) reorder() {
	b.order = b.order[:0]
	for ident := range b.backends {
		b.order = append(b.order, ident)
	}
	sort.Strings(b.order)

	metrics.SetBackends(len(b.order))
}

// Pick returns the next backend in rotation, and a func to call when done with
// its client. The connection isn't closed by Add or Remove until then.
func (b *Balancer) Pick() (api.Remote, pb.PrimesClient, func(), error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.order) == 0 {
		return api.Remote{}, nil, nil, ErrNoBackends
	}

	i := (b.next.Add(1) - 1) % uint64(len(b.order))
	be := b.backends[b.order[i]]
	be.inflight.Add(1)

	return be.remote, be.client, be.inflight.Done, nil
}

// Remotes returns the known backends, ordered by ident.
func (b *Balancer) Remotes() []api.Remote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]api.Remote, len(b.order))
	for i, ident := range b.order {
		out[i] = b.backends[ident].remote
	}

	return out
}

// Close closes every connection right away, cancelling any calls in flight.
// The Balancer is empty afterwards, but can still be added to.
func (b *Balancer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ident, be := range b.backends {
		be.conn.Close()
		delete(b.backends, ident)
	}

	b.reorder()
}
