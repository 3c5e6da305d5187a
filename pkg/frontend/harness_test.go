package frontend

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/numbers"
	"github.com/adammck/numbers/pkg/proto/pb"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// fakeNet is a set of in-memory listeners, keyed by address, which the
// Balancer under test dials instead of the network.
type fakeNet struct {
	mu        sync.Mutex
	listeners map[string]*bufconn.Listener
}

func newFakeNet() *fakeNet {
	return &fakeNet{listeners: map[string]*bufconn.Listener{}}
}

func (fn *fakeNet) dialer() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
		fn.mu.Lock()
		lis, ok := fn.listeners[addr]
		fn.mu.Unlock()

		if !ok {
			return nil, fmt.Errorf("connection refused: %s", addr)
		}

		return lis.DialContext(ctx)
	})
}

// serve starts srv listening at the address of rem.
func (fn *fakeNet) serve(t *testing.T, rem api.Remote, srv *grpc.Server) {
	lis := bufconn.Listen(1024 * 1024)

	fn.mu.Lock()
	fn.listeners[rem.Addr()] = lis
	fn.mu.Unlock()

	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
}

// numbersNode starts a real numbers server at rem, identifying as rem.Ident.
func (fn *fakeNet) numbersNode(t *testing.T, rem api.Remote) {
	srv := grpc.NewServer()
	numbers.NewServer(numbers.NewService(rem.Ident), zap.NewNop()).Register(srv)
	fn.serve(t, rem, srv)
}

// stubNode starts srv at rem, in place of a real numbers server.
func (fn *fakeNet) stubNode(t *testing.T, rem api.Remote, ps pb.PrimesServer) {
	srv := grpc.NewServer()
	pb.RegisterPrimesServer(srv, ps)
	fn.serve(t, rem, srv)
}
