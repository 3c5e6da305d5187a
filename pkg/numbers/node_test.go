package numbers

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/config"
	"github.com/adammck/numbers/pkg/discovery/mock"
	"github.com/adammck/numbers/pkg/proto/conv"
	"github.com/adammck/numbers/pkg/proto/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func TestInstanceID(t *testing.T) {
	id, err := InstanceID(config.Config{InstanceID: "explicit", PubAddr: "10.0.0.1:9000"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", id)

	id, err = InstanceID(config.Config{PubAddr: "localhost:9001"})
	require.NoError(t, err)
	assert.Equal(t, "9001", id)

	_, err = InstanceID(config.Config{PubAddr: "nonsense"})
	assert.Error(t, err)
}

func TestNodeLifecycle(t *testing.T) {
	disc := mock.New()
	n := newNode(config.Config{}, "node-a", newGRPCServer(), disc, zap.NewNop())
	assert.Equal(t, "node-a", n.InstanceID())

	lis := bufconn.Listen(1024 * 1024)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	res, err := pb.NewPrimesClient(conn).Compute(ctx, conv.RangeToProto(api.Range{From: 0, To: 10}))
	require.NoError(t, err)

	got, err := conv.ResultFromProto(res)
	require.NoError(t, err)
	assert.Equal(t, api.PrimeResult{Primes: []int{2, 3, 5, 7}, InstanceID: "node-a"}, got)

	require.Eventually(t, func() bool {
		return disc.Started()
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not shut down")
	}

	assert.True(t, disc.Stopped())
}

func TestNodeRegistersServices(t *testing.T) {
	srv := newGRPCServer()
	newNode(config.Config{}, "node-b", srv, mock.New(), zap.NewNop())

	info := srv.GetServiceInfo()
	assert.Contains(t, info, pb.ServiceName)
	assert.Contains(t, info, "grpc.reflection.v1.ServerReflection")
}

func TestNodeServeFails(t *testing.T) {
	disc := mock.New()
	n := newNode(config.Config{}, "node-c", newGRPCServer(), disc, zap.NewNop())

	lis := bufconn.Listen(1024 * 1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.serve(ctx, lis)
	}()

	require.Eventually(t, func() bool {
		return disc.Started()
	}, time.Second, 5*time.Millisecond)

	// Accept now fails, so Serve returns. The context is still live.
	require.NoError(t, lis.Close())

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "error serving")
	case <-time.After(5 * time.Second):
		t.Fatal("node did not notice that it stopped serving")
	}

	assert.True(t, disc.Stopped())
}

// failingDiscovery can't register.
type failingDiscovery struct {
	*mock.Discovery
}

func (failingDiscovery) Start() error {
	return errors.New("no consul agent")
}

func TestNodeRegisterFails(t *testing.T) {
	n := newNode(config.Config{HTTPAddr: "127.0.0.1:0"}, "node-d", newGRPCServer(), failingDiscovery{mock.New()}, zap.NewNop())

	err := n.serve(context.Background(), bufconn.Listen(1024*1024))
	assert.ErrorContains(t, err, "error registering: no consul agent")
}
