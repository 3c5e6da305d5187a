package numbers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/adammck/numbers/pkg/config"
	"github.com/adammck/numbers/pkg/discovery"
	consuldisc "github.com/adammck/numbers/pkg/discovery/consul"
	"github.com/adammck/numbers/pkg/metrics"
	"github.com/gorilla/mux"
	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// Node is one running instance of the numbers service: a gRPC server, which
// registers itself in service discovery while it's up.
type Node struct {
	cfg  config.Config
	srv  *grpc.Server
	disc discovery.Discoverable
	svc  *Service
	log  *zap.Logger
}

// InstanceID returns the configured instance ident, or one derived from the
// public address if there isn't one.
func InstanceID(cfg config.Config) (string, error) {
	if cfg.InstanceID != "" {
		return cfg.InstanceID, nil
	}

	id, err := discovery.DefaultIdent(cfg.PubAddr)
	if err != nil {
		return "", fmt.Errorf("error deriving instance id from %q: %w", cfg.PubAddr, err)
	}

	return id, nil
}

// New returns a Node which registers in the Consul agent found via the usual
// CONSUL_* environment variables.
func New(cfg config.Config, log *zap.Logger) (*Node, error) {
	ident, err := InstanceID(cfg)
	if err != nil {
		return nil, err
	}

	client, err := consulapi.NewClient(consulapi.DefaultConfig())
	if err != nil {
		return nil, err
	}

	srv := newGRPCServer()

	disc, err := consuldisc.New(cfg.ServiceName, ident, cfg.PubAddr, cfg.Discovery, client, srv, log)
	if err != nil {
		return nil, err
	}

	return newNode(cfg, ident, srv, disc, log), nil
}

func newGRPCServer() *grpc.Server {
	var opts []grpc.ServerOption
	srv := grpc.NewServer(opts...)

	// Register reflection service, so client can introspect (for debugging).
	reflection.Register(srv)

	return srv
}

func newNode(cfg config.Config, ident string, srv *grpc.Server, disc discovery.Discoverable, log *zap.Logger) *Node {
	log = log.With(zap.String("instance", ident))

	n := &Node{
		cfg:  cfg,
		srv:  srv,
		disc: disc,
		svc:  NewService(ident),
		log:  log,
	}

	NewServer(n.svc, log).Register(srv)

	return n
}

func (n *Node) InstanceID() string {
	return n.svc.InstanceID()
}

func (n *Node) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", n.cfg.Addr)
	if err != nil {
		return err
	}

	return n.serve(ctx, lis)
}

func (n *Node) serve(ctx context.Context, lis net.Listener) error {
	n.log.Info("listening", zap.String("addr", lis.Addr().String()))

	// Start the gRPC server in a background routine. errChan receives whatever
	// srv.Serve returns, which is nil once it's been stopped.
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.srv.Serve(lis)
	}()

	if n.cfg.HTTPAddr != "" {
		hs := n.metricsServer()
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Shutdown(sctx)
		}()
	}

	// Register with service discovery
	err := n.disc.Start()
	if err != nil {
		n.srv.Stop()
		<-errChan
		return fmt.Errorf("error registering: %w", err)
	}

	// Block until context is cancelled, indicating that caller wants shutdown,
	// or the server dies on its own.
	select {
	case <-ctx.Done():
		n.log.Info("shutting down")

	case err := <-errChan:
		n.log.Error("error from srv.Serve", zap.Error(err))

		// Nobody should be sent here any more.
		if derr := n.disc.Stop(); derr != nil {
			n.log.Warn("error deregistering", zap.Error(derr))
		}

		// Drop any connections which are still open.
		n.srv.Stop()

		if err == nil {
			err = errors.New("grpc server stopped")
		}
		return fmt.Errorf("error serving: %w", err)
	}

	// Remove ourselves from service discovery first, so that the frontends stop
	// sending us new requests while the in-flight ones finish.
	err = n.disc.Stop()
	if err != nil {
		n.log.Warn("error deregistering", zap.Error(err))
	}

	// Let in-flight RPCs finish and then stop.
	n.srv.GracefulStop()
	err = <-errChan
	if err != nil {
		n.log.Error("error from srv.Serve", zap.Error(err))
		return err
	}

	return nil
}

func (n *Node) metricsServer() *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return &http.Server{
		Addr:              n.cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
