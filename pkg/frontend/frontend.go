package frontend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adammck/numbers/pkg/config"
	"github.com/adammck/numbers/pkg/discovery"
	consuldisc "github.com/adammck/numbers/pkg/discovery/consul"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Frontend serves the JSON API over HTTP, forwarding each submitted range to
// whichever instance of the numbers service is next in line.
type Frontend struct {
	cfg    config.Config
	disc   discovery.Discoverer
	bal    *Balancer
	caller *Caller
	log    *zap.Logger
}

// New returns a Frontend which finds the numbers service via the Consul agent
// found via the usual CONSUL_* environment variables.
func New(cfg config.Config, log *zap.Logger) (*Frontend, error) {
	client, err := consulapi.NewClient(consulapi.DefaultConfig())
	if err != nil {
		return nil, err
	}

	disc := consuldisc.NewDiscoverer(client, cfg.Discovery.Interval, log)
	return newFrontend(cfg, disc, NewBalancer(log), clockwork.NewRealClock(), log), nil
}

func newFrontend(cfg config.Config, disc discovery.Discoverer, bal *Balancer, clock clockwork.Clock, log *zap.Logger) *Frontend {
	return &Frontend{
		cfg:    cfg,
		disc:   disc,
		bal:    bal,
		caller: NewCaller(bal, clock, log),
		log:    log,
	}
}

func (f *Frontend) Caller() *Caller {
	return f.caller
}

func (f *Frontend) Run(ctx context.Context) error {
	getter := f.disc.Discover(f.cfg.ServiceName, f.bal.Add, f.bal.Remove)
	defer f.bal.Close()
	defer getter.Stop()

	hs := &http.Server{
		Addr:              f.cfg.HTTPAddr,
		Handler:           NewServer(f.caller, f.log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f.log.Info("listening", zap.String("addr", f.cfg.HTTPAddr))
		err := hs.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// Block until context is cancelled (or the server fails), then let
	// in-flight requests finish.
	g.Go(func() error {
		<-ctx.Done()
		f.log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(sctx)
	})

	return g.Wait()
}
