package consul

import (
	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/config"
	"github.com/adammck/numbers/pkg/discovery"
	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	hv1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Discovery registers a single instance of a service in Consul, with a gRPC
// health check against the given server, and looks up other services in the
// catalog.
type Discovery struct {
	svcName string
	ident   string
	addrPub string
	host    string
	port    int
	cfg     config.DiscoveryConfig
	consul  *consulapi.Client
	hs      *health.Server
	log     *zap.Logger
}

func New(serviceName, ident, addrPub string, cfg config.DiscoveryConfig, client *consulapi.Client, srv *grpc.Server, log *zap.Logger) (*Discovery, error) {
	host, port, err := discovery.SplitAddr(addrPub)
	if err != nil {
		return nil, err
	}

	d := &Discovery{
		svcName: serviceName,
		ident:   ident,
		addrPub: addrPub,
		host:    host,
		port:    port,
		cfg:     cfg,
		consul:  client,
		hs:      health.NewServer(),
		log:     log,
	}

	d.hs.SetServingStatus("", hv1.HealthCheckResponse_SERVING)
	hv1.RegisterHealthServer(srv, d.hs)

	return d, nil
}

func (d *Discovery) Start() error {
	def := &consulapi.AgentServiceRegistration{
		Name: d.svcName,
		ID:   d.ident,

		// Leaving the address empty means that Consul will use the agent's
		// address, which is what we want when the host part of addrPub is too.
		Address: d.host,
		Port:    d.port,

		Check: &consulapi.AgentServiceCheck{
			GRPC: d.addrPub,

			// How long to wait between checks.
			Interval: d.cfg.CheckInterval.String(),

			// How long to wait for a response before giving up.
			Timeout: d.cfg.CheckTimeout.String(),

			// How long to wait after a service becomes critical (i.e. starts
			// returning error, unhealthy responses, or timing out) before
			// removing it from service discovery. Might actually take longer
			// than this because of Consul implementation.
			DeregisterCriticalServiceAfter: d.cfg.DeregisterAfter.String(),
		},
	}

	err := d.consul.Agent().ServiceRegister(def)
	if err != nil {
		return err
	}

	d.log.Info("registered",
		zap.String("service", d.svcName),
		zap.String("ident", d.ident),
		zap.String("addr", d.addrPub))

	return nil
}

func (d *Discovery) Stop() error {
	d.hs.Shutdown()

	err := d.consul.Agent().ServiceDeregister(d.ident)
	if err != nil {
		return err
	}

	d.log.Info("deregistered", zap.String("service", d.svcName), zap.String("ident", d.ident))
	return nil
}

// Get returns every instance of the named service which is passing its health
// checks right now.
func (d *Discovery) Get(name string) ([]api.Remote, error) {
	return passing(d.consul, name)
}

func passing(c *consulapi.Client, name string) ([]api.Remote, error) {
	res, _, err := c.Health().Service(name, "", true, &consulapi.QueryOptions{})
	if err != nil {
		return []api.Remote{}, err
	}

	output := make([]api.Remote, len(res))
	for i, r := range res {
		output[i] = remoteFromEntry(r)
	}

	return output, nil
}

func remoteFromEntry(e *consulapi.ServiceEntry) api.Remote {
	host := e.Service.Address

	// The service address is empty if the instance registered without one,
	// in which case it's reachable at the node address.
	// https://github.com/hashicorp/consul/issues/2076
	if host == "" {
		host = e.Node.Address
	}

	return api.Remote{
		Ident: e.Service.ID,
		Host:  host,
		Port:  e.Service.Port,
	}
}
