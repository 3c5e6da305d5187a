package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	consuldisc "github.com/adammck/numbers/pkg/discovery/consul"
	"github.com/adammck/numbers/pkg/frontend"
	"github.com/adammck/numbers/pkg/logging"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/jonboulle/clockwork"
	"github.com/lthibault/jitterbug"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ConfigWorker struct {
	Name string `mapstructure:"name"`
	QPS  uint   `mapstructure:"qps"`
	From int    `mapstructure:"from"`
	To   int    `mapstructure:"to"`
}

type Config struct {
	Workers []ConfigWorker `mapstructure:"workers"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, fmt.Errorf("error reading config: %w", err)
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return c, nil
}

// Stats counts requests by the instance which answered them. Failed requests
// are counted under the empty string.
type Stats struct {
	mu     sync.Mutex
	counts map[string]int
	total  time.Duration
}

func NewStats() *Stats {
	return &Stats{counts: map[string]int{}}
}

func (s *Stats) Record(instance string, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[instance]++
	s.total += elapsed
}

func (s *Stats) Print(runTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idents := make([]string, 0, len(s.counts))
	n := 0
	for ident, c := range s.counts {
		idents = append(idents, ident)
		n += c
	}
	sort.Strings(idents)

	fmt.Printf("Ran for %s\n", runTime)
	for _, ident := range idents {
		label := ident
		if label == "" {
			label = "(failed)"
		}
		fmt.Printf("- %s: %d (%.1f%%)\n", label, s.counts[ident], 100*float64(s.counts[ident])/float64(n))
	}
	fmt.Printf("- Total: %d (%d/s)\n", n, int(float64(n)/runTime.Seconds()))
	if n > 0 {
		fmt.Printf("- Mean round trip: %s\n", s.total/time.Duration(n))
	}
}

func main() {
	fconfig := flag.String("config", "", "path to config (json or yaml)")
	fservice := flag.String("service", "numbers", "service name to discover instances by")
	fduration := flag.Duration("duration", 0, "stop after this long (default: until interrupted)")
	flag.Parse()

	if *fconfig == "" {
		exit(fmt.Errorf("required: -config"))
	}

	config, err := Load(*fconfig)
	if err != nil {
		exit(err)
	}

	log, err := logging.New("warn")
	if err != nil {
		exit(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *fduration > 0 {
		time.AfterFunc(*fduration, cancel)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	client, err := consulapi.NewClient(consulapi.DefaultConfig())
	if err != nil {
		exit(err)
	}

	bal := frontend.NewBalancer(log)
	defer bal.Close()

	getter := consuldisc.NewDiscoverer(client, 1*time.Second, log).Discover(*fservice, bal.Add, bal.Remove)
	defer getter.Stop()

	caller := frontend.NewCaller(bal, clockwork.NewRealClock(), log)
	stats := NewStats()
	t := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range config.Workers {
		w := w
		g.Go(func() error {
			run(ctx, w, func() {
				sub, err := caller.Submit(ctx, w.From, w.To)
				if err != nil {
					if ctx.Err() == nil {
						log.Warn("submit failed", zap.String("worker", w.Name), zap.Error(err))
					}
					stats.Record("", 0)
					return
				}
				stats.Record(sub.InstanceID, sub.Elapsed)
			})
			return nil
		})
	}

	g.Wait()
	stats.Print(time.Since(t))
}

// run calls f at roughly qps per second until ctx is cancelled, and waits for
// the calls in flight to return.
func run(ctx context.Context, w ConfigWorker, f func()) {
	if w.QPS == 0 {
		return
	}

	d := time.Second / time.Duration(w.QPS)

	// Jitter by 10%
	ticker := jitterbug.New(d, &jitterbug.Norm{Stdev: d / 10})
	defer ticker.Stop()

	wg := sync.WaitGroup{}
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				f()
			}()
		}
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}
