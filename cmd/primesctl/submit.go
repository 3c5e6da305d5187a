package main

import (
	"fmt"
	"strings"

	consuldisc "github.com/adammck/numbers/pkg/discovery/consul"
	"github.com/adammck/numbers/pkg/frontend"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var submitCmd = &cobra.Command{
	Use:   "submit [<from> <to>]",
	Short: "Submit a range to whichever instance discovery picks, like the frontend",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runSubmit,
}

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List the passing instances of the numbers service",
	Args:  cobra.NoArgs,
	RunE:  runInstances,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(instancesCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	from, to, err := parseRangeArgs(args)
	if err != nil {
		return err
	}

	client, err := consulapi.NewClient(consulapi.DefaultConfig())
	if err != nil {
		return err
	}

	log := zap.NewNop()
	bal := frontend.NewBalancer(log)
	defer bal.Close()

	// The first discovery happens before Discover returns, so there's no need
	// to wait before submitting. The interval doesn't matter much either.
	g := consuldisc.NewDiscoverer(client, discoveryInterval, log).Discover(serviceName, bal.Add, bal.Remove)
	defer g.Stop()

	// Otherwise a dead Consul would look like there being no instances.
	if _, err := g.Get(); err != nil {
		return err
	}

	ctx, cancel := newContext(cmd.Context())
	defer cancel()

	sub, err := frontend.NewCaller(bal, clockwork.NewRealClock(), log).Submit(ctx, from, to)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "primes:   %s\n", joinInts(sub.Primes))
	fmt.Fprintf(w, "instance: %s\n", sub.InstanceID)
	fmt.Fprintf(w, "elapsed:  %s\n", sub.Elapsed)
	return nil
}

func runInstances(cmd *cobra.Command, args []string) error {
	client, err := consulapi.NewClient(consulapi.DefaultConfig())
	if err != nil {
		return err
	}

	g := consuldisc.NewDiscoverer(client, discoveryInterval, zap.NewNop()).Discover(serviceName, nil, nil)
	defer g.Stop()

	rems, err := g.Get()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, rem := range sortRemotes(rems) {
		fmt.Fprintf(w, "%s\t%s\n", rem.Ident, rem.Addr())
	}

	return nil
}

func joinInts(ns []int) string {
	s := make([]string, len(ns))
	for i, n := range ns {
		s[i] = fmt.Sprintf("%d", n)
	}
	return "[" + strings.Join(s, ", ") + "]"
}
