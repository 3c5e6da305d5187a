package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/adammck/numbers/pkg/api"
	"github.com/spf13/cobra"
)

const discoveryInterval = 1 * time.Second

var (
	addr        string
	serviceName string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "primesctl",
	Short: "Talk to the numbers service",
	Long: "Compute primes against a single numbers instance, submit them via\n" +
		"service discovery like the frontend does, or list the instances.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "localhost:9000", "numbers instance address (compute only)")
	rootCmd.PersistentFlags().StringVar(&serviceName, "service", "numbers", "service name to discover instances by")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "give up after this long (default: never)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// parseRangeArgs parses "<from> <to>", or nothing for the default range.
func parseRangeArgs(args []string) (int, int, error) {
	if len(args) == 0 {
		return api.DefaultRange.From, api.DefaultRange.To, nil
	}

	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected <from> <to>, got %d args", len(args))
	}

	from, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid from: %w", err)
	}

	to, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid to: %w", err)
	}

	return from, to, nil
}

func sortRemotes(rems []api.Remote) []api.Remote {
	sort.Slice(rems, func(i, j int) bool {
		return rems[i].Ident < rems[j].Ident
	})
	return rems
}
