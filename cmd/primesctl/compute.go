package main

import (
	"context"
	"fmt"
	"time"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/proto/conv"
	"github.com/adammck/numbers/pkg/proto/pb"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
)

var computeCmd = &cobra.Command{
	Use:   "compute [<from> <to>]",
	Short: "Ask the instance at --addr for the primes in a range",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runCompute,
}

func init() {
	rootCmd.AddCommand(computeCmd)
}

func runCompute(cmd *cobra.Command, args []string) error {
	from, to, err := parseRangeArgs(args)
	if err != nil {
		return err
	}

	ctx, cancel := newContext(cmd.Context())
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("error dialing %s: %w", addr, err)
	}
	defer conn.Close()

	start := time.Now()
	res, err := pb.NewPrimesClient(conn).Compute(ctx, conv.RangeToProto(api.Range{From: from, To: to}))
	if err != nil {
		return fmt.Errorf("instance returned error: %w", err)
	}
	elapsed := time.Since(start)

	opts := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	fmt.Fprintln(cmd.OutOrStdout(), opts.Format(res))
	fmt.Fprintf(cmd.ErrOrStderr(), "(took %s)\n", elapsed)
	return nil
}

func newContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}

	return context.WithCancel(parent)
}
