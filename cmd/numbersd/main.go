package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adammck/numbers/pkg/config"
	"github.com/adammck/numbers/pkg/logging"
	"github.com/adammck/numbers/pkg/metrics"
	"github.com/adammck/numbers/pkg/numbers"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := config.Flags("numbersd")
	err := fs.Parse(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		exit(err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		exit(err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		exit(err)
	}
	defer log.Sync()

	metrics.Register()

	node, err := numbers.New(cfg, log)
	if err != nil {
		log.Fatal("error creating node", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	err = node.Run(ctx)
	if err != nil {
		log.Fatal("error running node", zap.Error(err))
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}
