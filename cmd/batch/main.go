package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/batch"
	"github.com/yourorg/comps-api/internal/config"
	"github.com/yourorg/comps-api/internal/logx"
	"github.com/yourorg/comps-api/internal/valuation"
)

func main() {
	in := flag.String("in", "", "input CSV with address, city, state, zip columns (default stdin)")
	out := flag.String("out", "", "output CSV (default stdout)")
	endpoint := flag.String("endpoint", string(acumidata.Estimate), "advantage | estimate | qvm")
	flag.Parse()

	if err := run(*in, *out, *endpoint); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(inPath, outPath, endpoint string) error {
	cfg := config.Load()
	lc := cfg.LogxConfig()
	lc.Writer = os.Stderr
	log, closeLog, err := logx.New(lc)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	ep, err := acumidata.ParseEndpoint(endpoint)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := &batch.Job{
		Service: &valuation.Service{
			Client: acumidata.NewClient(cfg.ClientConfig(log)),
			Limits: cfg.Limits(),
			Log:    log,
		},
		Endpoint:       ep,
		RequestTimeout: cfg.BatchTimeout,
		Log:            log,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rprocessed %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
	stats, err := job.Enrich(ctx, r, w)
	if errors.Is(err, context.Canceled) {
		log.Warn("batch interrupted; partial results written", "rows", stats.Rows, "done", stats.Succeeded+stats.Failed)
		return nil
	}
	return err
}
