package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/config"
	"github.com/yourorg/comps-api/internal/logx"
	"github.com/yourorg/comps-api/internal/report"
	"github.com/yourorg/comps-api/internal/snapshot"
	"github.com/yourorg/comps-api/internal/store"
	"github.com/yourorg/comps-api/internal/valuation"
)

func main() {
	var (
		street   = flag.String("address", "", "street address")
		city     = flag.String("city", "", "city")
		state    = flag.String("state", "", "state")
		zip      = flag.String("zip", "", "ZIP code")
		endpoint = flag.String("endpoint", string(acumidata.Advantage), "advantage | estimate | qvm")
		save     = flag.String("save", "", "write the raw provider response to this file")
		asJSON   = flag.Bool("json", false, "print the normalized result as JSON instead of the report")
	)
	flag.Parse()

	if err := run(*street, *city, *state, *zip, *endpoint, *save, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(street, city, state, zip, endpoint, save string, asJSON bool) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := &valuation.Service{
		Client: acumidata.NewClient(cfg.ClientConfig(log)),
		Limits: cfg.Limits(),
		Log:    log,
	}
	if cfg.PGDSN != "" {
		if st := openStore(ctx, cfg.PGDSN, log); st != nil {
			defer st.Close()
			svc.Recorder = &snapshot.Recorder{Store: st, Log: log}
		}
	}

	addr := acumidata.Address{Street: street, City: city, State: state, Zip: zip}
	res, lookupErr := svc.Lookup(ctx, ep, addr)
	if save != "" && len(res.Raw) > 0 {
		if err := os.WriteFile(save, res.Raw, 0o644); err != nil {
			return errors.Join(lookupErr, fmt.Errorf("save raw response: %w", err))
		}
		log.Info("raw response saved", "file", save)
	}
	if lookupErr != nil {
		if errors.Is(lookupErr, valuation.ErrAddressRequired) {
			return fmt.Errorf("%w (use -address, -city, -state, -zip)", lookupErr)
		}
		return lookupErr
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			comps.Normalized
			Summary comps.Report `json:"summary"`
		}{res.Normalized, res.Report})
	}
	if res.NoData() {
		fmt.Printf("No property data returned for %s\n", report.SubjectAddress(res))
	}
	report.Print(os.Stdout, res)
	return nil
}

// openStore connects for snapshot recording; a failure only disables it.
func openStore(ctx context.Context, dsn string, log *slog.Logger) *store.Store {
	st, err := store.Open(dsn)
	if err == nil {
		err = st.Ping(ctx)
	}
	if err == nil {
		err = st.Migrate(ctx)
	}
	if err != nil {
		log.Warn("snapshot recording disabled", "err", err)
		if st != nil {
			st.Close()
		}
		return nil
	}
	return st
}
