// Command attribute executes one batch attribution run and prints its report
// as JSON. It is meant for cron jobs and operators.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JaimeStill/shiftmatch/internal/api"
	"github.com/JaimeStill/shiftmatch/internal/config"
	"github.com/JaimeStill/shiftmatch/internal/infrastructure"
	"github.com/JaimeStill/shiftmatch/internal/runs"
)

func main() {
	var (
		store = flag.String("store", "", "Restrict the run to one store")
		kind  = flag.String("kind", "", "Restrict the run to one event kind")
		from  = flag.String("from", "", "Earliest event time (YYYY-MM-DD or RFC 3339)")
		to    = flag.String("to", "", "Latest event time (YYYY-MM-DD inclusive, or RFC 3339)")
		actor = flag.String("actor", "", "Actor recorded on created matches (default: attribution.actor)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	engine, err := cfg.Attribution.Engine()
	if err != nil {
		log.Fatal("attribution config invalid:", err)
	}

	cmd, err := buildCommand(*store, *kind, *from, *to, *actor, engine.Location)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, cmd); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, cmd runs.Command) error {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}
	if err := infra.Start(); err != nil {
		return err
	}
	defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
	infra.Lifecycle.WaitForStartup()

	runtime, err := api.NewRuntime(cfg, infra)
	if err != nil {
		return err
	}
	domain := api.NewDomain(runtime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := domain.Runs.Execute(ctx, cmd)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return runErr
}

func buildCommand(store, kind, from, to, actor string, loc *time.Location) (runs.Command, error) {
	cmd := runs.Command{Actor: actor}

	if store != "" {
		cmd.StoreID = &store
	}
	if kind != "" {
		cmd.Kind = &kind
	}

	if from != "" {
		t, err := parseBound(from, loc, false)
		if err != nil {
			return cmd, fmt.Errorf("invalid -from: %w", err)
		}
		cmd.From = &t
	}

	if to != "" {
		t, err := parseBound(to, loc, true)
		if err != nil {
			return cmd, fmt.Errorf("invalid -to: %w", err)
		}
		cmd.To = &t
	}

	return cmd, nil
}

// parseBound accepts an RFC 3339 timestamp or a calendar date in loc. A date
// used as an upper bound covers the whole day.
func parseBound(value string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	day, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
