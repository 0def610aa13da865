// Command trainer runs one training session for a city and exits.
//
//	trainer -city "Da Lat" -episodes 500 -type cultural -budget 200000
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartcity/routeplanner/internal/app"
	"github.com/smartcity/routeplanner/internal/config"
	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "trainer:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("trainer", flag.ContinueOnError)
	city := fs.String("city", "Da Lat", "city to train")
	episodes := fs.Int("episodes", 500, "number of episodes")
	preferredType := fs.String("type", "", "preferred destination type")
	budget := fs.Float64("budget", -1, "maximum total ticket price, negative for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	prefs := &domain.Preferences{PreferredType: *preferredType}
	if *budget >= 0 {
		prefs.MaxBudget = budget
	}

	result, err := deps.Planner.Train(ctx, *city, *episodes, prefs)
	if err != nil {
		return err
	}

	log := logging.Component("trainer")
	log.Info().
		Str("run_id", result.RunID).
		Str("city", result.City).
		Int("updates", result.Updates).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("training complete")
	return nil
}
