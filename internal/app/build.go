package app

import (
	"fmt"
	"log/slog"

	"github.com/ganot/hourbank/internal/config"
	"github.com/ganot/hourbank/internal/domain/acceptance"
	"github.com/ganot/hourbank/internal/domain/activity"
	"github.com/ganot/hourbank/internal/domain/ledger"
	"github.com/ganot/hourbank/internal/domain/lifecycle"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/ganot/hourbank/internal/domain/sweep"
)

// Components holds the concrete services built by Build.
type Components struct {
	Services Services
	Machine  *lifecycle.Machine
	Sweeper  *sweep.Service
}

// LoadMachine returns the built-in state machine, or the one described by
// path when set.
func LoadMachine(path string) (*lifecycle.Machine, error) {
	defs := lifecycle.DefaultStates()
	if path != "" {
		loaded, err := lifecycle.LoadStates(path)
		if err != nil {
			return nil, err
		}
		defs = loaded
	}
	return lifecycle.NewMachine(defs)
}

// Build wires every domain service on top of store.
func Build(store *Store, machine *lifecycle.Machine, notifier lifecycle.Notifier, cfg config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	initial := project.Status(cfg.Lifecycle.InitialStatus)
	if !machine.IsEntry(initial) {
		return nil, fmt.Errorf("initial status %q is not an entry status of the lifecycle table", initial)
	}
	policy, err := acceptance.ParsePolicy(cfg.Acceptance.ExhaustedHours)
	if err != nil {
		return nil, err
	}

	activitySvc := activity.NewService(store.Activity, logger)
	projectSvc := project.NewService(store.Projects, activitySvc, initial, logger)
	lifecycleSvc := lifecycle.NewService(
		store.Projects,
		store.History,
		machine,
		notifier,
		activitySvc,
		lifecycle.Options{MinReasonLength: cfg.Lifecycle.MinReasonLength},
		logger,
	)
	ledgerSvc := ledger.NewService(
		store.Projects,
		store.Transactions,
		activitySvc,
		ledger.Options{MinReasonLength: cfg.Ledger.MinReasonLength},
		logger,
	)
	sweepSvc := sweep.NewService(store.Projects, lifecycleSvc, logger)
	gate := acceptance.NewGate(store.Projects, machine, policy)

	return &Components{
		Services: Services{
			Projects:   projectSvc,
			Lifecycle:  lifecycleSvc,
			Ledger:     ledgerSvc,
			Sweep:      sweepSvc,
			Acceptance: gate,
			Activity:   activitySvc,
		},
		Machine: machine,
		Sweeper: sweepSvc,
	}, nil
}
