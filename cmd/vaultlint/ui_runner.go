package main

import (
	"context"

	"vaultlint/internal/engine"
	"vaultlint/internal/lint"
	"vaultlint/internal/ui"
	"vaultlint/internal/vault"
)

type processOutcome struct {
	res *lint.Result
	err error
}

// runWithUI drives the engine in a goroutine while the progress TUI
// consumes its events; the channel closing ends the TUI.
func runWithUI(ctx context.Context, setup *runSetup, eopts engine.Options, popts engine.ProcessOptions) (*lint.Result, string, error) {
	paths, err := vault.Discover(setup.root)
	if err != nil {
		return nil, "", err
	}

	events := make(chan engine.Event, 256)
	eopts.Events = engine.ChannelSink{Ch: events}
	eng, err := engine.New(eopts)
	if err != nil {
		return nil, "", err
	}

	outcomeCh := make(chan processOutcome, 1)
	go func() {
		res, perr := eng.ProcessVault(ctx, setup.root, popts)
		cerr := eng.Close()
		if perr == nil {
			perr = cerr
		}
		outcomeCh <- processOutcome{res: res, err: perr}
		close(events)
	}()

	uiErr := ui.Run("vaultlint "+setup.root, len(paths), events)
	outcome := <-outcomeCh
	if outcome.err == nil {
		outcome.err = uiErr
	}
	return outcome.res, eng.RunID(), outcome.err
}
