package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	core "github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

type datasetCmd struct {
	Export datasetExportCmd `cmd:"" help:"Write the built-in dataset as a YAML fixture."`
}

type datasetExportCmd struct {
	Out  string `short:"o" type:"path" help:"Destination file (stdout when empty)."`
	Date string `help:"Reference date (YYYY-MM-DD) the fixture periods are built around; defaults to today."`
}

func (cmd *datasetExportCmd) Run(_ context.Context, g *Globals) error {
	now := time.Now()
	if cmd.Date != "" {
		parsed, err := time.Parse(time.DateOnly, cmd.Date)
		if err != nil {
			return fmt.Errorf("campaignctl: invalid --date: %w", err)
		}
		now = parsed
	}
	ds := core.DefaultDataset(now)
	if cmd.Out == "" {
		return core.EncodeDataset(g.out(), ds)
	}
	if err := os.MkdirAll(filepath.Dir(cmd.Out), 0o755); err != nil {
		return fmt.Errorf("campaignctl: mkdir %s: %w", filepath.Dir(cmd.Out), err)
	}
	file, err := os.Create(cmd.Out) //nolint:gosec
	if err != nil {
		return fmt.Errorf("campaignctl: create %s: %w", cmd.Out, err)
	}
	defer file.Close()
	if err := core.EncodeDataset(file, ds); err != nil {
		return err
	}
	fmt.Fprintf(g.out(), "✓ Wrote dataset to %s\n", cmd.Out)
	return nil
}
