package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
)

type prefsCmd struct {
	List   prefsListCmd   `cmd:"" help:"List namespaces, or the keys stored for one namespace."`
	Get    prefsGetCmd    `cmd:"" help:"Print a stored preference value."`
	Set    prefsSetCmd    `cmd:"" help:"Store a JSON preference value."`
	Delete prefsDeleteCmd `cmd:"" help:"Remove a stored preference."`
}

type prefsListCmd struct {
	Namespace string `arg:"" optional:"" help:"Viewer namespace (user id)."`
}

type prefsGetCmd struct {
	Namespace string `arg:"" help:"Viewer namespace (user id)."`
	Key       string `arg:"" help:"Preference key."`
}

type prefsSetCmd struct {
	Namespace string `arg:"" help:"Viewer namespace (user id)."`
	Key       string `arg:"" help:"Preference key."`
	Value     string `arg:"" help:"JSON encoded value."`
}

type prefsDeleteCmd struct {
	Namespace string `arg:"" help:"Viewer namespace (user id)."`
	Key       string `arg:"" help:"Preference key."`
}

func withStore(ctx context.Context, g *Globals, fn func(preferenceStore) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (cmd *prefsListCmd) Run(ctx context.Context, g *Globals) error {
	return withStore(ctx, g, func(store preferenceStore) error {
		var (
			items []string
			err   error
		)
		if cmd.Namespace == "" {
			items, err = store.Namespaces(ctx)
		} else {
			items, err = store.Keys(ctx, cmd.Namespace)
		}
		if err != nil {
			return err
		}
		for _, item := range items {
			fmt.Fprintln(g.out(), item)
		}
		return nil
	})
}

func (cmd *prefsGetCmd) Run(ctx context.Context, g *Globals) error {
	return withStore(ctx, g, func(store preferenceStore) error {
		value, ok, err := store.Get(ctx, cmd.Namespace, cmd.Key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("campaignctl: %s has no preference %q", cmd.Namespace, cmd.Key)
		}
		fmt.Fprintln(g.out(), string(value))
		return nil
	})
}

func (cmd *prefsSetCmd) Run(ctx context.Context, g *Globals) error {
	if !json.Valid([]byte(cmd.Value)) {
		return fmt.Errorf("campaignctl: value for %q is not valid JSON", cmd.Key)
	}
	return withStore(ctx, g, func(store preferenceStore) error {
		return store.Set(ctx, cmd.Namespace, cmd.Key, []byte(cmd.Value))
	})
}

func (cmd *prefsDeleteCmd) Run(ctx context.Context, g *Globals) error {
	return withStore(ctx, g, func(store preferenceStore) error {
		return store.Delete(ctx, cmd.Namespace, cmd.Key)
	})
}
