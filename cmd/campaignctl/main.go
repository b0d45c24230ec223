package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	core "github.com/goliatone/go-campaign-dashboard/components/dashboard"
	"github.com/goliatone/go-campaign-dashboard/pkg/config"
	"github.com/goliatone/go-campaign-dashboard/pkg/prefstore"
)

// Globals are shared by every subcommand.
type Globals struct {
	ConfigFile string    `name:"config" short:"c" type:"path" env:"CAMPAIGN_DASHBOARD_CONFIG" help:"YAML configuration file."`
	EnvFile    []string  `name:"env-file" default:".env" help:"Dotenv files loaded before configuration (missing files are skipped)."`
	Out        io.Writer `kong:"-"`
}

type cli struct {
	Globals

	Serve    serveCmd    `cmd:"" help:"Serve the campaign dashboard over HTTP."`
	Prefs    prefsCmd    `cmd:"" help:"Inspect and edit stored viewer preferences."`
	Dataset  datasetCmd  `cmd:"" help:"Work with the campaign dataset fixture."`
	Settings settingsCmd `cmd:"" name:"show-config" help:"Print the effective configuration."`
	Widgets  widgetsCmd  `cmd:"" help:"List widget definitions, optionally including a manifest."`
	Scaffold scaffoldCmd `cmd:"" help:"Scaffold a widget definition, provider stub, and manifest entry."`
}

var errNoStore = errors.New("campaignctl: storage.driver is memory; preferences are not persisted")

func newParser(app *cli, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("campaignctl"),
		kong.Description("Campaign analytics dashboard server and tooling."),
		kong.UsageOnError(),
		kong.Vars{"provider_package": defaultProviderPackage},
	}, options...)
	return kong.New(app, options...)
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, out io.Writer) error {
	var app cli
	app.Out = out
	parser, err := newParser(&app,
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&app.Globals),
		kong.Writers(out, out),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func (g *Globals) load() (config.Config, error) {
	if err := config.LoadDotEnv(g.EnvFile...); err != nil {
		return config.Config{}, err
	}
	return config.Load(g.ConfigFile)
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// preferenceStore is a persistent store the prefs commands can enumerate.
type preferenceStore interface {
	core.KeyValueStore
	Namespaces(ctx context.Context) ([]string, error)
	Close() error
}

func openStore(ctx context.Context, cfg config.Config, telemetry core.Telemetry) (preferenceStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		return prefstore.NewFileStore(cfg.Storage.Path, prefstore.WithTelemetry(telemetry))
	case config.DriverSQLite:
		return prefstore.OpenSQLStore(ctx, cfg.Storage.Path)
	case config.DriverMemory:
		return nil, errNoStore
	default:
		return nil, fmt.Errorf("campaignctl: unknown storage driver %q", cfg.Storage.Driver)
	}
}

type settingsCmd struct{}

func (cmd *settingsCmd) Run(_ context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	for _, kv := range cfg.Keys() {
		fmt.Fprintf(g.out(), "%s=%s\n", kv[0], kv[1])
	}
	return nil
}
