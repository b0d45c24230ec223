package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/ettle/strcase"
	json "github.com/goccy/go-json"

	core "github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

const defaultProviderPackage = "github.com/goliatone/go-campaign-dashboard/components/dashboard"

type widgetsCmd struct {
	Category []string `help:"Only list definitions in these categories (repeatable)."`
	Manifest string   `type:"existingfile" help:"Widget manifest to register before listing."`
}

func (cmd *widgetsCmd) Run(_ context.Context, g *Globals) error {
	reg := core.NewRegistry()
	if cmd.Manifest != "" {
		doc, err := core.ReadManifest(cmd.Manifest)
		if err != nil {
			return err
		}
		if err := reg.LoadManifestDocument(doc); err != nil {
			return err
		}
	}
	for _, def := range reg.DefinitionsIn(cmd.Category...) {
		fmt.Fprintf(g.out(), "%s\t%s\t%s\n", def.Code, def.Category, def.Name)
	}
	return nil
}

type scaffoldCmd struct {
	Code            string   `required:"" help:"Fully-qualified widget code (e.g. campaign.widget.roi)."`
	Name            string   `required:"" help:"Display name for the widget."`
	Description     string   `required:"" help:"One-line description used in manifests."`
	Category        string   `default:"campaign" help:"Widget category."`
	ManifestPath    string   `required:"" name:"manifest" type:"path" help:"Widget manifest YAML file to create or update."`
	SchemaPath      string   `name:"schema" type:"path" help:"JSON schema file for the widget configuration."`
	Area            []string `help:"Dashboard areas to seed the widget into (repeatable)."`
	Tag             []string `help:"Manifest tags (repeatable)."`
	Maintainer      []string `help:"Maintainers to record in the manifest."`
	Capabilities    []string `help:"Provider capability labels (html,json,sse,...)."`
	DocsURL         string   `help:"Link to provider documentation."`
	ProviderPackage string   `default:"${provider_package}" help:"Go package where the provider factory lives."`
	ProviderOut     string   `help:"Provider stub path (defaults to components/dashboard/<code>_provider.go)."`
	Overwrite       bool     `help:"Replace an existing manifest entry or provider stub."`
	SkipProvider    bool     `name:"skip-provider" help:"Only update the manifest."`
}

func (cmd *scaffoldCmd) Run(_ context.Context, g *Globals) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("campaignctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	schema, err := cmd.loadSchema()
	if err != nil {
		return err
	}

	providerType := strcase.ToPascal(lastSegment(cmd.Code)) + "Provider"
	entry := core.ManifestWidget{
		Definition: core.WidgetDefinition{
			Code:        cmd.Code,
			Name:        cmd.Name,
			Description: cmd.Description,
			Category:    cmd.Category,
			Schema:      schema,
		},
		Provider: core.ManifestProvider{
			Name:         cmd.Name + " Provider",
			Summary:      cmd.Description,
			Entry:        cmd.ProviderPackage + ".New" + providerType,
			Package:      cmd.ProviderPackage,
			DocsURL:      cmd.DocsURL,
			Capabilities: cmd.Capabilities,
		},
		Maintainers: cmd.Maintainer,
		Tags:        cmd.Tag,
	}
	for _, area := range cmd.Area {
		entry.Placements = append(entry.Placements, core.ManifestPlacement{Area: area})
	}

	idx := slices.IndexFunc(doc.Widgets, func(w core.ManifestWidget) bool { return w.Definition.Code == cmd.Code })
	switch {
	case idx >= 0 && !cmd.Overwrite:
		return fmt.Errorf("campaignctl: manifest already defines widget %s (use --overwrite to replace)", cmd.Code)
	case idx >= 0:
		doc.Widgets[idx] = entry
	default:
		doc.Widgets = append(doc.Widgets, entry)
	}
	slices.SortFunc(doc.Widgets, func(a, b core.ManifestWidget) int {
		return strings.Compare(a.Definition.Code, b.Definition.Code)
	})
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}

	if cmd.SkipProvider {
		fmt.Fprintf(g.out(), "✓ Added %s to %s\n", cmd.Code, manifestPath)
		return nil
	}
	providerPath := cmd.ProviderOut
	if providerPath == "" {
		providerPath = filepath.Join("components", "dashboard", strcase.ToSnake(cmd.Code)+"_provider.go")
	}
	if err := writeProviderStub(providerPath, providerType, cmd.Code, cmd.Overwrite); err != nil {
		return err
	}
	fmt.Fprintf(g.out(), "✓ Added %s to %s and generated %s\n", cmd.Code, manifestPath, providerPath)
	return nil
}

func (cmd *scaffoldCmd) validate() error {
	if !strings.Contains(cmd.Code, ".") {
		return fmt.Errorf("campaignctl: widget code %s must contain at least one '.' segment", cmd.Code)
	}
	if _, builtin := core.NewRegistry().Definition(cmd.Code); builtin {
		return fmt.Errorf("campaignctl: widget code %s is a built-in definition", cmd.Code)
	}
	areas := core.DefaultAreas()
	for _, area := range cmd.Area {
		if !slices.Contains(areas, area) {
			return fmt.Errorf("campaignctl: unknown area %q (known: %s)", area, strings.Join(areas, ", "))
		}
	}
	return nil
}

func (cmd *scaffoldCmd) loadSchema() (map[string]any, error) {
	if cmd.SchemaPath == "" {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}, nil
	}
	data, err := os.ReadFile(cmd.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("campaignctl: read schema file: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("campaignctl: parse schema JSON: %w", err)
	}
	return schema, nil
}

func loadOrInitManifest(path string) (*core.WidgetManifestDocument, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return &core.WidgetManifestDocument{
			Version: core.ManifestVersion,
			Widgets: []core.ManifestWidget{},
			Source:  path,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("campaignctl: stat manifest: %w", err)
	}
	return core.ReadManifest(path)
}

func writeManifest(path string, doc *core.WidgetManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("campaignctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	var buf bytes.Buffer
	if err := core.EncodeManifest(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("campaignctl: write manifest: %w", err)
	}
	return nil
}

var providerStub = template.Must(template.New("provider").Parse(`package dashboard

import "context"

// {{.Type}} fetches data for {{.Code}} widgets.
type {{.Type}} struct {
	dataset DatasetSource
}

// New{{.Type}} wires the provider to the campaign dataset.
func New{{.Type}}(dataset DatasetSource) Provider {
	return &{{.Type}}{dataset: dataset}
}

// Fetch builds the widget payload for the viewer's current filter selection.
func (p *{{.Type}}) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	ds, err := p.dataset.Load(ctx)
	if err != nil {
		return nil, err
	}
	return WidgetData{
		"filters":   meta.Filters,
		"campaigns": len(ds.Campaigns),
	}, nil
}
`))

func writeProviderStub(path, providerType, code string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("campaignctl: provider stub %s already exists (use --overwrite or --provider-out)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("campaignctl: mkdir provider dir: %w", err)
	}
	var buf bytes.Buffer
	if err := providerStub.Execute(&buf, map[string]string{"Type": providerType, "Code": code}); err != nil {
		return fmt.Errorf("campaignctl: render provider stub: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("campaignctl: write provider stub: %w", err)
	}
	return nil
}

func lastSegment(code string) string {
	parts := strings.Split(code, ".")
	if slug := strings.TrimSpace(parts[len(parts)-1]); slug != "" {
		return slug
	}
	return code
}
