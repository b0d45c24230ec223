package dashboard

import (
	"errors"
	"fmt"
	"testing"
)

func TestJSONSchemaValidatorRejectsInvalidPayload(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := WidgetDefinition{
		Code: "demo.widget.string_required",
		Schema: map[string]any{
			"type":     "object",
			"required": []string{"name"},
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "minLength": 1},
			},
		},
	}
	if err := validator.Validate(def, map[string]any{"name": "Dashboard"}); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if err := validator.Validate(def, map[string]any{}); err == nil {
		t.Fatalf("expected validation error for missing name")
	}
}

func TestJSONSchemaValidatorCachesCompiledSchemas(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := WidgetDefinition{
		Code:   "demo.widget.cache",
		Schema: map[string]any{"type": "object"},
	}
	if err := validator.Validate(def, nil); err != nil {
		t.Fatalf("unexpected error validating config: %v", err)
	}
	if len(validator.compiled) != 1 {
		t.Fatalf("expected schema cache to contain 1 entry, got %d", len(validator.compiled))
	}
	if err := validator.Validate(def, map[string]any{}); err != nil {
		t.Fatalf("unexpected error on cached validation: %v", err)
	}
	if len(validator.compiled) != 1 {
		t.Fatalf("expected schema cache to remain 1 entry, got %d", len(validator.compiled))
	}
}

func TestApplyDefaultsFillsMissingProperties(t *testing.T) {
	def := WidgetDefinition{Code: WidgetDetailsGrid, Schema: gridSchema()}
	config := ApplyDefaults(def, nil)
	if config["page_size"] != DefaultPageSize {
		t.Fatalf("expected default page size, got %v", config["page_size"])
	}
	config = ApplyDefaults(def, map[string]any{"page_size": 50})
	if config["page_size"] != 50 {
		t.Fatalf("expected explicit page size to win, got %v", config["page_size"])
	}
}

func TestDefaultDefinitionsAcceptTheirDefaults(t *testing.T) {
	validator := NewJSONSchemaValidator()
	for _, def := range DefaultWidgetDefinitions() {
		if err := validator.Validate(def, ApplyDefaults(def, nil)); err != nil {
			t.Fatalf("%s: defaults rejected: %v", def.Code, err)
		}
	}
}

func TestDecodeConfigCoercesValues(t *testing.T) {
	var cfg gridConfig
	if err := DecodeConfig(map[string]any{"page_size": "20"}, &cfg); err != nil {
		t.Fatalf("DecodeConfig returned error: %v", err)
	}
	if cfg.PageSize != 20 {
		t.Fatalf("expected page size 20, got %d", cfg.PageSize)
	}
	var chart chartConfig
	if err := DecodeConfig(map[string]any{"metrics": []any{"spend", "orders"}, "height": "300px"}, &chart); err != nil {
		t.Fatalf("DecodeConfig returned error: %v", err)
	}
	if len(chart.Metrics) != 2 || chart.Height != "300px" {
		t.Fatalf("unexpected chart config %#v", chart)
	}
}

func TestErrorClassification(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := WidgetDefinition{
		Code:   "demo.widget.typed",
		Schema: map[string]any{"type": "object", "required": []string{"name"}},
	}
	schemaErr := validator.Validate(def, map[string]any{})

	cases := []struct {
		name     string
		err      error
		invalid  bool
		notFound bool
	}{
		{name: "filter value", err: fmt.Errorf("%w: Etsy", ErrUnknownFilterValue), invalid: true},
		{name: "metric", err: ErrUnknownMetric, invalid: true},
		{name: "preset name", err: ErrEmptyPresetName, invalid: true},
		{name: "schema", err: schemaErr, invalid: true},
		{name: "chart", err: fmt.Errorf("%w: %q", errUnknownChart, "x"), notFound: true},
		{name: "widget", err: fmt.Errorf("%w: widget %q", ErrNotFound, "w1"), notFound: true},
		{name: "other", err: errors.New("boom")},
		{name: "nil"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInvalidInput(tc.err); got != tc.invalid {
				t.Fatalf("IsInvalidInput(%v) = %v", tc.err, got)
			}
			if got := IsNotFound(tc.err); got != tc.notFound {
				t.Fatalf("IsNotFound(%v) = %v", tc.err, got)
			}
		})
	}
}
