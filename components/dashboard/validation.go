package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrInvalidInput is wrapped by errors caused by a rejected request value.
	ErrInvalidInput = errors.New("dashboard: invalid input")
	// ErrNotFound is wrapped when a widget, chart or preset does not exist.
	ErrNotFound = errors.New("dashboard: not found")
)

// IsInvalidInput reports whether err was caused by caller input rather than a
// storage or provider failure.
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		ErrInvalidInput,
		ErrUnknownMetric,
		ErrEmptyPresetName,
		ErrUnknownFlag,
		ErrUnknownFilterValue,
		ErrMainChartRequired,
		errUnknownColumn,
		errInvertedDateRange,
		errInvalidArea,
		errInvalidDefinition,
		errInvalidWidgetID,
		errInvalidPreferenceValue,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var verr *jsonschema.ValidationError
	return errors.As(err, &verr)
}

// IsNotFound reports whether err names a missing widget, chart or preset.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, errUnknownChart)
}

// ConfigValidator validates widget configuration payloads against their schema.
type ConfigValidator interface {
	Validate(def WidgetDefinition, config map[string]any) error
}

// JSONSchemaValidator compiles widget schemas once and validates configuration maps.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures the provided configuration satisfies the widget schema.
func (v *JSONSchemaValidator) Validate(def WidgetDefinition, config map[string]any) error {
	if len(def.Schema) == 0 {
		return nil
	}
	schema, err := v.schemaFor(def)
	if err != nil {
		return err
	}
	payload := map[string]any{}
	if config != nil {
		// round-trip so typed slices and ints reach the validator as JSON values
		data, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("dashboard: marshal config for %s: %w", def.Code, err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("dashboard: normalize config for %s: %w", def.Code, err)
		}
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("dashboard: configuration for %s failed validation: %w", def.Code, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(def WidgetDefinition) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[def.Code]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", def.Code, err)
	}
	compiler := jsonschema.NewCompiler()
	name := def.Code + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", def.Code, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", def.Code, err)
	}
	v.mu.Lock()
	v.compiled[def.Code] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// ApplyDefaults copies config and fills top-level properties missing from it
// with the schema "default" values.
func ApplyDefaults(def WidgetDefinition, config map[string]any) map[string]any {
	out := maps.Clone(config)
	if out == nil {
		out = map[string]any{}
	}
	props, _ := def.Schema["properties"].(map[string]any)
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if _, set := out[name]; set {
			continue
		}
		if value, ok := prop["default"]; ok {
			out[name] = value
		}
	}
	return out
}

// DecodeConfig decodes a widget configuration map into a typed struct using
// mapstructure tags. JSON numbers and strings are coerced where possible.
func DecodeConfig(config map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("dashboard: configure decoder: %w", err)
	}
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("dashboard: decode widget configuration: %w", err)
	}
	return nil
}
