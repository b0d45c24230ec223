package dashboard

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// DefaultViewerID is the namespace used when a viewer carries no user id.
const DefaultViewerID = "local"

// viewerNamespace partitions preferences and filters per user. The locale is
// deliberately left out so switching language keeps the same layout.
func viewerNamespace(viewer ViewerContext) string {
	if viewer.UserID == "" {
		return DefaultViewerID
	}
	return viewer.UserID
}

// KeyValueStore persists raw preference blobs per viewer namespace.
type KeyValueStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)
}

// StorageEvent reports a preference write observed by a store.
type StorageEvent struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     []byte `json:"value,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// StorageNotifier is implemented by stores that observe writes made outside
// this process.
type StorageNotifier interface {
	Watch(fn func(StorageEvent)) (cancel func())
}

// InMemoryKeyValueStore keeps preference blobs in process memory.
type InMemoryKeyValueStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewInMemoryKeyValueStore creates an empty store.
func NewInMemoryKeyValueStore() *InMemoryKeyValueStore {
	return &InMemoryKeyValueStore{data: make(map[string]map[string][]byte)}
}

func (s *InMemoryKeyValueStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[namespace][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (s *InMemoryKeyValueStore) Set(_ context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[namespace]
	if !ok {
		bucket = make(map[string][]byte)
		s.data[namespace] = bucket
	}
	bucket[key] = slices.Clone(value)
	return nil
}

func (s *InMemoryKeyValueStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[namespace], key)
	return nil
}

func (s *InMemoryKeyValueStore) Keys(_ context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := slices.Collect(maps.Keys(s.data[namespace]))
	sort.Strings(keys)
	return keys, nil
}

// InMemoryPreferenceStore provides a concurrency-safe default layout store.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]LayoutOverrides
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]LayoutOverrides),
	}
}

// LayoutOverrides returns stored overrides or defaults.
func (s *InMemoryPreferenceStore) LayoutOverrides(_ context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overrides, ok := s.data[viewerNamespace(viewer)]
	if !ok {
		return emptyOverrides(viewer), nil
	}
	return normalizeOverrides(cloneOverrides(overrides), viewer), nil
}

// SaveLayoutOverrides persists overrides for a viewer.
func (s *InMemoryPreferenceStore) SaveLayoutOverrides(_ context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	overrides = normalizeOverrides(cloneOverrides(overrides), viewer)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[viewerNamespace(viewer)] = overrides
	return nil
}

// KVPreferenceStore stores layout overrides under the "layout" key of a
// KeyValueStore so they share persistence with the other preferences.
type KVPreferenceStore struct {
	store     KeyValueStore
	telemetry Telemetry
}

// NewKVPreferenceStore wraps a key/value store.
func NewKVPreferenceStore(store KeyValueStore, telemetry Telemetry) *KVPreferenceStore {
	return &KVPreferenceStore{store: store, telemetry: normalizeTelemetry(telemetry)}
}

// LayoutOverrides decodes the stored overrides; unreadable blobs yield defaults.
func (s *KVPreferenceStore) LayoutOverrides(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	ns := viewerNamespace(viewer)
	raw, ok, err := s.store.Get(ctx, ns, PrefLayout)
	if err != nil {
		return LayoutOverrides{}, fmt.Errorf("dashboard: read layout overrides: %w", err)
	}
	if !ok {
		return emptyOverrides(viewer), nil
	}
	var overrides LayoutOverrides
	if err := json.Unmarshal(raw, &overrides); err != nil {
		s.telemetry.Record(ctx, "dashboard.preferences.decode_error", map[string]any{
			"namespace": ns,
			"key":       PrefLayout,
			"error":     err.Error(),
		})
		return emptyOverrides(viewer), nil
	}
	return normalizeOverrides(overrides, viewer), nil
}

// SaveLayoutOverrides encodes and stores overrides.
func (s *KVPreferenceStore) SaveLayoutOverrides(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	raw, err := json.Marshal(normalizeOverrides(overrides, viewer))
	if err != nil {
		return fmt.Errorf("dashboard: encode layout overrides: %w", err)
	}
	return s.store.Set(ctx, viewerNamespace(viewer), PrefLayout, raw)
}

func emptyOverrides(viewer ViewerContext) LayoutOverrides {
	return LayoutOverrides{
		Locale:        viewer.Locale,
		AreaOrder:     map[string][]string{},
		HiddenWidgets: map[string]bool{},
	}
}

func cloneOverrides(overrides LayoutOverrides) LayoutOverrides {
	out := LayoutOverrides{
		Locale:        overrides.Locale,
		HiddenWidgets: maps.Clone(overrides.HiddenWidgets),
	}
	if overrides.AreaOrder != nil {
		out.AreaOrder = make(map[string][]string, len(overrides.AreaOrder))
		for area, ids := range overrides.AreaOrder {
			out.AreaOrder[area] = slices.Clone(ids)
		}
	}
	return out
}

func normalizeOverrides(overrides LayoutOverrides, viewer ViewerContext) LayoutOverrides {
	if overrides.Locale == "" {
		overrides.Locale = viewer.Locale
	}
	if overrides.AreaOrder == nil {
		overrides.AreaOrder = map[string][]string{}
	}
	if overrides.HiddenWidgets == nil {
		overrides.HiddenWidgets = map[string]bool{}
	}
	return overrides
}
