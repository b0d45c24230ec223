// Package prefstore provides durable dashboard.KeyValueStore implementations.
package prefstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

const fileExt = ".json"

var (
	_ dashboard.KeyValueStore   = (*FileStore)(nil)
	_ dashboard.StorageNotifier = (*FileStore)(nil)
)

// FileStore keeps one JSON document per namespace in a directory and reports
// writes made by other processes to Watch subscribers.
type FileStore struct {
	dir       string
	telemetry dashboard.Telemetry

	mu    sync.Mutex
	known map[string]map[string]string

	subMu  sync.Mutex
	subs   map[int]func(dashboard.StorageEvent)
	nextID int

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// FileStoreOption customizes a FileStore.
type FileStoreOption func(*FileStore)

// WithTelemetry records watcher failures.
func WithTelemetry(t dashboard.Telemetry) FileStoreOption {
	return func(s *FileStore) {
		s.telemetry = t
	}
}

// NewFileStore creates dir when needed and starts watching it. Callers must
// Close the store.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("prefstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prefstore: create %s: %w", dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("prefstore: watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("prefstore: watch %s: %w", dir, err)
	}
	s := &FileStore{
		dir:      dir,
		known:    map[string]map[string]string{},
		subs:     map[int]func(dashboard.StorageEvent){},
		watcher:  watcher,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s, nil
}

func (s *FileStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(namespace)
	if err != nil {
		return nil, false, err
	}
	value, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (s *FileStore) Set(_ context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(namespace)
	if err != nil {
		return err
	}
	doc[key] = string(value)
	return s.write(namespace, doc)
}

func (s *FileStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(namespace)
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.write(namespace, doc)
}

func (s *FileStore) Keys(_ context.Context, namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(namespace)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(doc)), nil
}

// Namespaces lists the namespaces with a document on disk.
func (s *FileStore) Namespaces(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("prefstore: list %s: %w", s.dir, err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ns, ok := namespaceFromFile(entry.Name()); ok {
			out = append(out, ns)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Watch subscribes fn to changes written by other processes.
func (s *FileStore) Watch(fn func(dashboard.StorageEvent)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Close stops the watcher goroutine.
func (s *FileStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		<-s.finished
		err = s.watcher.Close()
	})
	return err
}

func (s *FileStore) run() {
	defer close(s.finished)
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.record("prefstore.watch_error", map[string]any{"error": err.Error()})
		}
	}
}

func (s *FileStore) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	namespace, ok := namespaceFromFile(filepath.Base(ev.Name))
	if !ok {
		return
	}
	s.mu.Lock()
	current, err := s.load(namespace)
	if err != nil {
		s.mu.Unlock()
		s.record("prefstore.read_error", map[string]any{"namespace": namespace, "error": err.Error()})
		return
	}
	previous := s.known[namespace]
	s.known[namespace] = current
	s.mu.Unlock()

	events := diff(namespace, previous, current)
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	subs := slices.Collect(maps.Values(s.subs))
	s.subMu.Unlock()
	for _, event := range events {
		for _, fn := range subs {
			fn(event)
		}
	}
}

func diff(namespace string, previous, current map[string]string) []dashboard.StorageEvent {
	var events []dashboard.StorageEvent
	for _, key := range slices.Sorted(maps.Keys(current)) {
		if old, ok := previous[key]; ok && old == current[key] {
			continue
		}
		events = append(events, dashboard.StorageEvent{Namespace: namespace, Key: key, Value: []byte(current[key])})
	}
	for _, key := range slices.Sorted(maps.Keys(previous)) {
		if _, ok := current[key]; !ok {
			events = append(events, dashboard.StorageEvent{Namespace: namespace, Key: key, Deleted: true})
		}
	}
	return events
}

// read returns the namespace document; s.mu must be held.
func (s *FileStore) read(namespace string) (map[string]string, error) {
	doc, err := s.load(namespace)
	if err != nil {
		return nil, err
	}
	if _, seen := s.known[namespace]; !seen {
		s.known[namespace] = maps.Clone(doc)
	}
	return doc, nil
}

func (s *FileStore) load(namespace string) (map[string]string, error) {
	data, err := os.ReadFile(s.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prefstore: read %s: %w", namespace, err)
	}
	doc := map[string]string{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("prefstore: decode %s: %w", namespace, err)
	}
	return doc, nil
}

// write replaces the namespace document atomically; s.mu must be held.
func (s *FileStore) write(namespace string, doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("prefstore: encode %s: %w", namespace, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".prefs-*.tmp")
	if err != nil {
		return fmt.Errorf("prefstore: write %s: %w", namespace, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("prefstore: write %s: %w", namespace, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("prefstore: write %s: %w", namespace, err)
	}
	s.known[namespace] = maps.Clone(doc)
	if err := os.Rename(tmp.Name(), s.path(namespace)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("prefstore: write %s: %w", namespace, err)
	}
	return nil
}

func (s *FileStore) path(namespace string) string {
	return filepath.Join(s.dir, url.PathEscape(namespace)+fileExt)
}

func (s *FileStore) record(event string, payload map[string]any) {
	if s.telemetry != nil {
		s.telemetry.Record(context.Background(), event, payload)
	}
}

func namespaceFromFile(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	ns, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil || ns == "" {
		return "", false
	}
	return ns, true
}
