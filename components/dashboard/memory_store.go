package dashboard

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryWidgetStore is an in-process WidgetStore used by the CLI server and
// tests.
type MemoryWidgetStore struct {
	mu          sync.RWMutex
	areas       map[string]WidgetAreaDefinition
	definitions map[string]WidgetDefinition
	instances   map[string]memoryInstance
	placements  map[string][]string
	now         func() time.Time
}

type memoryInstance struct {
	instance   WidgetInstance
	visibility WidgetVisibility
}

// NewMemoryWidgetStore creates an empty store.
func NewMemoryWidgetStore() *MemoryWidgetStore {
	return &MemoryWidgetStore{
		areas:       make(map[string]WidgetAreaDefinition),
		definitions: make(map[string]WidgetDefinition),
		instances:   make(map[string]memoryInstance),
		placements:  make(map[string][]string),
		now:         time.Now,
	}
}

func (s *MemoryWidgetStore) EnsureArea(_ context.Context, def WidgetAreaDefinition) (bool, error) {
	if def.Code == "" {
		return false, errInvalidArea
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.areas[def.Code]; ok {
		return false, nil
	}
	s.areas[def.Code] = def
	return true, nil
}

func (s *MemoryWidgetStore) EnsureDefinition(_ context.Context, def WidgetDefinition) (bool, error) {
	if def.Code == "" {
		return false, errInvalidDefinition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[def.Code]; ok {
		return false, nil
	}
	s.definitions[def.Code] = def
	return true, nil
}

func (s *MemoryWidgetStore) CreateInstance(_ context.Context, input CreateWidgetInstanceInput) (WidgetInstance, error) {
	if input.DefinitionID == "" {
		return WidgetInstance{}, errInvalidDefinition
	}
	inst := WidgetInstance{
		ID:            uuid.NewString(),
		DefinitionID:  input.DefinitionID,
		Configuration: maps.Clone(input.Configuration),
		Metadata:      maps.Clone(input.Metadata),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = memoryInstance{instance: inst, visibility: input.Visibility}
	return inst, nil
}

func (s *MemoryWidgetStore) GetInstance(_ context.Context, instanceID string) (WidgetInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.instances[instanceID]
	if !ok {
		return WidgetInstance{}, fmt.Errorf("%w: widget %q", ErrNotFound, instanceID)
	}
	return cloneInstance(rec.instance), nil
}

func (s *MemoryWidgetStore) UpdateInstance(_ context.Context, input UpdateWidgetInstanceInput) (WidgetInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.instances[input.InstanceID]
	if !ok {
		return WidgetInstance{}, fmt.Errorf("%w: widget %q", ErrNotFound, input.InstanceID)
	}
	rec.instance.Configuration = maps.Clone(input.Configuration)
	s.instances[input.InstanceID] = rec
	return cloneInstance(rec.instance), nil
}

func (s *MemoryWidgetStore) DeleteInstance(_ context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("%w: widget %q", ErrNotFound, instanceID)
	}
	delete(s.instances, instanceID)
	if area := rec.instance.AreaCode; area != "" {
		s.placements[area] = slices.DeleteFunc(s.placements[area], func(id string) bool { return id == instanceID })
	}
	return nil
}

func (s *MemoryWidgetStore) AssignInstance(_ context.Context, input AssignWidgetInput) error {
	if input.AreaCode == "" {
		return errInvalidArea
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.instances[input.InstanceID]
	if !ok {
		return fmt.Errorf("%w: widget %q", ErrNotFound, input.InstanceID)
	}
	if prev := rec.instance.AreaCode; prev != "" {
		s.placements[prev] = slices.DeleteFunc(s.placements[prev], func(id string) bool { return id == input.InstanceID })
	}
	ids := s.placements[input.AreaCode]
	pos := len(ids)
	if input.Position != nil {
		pos = max(0, min(*input.Position, len(ids)))
	}
	s.placements[input.AreaCode] = slices.Insert(ids, pos, input.InstanceID)
	rec.instance.AreaCode = input.AreaCode
	s.instances[input.InstanceID] = rec
	return nil
}

// ReorderArea moves the listed widgets to the front in the given order; the
// rest keep their relative order.
func (s *MemoryWidgetStore) ReorderArea(_ context.Context, input ReorderAreaInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.placements[input.AreaCode]
	next := make([]string, 0, len(current))
	for _, id := range input.WidgetIDs {
		if slices.Contains(current, id) && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	for _, id := range current {
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	s.placements[input.AreaCode] = next
	return nil
}

func (s *MemoryWidgetStore) ResolveArea(_ context.Context, input ResolveAreaInput) (ResolvedArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := ResolvedArea{AreaCode: input.AreaCode}
	for _, id := range s.placements[input.AreaCode] {
		rec, ok := s.instances[id]
		if !ok || !visibleTo(rec.visibility, input.Audience, now) {
			continue
		}
		out.Widgets = append(out.Widgets, cloneInstance(rec.instance))
	}
	return out, nil
}

func visibleTo(v WidgetVisibility, audience []string, now time.Time) bool {
	if v.StartAt != nil && now.Before(*v.StartAt) {
		return false
	}
	if v.EndAt != nil && now.After(*v.EndAt) {
		return false
	}
	if len(v.Roles) == 0 {
		return true
	}
	for _, role := range v.Roles {
		if slices.Contains(audience, role) {
			return true
		}
	}
	return false
}

func cloneInstance(inst WidgetInstance) WidgetInstance {
	inst.Configuration = maps.Clone(inst.Configuration)
	inst.Metadata = maps.Clone(inst.Metadata)
	return inst
}
