package entities

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mementohq/conduct/pkg/schema"
)

// MemoryRepository is an in-memory Repository keyed by tenant and entity ID.
// Used by tests and the demo binary; the host application supplies its own
// repositories in production.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any // tenant -> id -> fields
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]map[string]map[string]any)}
}

func (r *MemoryRepository) Create(_ context.Context, tenantID string, params map[string]any) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New().String()
	if r.records[tenantID] == nil {
		r.records[tenantID] = make(map[string]map[string]any)
	}
	r.records[tenantID][id] = cloneFields(params)
	return id, nil
}

func (r *MemoryRepository) Update(_ context.Context, tenantID, id string, params map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[tenantID][id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "entity %q not found", id)
	}
	for k, v := range params {
		rec[k] = v
	}
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[tenantID][id]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "entity %q not found", id)
	}
	delete(r.records[tenantID], id)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, tenantID, id string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[tenantID][id]
	if !ok {
		return nil, nil
	}
	return cloneFields(rec), nil
}

// Seed inserts an entity with a known ID. Test helper.
func (r *MemoryRepository) Seed(tenantID, id string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.records[tenantID] == nil {
		r.records[tenantID] = make(map[string]map[string]any)
	}
	r.records[tenantID][id] = cloneFields(fields)
}

func cloneFields(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// MemoryLinkStore records relationship edges in memory.
type MemoryLinkStore struct {
	mu    sync.Mutex
	links map[string][]Link // tenant -> edges
}

// NewMemoryLinkStore creates an empty MemoryLinkStore.
func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{links: make(map[string][]Link)}
}

func (s *MemoryLinkStore) Upsert(_ context.Context, tenantID string, link Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.links[tenantID] {
		if existing.SourceType == link.SourceType && existing.SourceID == link.SourceID &&
			existing.TargetType == link.TargetType && existing.TargetID == link.TargetID {
			s.links[tenantID][i] = link
			return nil
		}
	}
	s.links[tenantID] = append(s.links[tenantID], link)
	return nil
}

// Links returns a copy of the edges recorded for a tenant.
func (s *MemoryLinkStore) Links(tenantID string) []Link {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]Link, len(s.links[tenantID]))
	copy(cp, s.links[tenantID])
	return cp
}

// MemoryReminderStore records reminders in memory.
type MemoryReminderStore struct {
	mu        sync.Mutex
	reminders map[string][]Reminder // tenant -> reminders
}

// NewMemoryReminderStore creates an empty MemoryReminderStore.
func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{reminders: make(map[string][]Reminder)}
}

func (s *MemoryReminderStore) Create(_ context.Context, tenantID string, reminder Reminder) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	s.reminders[tenantID] = append(s.reminders[tenantID], reminder)
	return reminder.ID, nil
}

// Reminders returns a copy of the reminders recorded for a tenant.
func (s *MemoryReminderStore) Reminders(tenantID string) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]Reminder, len(s.reminders[tenantID]))
	copy(cp, s.reminders[tenantID])
	return cp
}
