// Package entities defines the contracts the engine uses to touch the
// application's record stores. The engine never owns entity state: people,
// projects, ideas and tasks live behind these interfaces, and an Action only
// ever touches one entity, one relationship edge, or one reminder.
package entities

import (
	"context"
	"time"

	"github.com/mementohq/conduct/pkg/schema"
)

// Repository is the per-target-type collaborator contract.
// GetByID returns (nil, nil) when the entity does not exist; that is how the
// runner captures an empty pre-image rather than failing the snapshot.
type Repository interface {
	Create(ctx context.Context, tenantID string, params map[string]any) (string, error)
	Update(ctx context.Context, tenantID, id string, params map[string]any) error
	Delete(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (map[string]any, error)
}

// Link is a single relationship edge between two entities.
type Link struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Relation   string `json:"relation,omitempty"`
}

// LinkStore upserts relationship edges for link actions.
type LinkStore interface {
	Upsert(ctx context.Context, tenantID string, link Link) error
}

// Reminder is the record created by notify and schedule actions.
type Reminder struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Message string     `json:"message,omitempty"`
	DueAt   *time.Time `json:"due_at,omitempty"`
}

// ReminderStore creates reminder records. A created reminder is an external
// side effect; it is not undone by rollback.
type ReminderStore interface {
	Create(ctx context.Context, tenantID string, reminder Reminder) (string, error)
}

// Registry maps target types to their repositories.
type Registry struct {
	repos map[string]Repository
}

// NewRegistry creates a Registry over the given target type map.
func NewRegistry(repos map[string]Repository) *Registry {
	if repos == nil {
		repos = make(map[string]Repository)
	}
	return &Registry{repos: repos}
}

// Register adds a repository for a target type, replacing any previous one.
func (r *Registry) Register(targetType string, repo Repository) {
	r.repos[targetType] = repo
}

// Lookup returns the repository for a target type.
func (r *Registry) Lookup(targetType string) (Repository, error) {
	repo, ok := r.repos[targetType]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "no repository for target type %q", targetType)
	}
	return repo, nil
}
