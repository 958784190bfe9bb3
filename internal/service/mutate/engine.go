// Package mutate applies change sets to persisted entities without
// per-entity update handlers. Each entity kind contributes a load/save pair;
// the field-by-name assignment lives on the entity types themselves.
package mutate

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/repository"
)

// ErrUnknownKind is returned for an entity kind the engine has no resource for.
var ErrUnknownKind = errors.New("unknown entity kind")

// Kind names a patchable entity type.
type Kind string

const (
	KindOrganization Kind = "organization"
	KindUser         Kind = "user"
	KindProject      Kind = "project"
	KindDomain       Kind = "domain"
	KindBug          Kind = "bug"
)

// Target is an entity instance that accepts field-by-name assignment.
type Target interface {
	Set(field string, value any) error
}

// resource adapts one typed repository into the engine's load/save shape.
type resource struct {
	load func(ctx context.Context, id int64) (Target, error)
	save func(ctx context.Context, target Target) error
}

// Engine loads an entity, applies a change set, and saves it back.
type Engine struct {
	resources map[Kind]resource
	logger    *slog.Logger
}

// NewEngine wires the five patchable entity kinds to their repositories.
func NewEngine(
	orgs repository.OrganizationRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	domains repository.DomainRepository,
	bugs repository.BugRepository,
	logger *slog.Logger,
) Engine {
	return Engine{
		logger: logger,
		resources: map[Kind]resource{
			KindOrganization: {
				load: func(ctx context.Context, id int64) (Target, error) {
					return orgs.GetOrganizationByID(ctx, id)
				},
				save: func(ctx context.Context, target Target) error {
					return orgs.UpdateOrganization(ctx, target.(*domain.Organization))
				},
			},
			KindUser: {
				load: func(ctx context.Context, id int64) (Target, error) {
					return users.GetUserByID(ctx, id)
				},
				save: func(ctx context.Context, target Target) error {
					return users.UpdateUser(ctx, target.(*domain.User))
				},
			},
			KindProject: {
				load: func(ctx context.Context, id int64) (Target, error) {
					return projects.GetProjectByID(ctx, id)
				},
				save: func(ctx context.Context, target Target) error {
					return projects.UpdateProject(ctx, target.(*domain.Project))
				},
			},
			KindDomain: {
				load: func(ctx context.Context, id int64) (Target, error) {
					return domains.GetDomainByID(ctx, id)
				},
				save: func(ctx context.Context, target Target) error {
					return domains.UpdateDomain(ctx, target.(*domain.DomainName))
				},
			},
			KindBug: {
				load: func(ctx context.Context, id int64) (Target, error) {
					return bugs.GetBugByID(ctx, id)
				},
				save: func(ctx context.Context, target Target) error {
					return bugs.UpdateBug(ctx, target.(*domain.Bug))
				},
			},
		},
	}
}

// Update loads the identified entity, assigns every change onto it, and
// persists the result with a single save. The load/mutate/save sequence is
// not transactionally isolated; concurrent updates to the same entity are
// last-save-wins.
func (e Engine) Update(ctx context.Context, kind Kind, id int64, changes map[string]any) error {
	res, ok := e.resources[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	target, err := res.load(ctx, id)
	if err != nil {
		return err
	}
	for field, value := range changes {
		if err := target.Set(field, value); err != nil {
			return err
		}
	}
	if err := res.save(ctx, target); err != nil {
		return err
	}
	e.logger.Info("entity updated", "kind", string(kind), "id", id, "fields", len(changes))
	return nil
}

// IsNotFound reports whether err means the patch target does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
