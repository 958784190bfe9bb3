package repository

import (
	"context"

	"github.com/wrenware/tracker/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsersByOrganization(ctx context.Context, orgID int64) ([]domain.User, error)
}

// OrganizationRepository persists organizations.
type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganizationByID(ctx context.Context, id int64) (*domain.Organization, error)
	UpdateOrganization(ctx context.Context, org *domain.Organization) error
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, id int64) (*domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
	ListProjectsByOrganization(ctx context.Context, orgID int64) ([]domain.Project, error)
}

// DomainRepository persists project domains.
type DomainRepository interface {
	CreateDomain(ctx context.Context, dom *domain.DomainName) error
	GetDomainByID(ctx context.Context, id int64) (*domain.DomainName, error)
	UpdateDomain(ctx context.Context, dom *domain.DomainName) error
	ListDomainsByProject(ctx context.Context, projectID int64) ([]domain.DomainName, error)
}

// BugRepository persists bugs.
type BugRepository interface {
	CreateBug(ctx context.Context, bug *domain.Bug) error
	GetBugByID(ctx context.Context, id int64) (*domain.Bug, error)
	UpdateBug(ctx context.Context, bug *domain.Bug) error
}

// CommentRepository persists bug comments. Create-only.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *domain.Comment) error
}

// InitiativeRepository persists initiatives. Create-only.
type InitiativeRepository interface {
	CreateInitiative(ctx context.Context, initiative *domain.Initiative) error
}
