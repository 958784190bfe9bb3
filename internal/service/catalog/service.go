package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/repository"
)

// ErrNoProjects is returned by OrganizationOverview when the organization has
// no projects, so the first-project domain lookup has nothing to work with.
var ErrNoProjects = errors.New("organization has no projects")

// Service covers entity creation and the organization overview read.
type Service struct {
	orgs        repository.OrganizationRepository
	users       repository.UserRepository
	projects    repository.ProjectRepository
	domains     repository.DomainRepository
	bugs        repository.BugRepository
	comments    repository.CommentRepository
	initiatives repository.InitiativeRepository
	logger      *slog.Logger
}

// New constructs a Service.
func New(
	orgs repository.OrganizationRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	domains repository.DomainRepository,
	bugs repository.BugRepository,
	comments repository.CommentRepository,
	initiatives repository.InitiativeRepository,
	logger *slog.Logger,
) Service {
	return Service{
		orgs:        orgs,
		users:       users,
		projects:    projects,
		domains:     domains,
		bugs:        bugs,
		comments:    comments,
		initiatives: initiatives,
		logger:      logger,
	}
}

// CreateOrganization persists a new organization.
func (s Service) CreateOrganization(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	if strings.TrimSpace(org.Name) == "" {
		return nil, errors.New("name is required")
	}
	if err := s.orgs.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	s.logger.Info("organization created", "organization_id", org.ID)
	return org, nil
}

// CreateProject persists a new project.
func (s Service) CreateProject(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	if strings.TrimSpace(project.Name) == "" {
		return nil, errors.New("name is required")
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "organization_id", project.OrganizationID)
	return project, nil
}

// CreateDomain persists a new domain.
func (s Service) CreateDomain(ctx context.Context, dom *domain.DomainName) (*domain.DomainName, error) {
	if strings.TrimSpace(dom.Name) == "" {
		return nil, errors.New("name is required")
	}
	if err := s.domains.CreateDomain(ctx, dom); err != nil {
		return nil, err
	}
	s.logger.Info("domain created", "domain_id", dom.ID, "project_id", dom.ProjectID)
	return dom, nil
}

// CreateBug persists a new bug.
func (s Service) CreateBug(ctx context.Context, bug *domain.Bug) (*domain.Bug, error) {
	if strings.TrimSpace(bug.Title) == "" {
		return nil, errors.New("title is required")
	}
	if bug.Status == "" {
		bug.Status = "open"
	}
	if bug.Severity == "" {
		bug.Severity = "medium"
	}
	if err := s.bugs.CreateBug(ctx, bug); err != nil {
		return nil, err
	}
	s.logger.Info("bug created", "bug_id", bug.ID)
	return bug, nil
}

// CreateComment persists a new comment.
func (s Service) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if strings.TrimSpace(comment.Body) == "" {
		return nil, errors.New("body is required")
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	s.logger.Info("comment created", "comment_id", comment.ID)
	return comment, nil
}

// CreateInitiative persists a new initiative.
func (s Service) CreateInitiative(ctx context.Context, initiative *domain.Initiative) (*domain.Initiative, error) {
	if strings.TrimSpace(initiative.Name) == "" {
		return nil, errors.New("name is required")
	}
	if err := s.initiatives.CreateInitiative(ctx, initiative); err != nil {
		return nil, err
	}
	s.logger.Info("initiative created", "initiative_id", initiative.ID)
	return initiative, nil
}

// Overview bundles the multi-hop organization read. The JSON keys are part of
// the API contract.
type Overview struct {
	Organization *domain.Organization `json:"targetOrganization"`
	Users        []domain.User        `json:"users"`
	Projects     []domain.Project     `json:"projects"`
	Domains      []domain.DomainName  `json:"domains"`
}

// OrganizationOverview loads an organization, its users and projects, and the
// domains of the FIRST project only. Depending on the first project mirrors
// longstanding client expectations; widening it to all projects would change
// the response shape consumers rely on.
func (s Service) OrganizationOverview(ctx context.Context, orgID int64) (*Overview, error) {
	org, err := s.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListUsersByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list organization users: %w", err)
	}
	projects, err := s.projects.ListProjectsByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list organization projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, ErrNoProjects
	}
	domains, err := s.domains.ListDomainsByProject(ctx, projects[0].ID)
	if err != nil {
		return nil, fmt.Errorf("list first project domains: %w", err)
	}
	return &Overview{
		Organization: org,
		Users:        users,
		Projects:     projects,
		Domains:      domains,
	}, nil
}
