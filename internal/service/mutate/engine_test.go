package mutate

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/repository"
)

// stubRepo backs every entity kind with in-memory maps. Only the methods the
// engine calls do anything; the rest satisfy the interfaces.
type stubRepo struct {
	orgs     map[int64]*domain.Organization
	users    map[int64]*domain.User
	projects map[int64]*domain.Project
	domains  map[int64]*domain.DomainName
	bugs     map[int64]*domain.Bug
	saves    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orgs:     make(map[int64]*domain.Organization),
		users:    make(map[int64]*domain.User),
		projects: make(map[int64]*domain.Project),
		domains:  make(map[int64]*domain.DomainName),
		bugs:     make(map[int64]*domain.Bug),
	}
}

func (s *stubRepo) CreateOrganization(ctx context.Context, org *domain.Organization) error { return nil }

func (s *stubRepo) GetOrganizationByID(ctx context.Context, id int64) (*domain.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *org
	return &copied, nil
}

func (s *stubRepo) UpdateOrganization(ctx context.Context, org *domain.Organization) error {
	if _, ok := s.orgs[org.ID]; !ok {
		return repository.ErrNotFound
	}
	s.orgs[org.ID] = org
	s.saves++
	return nil
}

func (s *stubRepo) CreateUser(ctx context.Context, user *domain.User) error { return nil }

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (s *stubRepo) UpdateUser(ctx context.Context, user *domain.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[user.ID] = user
	s.saves++
	return nil
}

func (s *stubRepo) ListUsersByOrganization(ctx context.Context, orgID int64) ([]domain.User, error) {
	return nil, nil
}

func (s *stubRepo) CreateProject(ctx context.Context, project *domain.Project) error { return nil }

func (s *stubRepo) GetProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	project, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *stubRepo) UpdateProject(ctx context.Context, project *domain.Project) error {
	if _, ok := s.projects[project.ID]; !ok {
		return repository.ErrNotFound
	}
	s.projects[project.ID] = project
	s.saves++
	return nil
}

func (s *stubRepo) ListProjectsByOrganization(ctx context.Context, orgID int64) ([]domain.Project, error) {
	return nil, nil
}

func (s *stubRepo) CreateDomain(ctx context.Context, dom *domain.DomainName) error { return nil }

func (s *stubRepo) GetDomainByID(ctx context.Context, id int64) (*domain.DomainName, error) {
	dom, ok := s.domains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *dom
	return &copied, nil
}

func (s *stubRepo) UpdateDomain(ctx context.Context, dom *domain.DomainName) error {
	if _, ok := s.domains[dom.ID]; !ok {
		return repository.ErrNotFound
	}
	s.domains[dom.ID] = dom
	s.saves++
	return nil
}

func (s *stubRepo) ListDomainsByProject(ctx context.Context, projectID int64) ([]domain.DomainName, error) {
	return nil, nil
}

func (s *stubRepo) CreateBug(ctx context.Context, bug *domain.Bug) error { return nil }

func (s *stubRepo) GetBugByID(ctx context.Context, id int64) (*domain.Bug, error) {
	bug, ok := s.bugs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *bug
	return &copied, nil
}

func (s *stubRepo) UpdateBug(ctx context.Context, bug *domain.Bug) error {
	if _, ok := s.bugs[bug.ID]; !ok {
		return repository.ErrNotFound
	}
	s.bugs[bug.ID] = bug
	s.saves++
	return nil
}

func newTestEngine(repo *stubRepo) Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(repo, repo, repo, repo, repo, logger)
}

func TestUpdateOrganization(t *testing.T) {
	repo := newStubRepo()
	repo.orgs[1] = &domain.Organization{ID: 1, Name: "Acme"}
	engine := newTestEngine(repo)

	err := engine.Update(context.Background(), KindOrganization, 1, map[string]any{
		"name":        "Acme Corp",
		"description": "bug tracking",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	saved := repo.orgs[1]
	if saved.Name != "Acme Corp" || saved.Description != "bug tracking" {
		t.Fatalf("unexpected saved state: %+v", saved)
	}
	if repo.saves != 1 {
		t.Fatalf("expected a single save, got %d", repo.saves)
	}
}

func TestUpdateEmptyChanges(t *testing.T) {
	repo := newStubRepo()
	repo.bugs[5] = &domain.Bug{ID: 5, Title: "crash", Status: "open"}
	engine := newTestEngine(repo)

	// An empty change set still saves; the round trip succeeds.
	if err := engine.Update(context.Background(), KindBug, 5, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.bugs[5].Status != "open" {
		t.Fatalf("entity changed by empty change set: %+v", repo.bugs[5])
	}
}

func TestUpdateMissingEntity(t *testing.T) {
	engine := newTestEngine(newStubRepo())

	err := engine.Update(context.Background(), KindUser, 99, map[string]any{"email": "a@b.c"})
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdateUnknownKind(t *testing.T) {
	engine := newTestEngine(newStubRepo())

	err := engine.Update(context.Background(), Kind("comment"), 1, nil)
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestUpdateRejectsUnknownField(t *testing.T) {
	repo := newStubRepo()
	repo.orgs[1] = &domain.Organization{ID: 1, Name: "Acme"}
	engine := newTestEngine(repo)

	err := engine.Update(context.Background(), KindOrganization, 1, map[string]any{"shoe_size": 42})
	var unknown domain.UnknownFieldError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("rejected change set must not be saved")
	}
	if repo.orgs[1].Name != "Acme" {
		t.Fatalf("stored entity mutated: %+v", repo.orgs[1])
	}
}

func TestUpdateRejectsIdentifierChange(t *testing.T) {
	repo := newStubRepo()
	repo.projects[3] = &domain.Project{ID: 3, OrganizationID: 1, Name: "web"}
	engine := newTestEngine(repo)

	err := engine.Update(context.Background(), KindProject, 3, map[string]any{"id": float64(9)})
	if !errors.Is(err, domain.ErrImmutableField) {
		t.Fatalf("expected ErrImmutableField, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("rejected change set must not be saved")
	}
}

func TestUpdateUserOnlineStatus(t *testing.T) {
	repo := newStubRepo()
	repo.users[2] = &domain.User{ID: 2, Username: "sam", OnlineStatus: true}
	engine := newTestEngine(repo)

	err := engine.Update(context.Background(), KindUser, 2, map[string]any{"online_status": false})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.users[2].OnlineStatus {
		t.Fatalf("expected online_status false after update")
	}
}
