package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository         = (*Repository)(nil)
	_ repository.OrganizationRepository = (*Repository)(nil)
	_ repository.ProjectRepository      = (*Repository)(nil)
	_ repository.DomainRepository       = (*Repository)(nil)
	_ repository.BugRepository          = (*Repository)(nil)
	_ repository.CommentRepository      = (*Repository)(nil)
	_ repository.InitiativeRepository   = (*Repository)(nil)
)

// CreateUser inserts a user and fills in the generated identifier.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (organization_id, username, email, display_name, password_hash, online_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, user.OrganizationID, user.Username, user.Email, user.DisplayName, user.PasswordHash, user.OnlineStatus)
	return row.Scan(&user.ID, &user.CreatedAt)
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, organization_id, username, email, display_name, password_hash, online_status, created_at
		FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT id, organization_id, username, email, display_name, password_hash, online_status, created_at
		FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// UpdateUser saves all mutable user columns in a single statement.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users
		SET organization_id = $2, username = $3, email = $4, display_name = $5, online_status = $6
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, user.ID, user.OrganizationID, user.Username, user.Email, user.DisplayName, user.OnlineStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListUsersByOrganization returns the users belonging to an organization.
func (r *Repository) ListUsersByOrganization(ctx context.Context, orgID int64) ([]domain.User, error) {
	const query = `SELECT id, organization_id, username, email, display_name, password_hash, online_status, created_at
		FROM users WHERE organization_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.OrganizationID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.OnlineStatus, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateOrganization inserts an organization.
func (r *Repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	const query = `INSERT INTO organizations (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, org.Name, org.Description)
	return row.Scan(&org.ID, &org.CreatedAt)
}

// GetOrganizationByID returns an organization by identifier.
func (r *Repository) GetOrganizationByID(ctx context.Context, id int64) (*domain.Organization, error) {
	const query = `SELECT id, name, description, created_at FROM organizations WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var o domain.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &o, nil
}

// UpdateOrganization saves an organization.
func (r *Repository) UpdateOrganization(ctx context.Context, org *domain.Organization) error {
	const query = `UPDATE organizations SET name = $2, description = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, org.ID, org.Name, org.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (organization_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, project.OrganizationID, project.Name, project.Description)
	return row.Scan(&project.ID, &project.CreatedAt)
}

// GetProjectByID returns a project by identifier.
func (r *Repository) GetProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	const query = `SELECT id, organization_id, name, description, created_at FROM projects WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Project
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// UpdateProject saves a project.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project) error {
	const query = `UPDATE projects SET organization_id = $2, name = $3, description = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, project.ID, project.OrganizationID, project.Name, project.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListProjectsByOrganization returns an organization's projects.
func (r *Repository) ListProjectsByOrganization(ctx context.Context, orgID int64) ([]domain.Project, error) {
	const query = `SELECT id, organization_id, name, description, created_at
		FROM projects WHERE organization_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateDomain inserts a domain.
func (r *Repository) CreateDomain(ctx context.Context, dom *domain.DomainName) error {
	const query = `INSERT INTO domains (project_id, name, hostname)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, dom.ProjectID, dom.Name, dom.Hostname)
	return row.Scan(&dom.ID, &dom.CreatedAt)
}

// GetDomainByID returns a domain by identifier.
func (r *Repository) GetDomainByID(ctx context.Context, id int64) (*domain.DomainName, error) {
	const query = `SELECT id, project_id, name, hostname, created_at FROM domains WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var d domain.DomainName
	if err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Hostname, &d.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &d, nil
}

// UpdateDomain saves a domain.
func (r *Repository) UpdateDomain(ctx context.Context, dom *domain.DomainName) error {
	const query = `UPDATE domains SET project_id = $2, name = $3, hostname = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, dom.ID, dom.ProjectID, dom.Name, dom.Hostname)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListDomainsByProject returns a project's domains.
func (r *Repository) ListDomainsByProject(ctx context.Context, projectID int64) ([]domain.DomainName, error) {
	const query = `SELECT id, project_id, name, hostname, created_at
		FROM domains WHERE project_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var domains []domain.DomainName
	for rows.Next() {
		var d domain.DomainName
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Hostname, &d.CreatedAt); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// CreateBug inserts a bug.
func (r *Repository) CreateBug(ctx context.Context, bug *domain.Bug) error {
	const query = `INSERT INTO bugs (project_id, title, description, status, severity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, bug.ProjectID, bug.Title, bug.Description, bug.Status, bug.Severity)
	return row.Scan(&bug.ID, &bug.CreatedAt)
}

// GetBugByID returns a bug by identifier.
func (r *Repository) GetBugByID(ctx context.Context, id int64) (*domain.Bug, error) {
	const query = `SELECT id, project_id, title, description, status, severity, created_at FROM bugs WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var b domain.Bug
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Title, &b.Description, &b.Status, &b.Severity, &b.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &b, nil
}

// UpdateBug saves a bug.
func (r *Repository) UpdateBug(ctx context.Context, bug *domain.Bug) error {
	const query = `UPDATE bugs SET project_id = $2, title = $3, description = $4, status = $5, severity = $6 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, bug.ID, bug.ProjectID, bug.Title, bug.Description, bug.Status, bug.Severity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateComment inserts a bug comment.
func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	const query = `INSERT INTO comments (bug_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, comment.BugID, comment.AuthorID, comment.Body)
	return row.Scan(&comment.ID, &comment.CreatedAt)
}

// CreateInitiative inserts an initiative.
func (r *Repository) CreateInitiative(ctx context.Context, initiative *domain.Initiative) error {
	const query = `INSERT INTO initiatives (organization_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query, initiative.OrganizationID, initiative.Name, initiative.Description)
	return row.Scan(&initiative.ID, &initiative.CreatedAt)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.OrganizationID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.OnlineStatus, &u.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
