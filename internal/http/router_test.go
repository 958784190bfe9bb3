package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/repository"
	"github.com/wrenware/tracker/internal/service/auth"
	"github.com/wrenware/tracker/internal/service/catalog"
	"github.com/wrenware/tracker/internal/service/mutate"
	"github.com/wrenware/tracker/internal/session"
	"github.com/wrenware/tracker/pkg/config"
	"github.com/wrenware/tracker/pkg/crypto"
)

// stubStore is an in-memory stand-in for the Postgres repository.
type stubStore struct {
	orgs          map[int64]*domain.Organization
	users         map[int64]*domain.User
	projects      map[int64]*domain.Project
	domains       map[int64]*domain.DomainName
	bugs          map[int64]*domain.Bug
	usersByOrg    map[int64][]domain.User
	projectsByOrg map[int64][]domain.Project
	domainsByProj map[int64][]domain.DomainName
	nextID        int64
}

func newStubStore() *stubStore {
	return &stubStore{
		orgs:          make(map[int64]*domain.Organization),
		users:         make(map[int64]*domain.User),
		projects:      make(map[int64]*domain.Project),
		domains:       make(map[int64]*domain.DomainName),
		bugs:          make(map[int64]*domain.Bug),
		usersByOrg:    make(map[int64][]domain.User),
		projectsByOrg: make(map[int64][]domain.Project),
		domainsByProj: make(map[int64][]domain.DomainName),
		nextID:        1,
	}
}

func (s *stubStore) assignID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *stubStore) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	org.ID = s.assignID()
	org.CreatedAt = time.Now()
	s.orgs[org.ID] = org
	return nil
}

func (s *stubStore) GetOrganizationByID(ctx context.Context, id int64) (*domain.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *org
	return &copied, nil
}

func (s *stubStore) UpdateOrganization(ctx context.Context, org *domain.Organization) error {
	if _, ok := s.orgs[org.ID]; !ok {
		return repository.ErrNotFound
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *stubStore) CreateUser(ctx context.Context, user *domain.User) error {
	user.ID = s.assignID()
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	return nil
}

func (s *stubStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubStore) UpdateUser(ctx context.Context, user *domain.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *stubStore) ListUsersByOrganization(ctx context.Context, orgID int64) ([]domain.User, error) {
	return s.usersByOrg[orgID], nil
}

func (s *stubStore) CreateProject(ctx context.Context, project *domain.Project) error {
	project.ID = s.assignID()
	s.projects[project.ID] = project
	return nil
}

func (s *stubStore) GetProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	project, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *stubStore) UpdateProject(ctx context.Context, project *domain.Project) error {
	if _, ok := s.projects[project.ID]; !ok {
		return repository.ErrNotFound
	}
	s.projects[project.ID] = project
	return nil
}

func (s *stubStore) ListProjectsByOrganization(ctx context.Context, orgID int64) ([]domain.Project, error) {
	return s.projectsByOrg[orgID], nil
}

func (s *stubStore) CreateDomain(ctx context.Context, dom *domain.DomainName) error {
	dom.ID = s.assignID()
	s.domains[dom.ID] = dom
	return nil
}

func (s *stubStore) GetDomainByID(ctx context.Context, id int64) (*domain.DomainName, error) {
	dom, ok := s.domains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *dom
	return &copied, nil
}

func (s *stubStore) UpdateDomain(ctx context.Context, dom *domain.DomainName) error {
	if _, ok := s.domains[dom.ID]; !ok {
		return repository.ErrNotFound
	}
	s.domains[dom.ID] = dom
	return nil
}

func (s *stubStore) ListDomainsByProject(ctx context.Context, projectID int64) ([]domain.DomainName, error) {
	return s.domainsByProj[projectID], nil
}

func (s *stubStore) CreateBug(ctx context.Context, bug *domain.Bug) error {
	bug.ID = s.assignID()
	s.bugs[bug.ID] = bug
	return nil
}

func (s *stubStore) GetBugByID(ctx context.Context, id int64) (*domain.Bug, error) {
	bug, ok := s.bugs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *bug
	return &copied, nil
}

func (s *stubStore) UpdateBug(ctx context.Context, bug *domain.Bug) error {
	if _, ok := s.bugs[bug.ID]; !ok {
		return repository.ErrNotFound
	}
	s.bugs[bug.ID] = bug
	return nil
}

func (s *stubStore) CreateComment(ctx context.Context, comment *domain.Comment) error {
	comment.ID = s.assignID()
	return nil
}

func (s *stubStore) CreateInitiative(ctx context.Context, initiative *domain.Initiative) error {
	initiative.ID = s.assignID()
	return nil
}

func testConfig() config.APIConfig {
	return config.APIConfig{
		Environment:       "test",
		SessionSecret:     "test-secret",
		SessionCookieName: "tracker_session",
		SessionTTL:        time.Hour,
	}
}

func newTestRouter(t *testing.T, store *stubStore, dbHealth func(context.Context) error) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(sessions.Close)
	authSvc := auth.New(store, sessions, nil, logger)
	catalogSvc := catalog.New(store, store, store, store, store, store, store, logger)
	mutator := mutate.NewEngine(store, store, store, store, store, logger)
	router := NewRouter(logger, testConfig(), authSvc, catalogSvc, mutator, nil, nil, dbHealth)
	t.Cleanup(router.Close)
	return router
}

func seedAccount(t *testing.T, store *stubStore, username, password string) *domain.User {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{ID: store.assignID(), Username: username, PasswordHash: hash, OnlineStatus: true}
	store.users[user.ID] = user
	return user
}

func doJSON(router *Router, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "tracker_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestRootAnonymous(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "no active session" {
		t.Fatalf("body %q", got)
	}
}

func TestLoginFlow(t *testing.T) {
	store := newStubStore()
	seeded := seedAccount(t, store, "sam", "hunter2")
	router := newTestRouter(t, store, nil)

	// GET documents the route.
	rec := doJSON(router, http.MethodGet, "/login", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /login status %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPost, "/login", `{"username":"sam","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}
	// The cookie is signed; the embedded token must verify against the secret.
	token, err := crypto.VerifyCookie("test-secret", cookie.Value)
	if err != nil {
		t.Fatalf("cookie verification: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token in cookie")
	}

	if body := rec.Body.String(); strings.Contains(body, "password") || strings.Contains(body, "hunter2") {
		t.Fatalf("credential material in login response: %s", body)
	}

	// The session cookie identifies the user on subsequent requests.
	rec = doJSON(router, http.MethodGet, "/", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("root status %d", rec.Code)
	}
	var payload struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode root response: %v", err)
	}
	if payload.User == nil || payload.User.ID != seeded.ID {
		t.Fatalf("identified as %+v, want user %d", payload.User, seeded.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newStubStore()
	seedAccount(t, store, "sam", "hunter2")
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodPost, "/login", `{"username":"sam","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "tracker_session" {
			t.Fatalf("session cookie set on failed login")
		}
	}
}

func TestTamperedCookieReadsAsAnonymous(t *testing.T) {
	store := newStubStore()
	seedAccount(t, store, "sam", "hunter2")
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodPost, "/login", `{"username":"sam","password":"hunter2"}`)
	cookie := sessionCookie(t, rec)
	cookie.Value = "forged-token" + cookie.Value[strings.LastIndexByte(cookie.Value, '.'):]

	rec = doJSON(router, http.MethodGet, "/", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := rec.Body.String(); got != "no active session" {
		t.Fatalf("tampered cookie was honored: %q", got)
	}
}

func TestLogoutAnonymous(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodPost, "/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "not logged in" {
		t.Fatalf("body %q", got)
	}
}

func TestLogout(t *testing.T) {
	store := newStubStore()
	seeded := seedAccount(t, store, "sam", "hunter2")
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodPost, "/login", `{"username":"sam","password":"hunter2"}`)
	cookie := sessionCookie(t, rec)

	rec = doJSON(router, http.MethodPost, "/logout", "", cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("redirect to %q, want /", loc)
	}
	if store.users[seeded.ID].OnlineStatus {
		t.Fatalf("expected online_status false after logout")
	}
	cleared := sessionCookie(t, rec)
	if cleared.MaxAge >= 0 {
		t.Fatalf("session cookie not cleared: MaxAge=%d", cleared.MaxAge)
	}

	// The old session token no longer resolves.
	rec = doJSON(router, http.MethodGet, "/", "", cookie)
	if got := rec.Body.String(); got != "no active session" {
		t.Fatalf("stale session honored: %q", got)
	}
}

func TestOrganizationUpdateEnvelope(t *testing.T) {
	store := newStubStore()
	store.orgs[1] = &domain.Organization{ID: 1, Name: "Acme"}
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodPatch, "/organizations/update/1", `{"changes":{"name":"Acme Corp"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Success bool    `json:"success"`
		Message string  `json:"message"`
		Error   *string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !result.Success || result.Message != "Organization successfully updated" || result.Error != nil {
		t.Fatalf("unexpected envelope: %+v", result)
	}
	if store.orgs[1].Name != "Acme Corp" {
		t.Fatalf("change not persisted: %+v", store.orgs[1])
	}
}

func TestOrganizationUpdateMissing(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodPatch, "/organizations/update/99", `{"changes":{"name":"x"}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	var result struct {
		Success bool    `json:"success"`
		Message string  `json:"message"`
		Error   *string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if result.Success || result.Message != "Could not update this organization" || result.Error == nil {
		t.Fatalf("unexpected envelope: %+v", result)
	}
}

func TestUpdateRejectsUnknownField(t *testing.T) {
	store := newStubStore()
	store.bugs[2] = &domain.Bug{ID: 2, Title: "crash", Status: "open"}
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodPatch, "/bugs/update/2", `{"changes":{"shoe_size":42}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown field") {
		t.Fatalf("error detail missing: %s", rec.Body.String())
	}
	if store.bugs[2].Status != "open" {
		t.Fatalf("rejected change persisted: %+v", store.bugs[2])
	}
}

func TestUpdateRejectsIdentifier(t *testing.T) {
	store := newStubStore()
	store.users[3] = &domain.User{ID: 3, Username: "sam"}
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodPatch, "/users/update/3", `{"changes":{"id":9}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestUpdateWrongMethod(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodPost, "/organizations/update/1", `{"changes":{}}`)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}

func TestUserCreateOmitsCredentials(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodPost, "/users/create", `{"username":"sam","password":"hunter2","email":"sam@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, "password") || strings.Contains(body, "hunter2") {
		t.Fatalf("credential material in response: %s", body)
	}
}

func TestUserCreateFailureIsPlainText(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodPost, "/users/create", `{"username":"sam"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if got := rec.Body.String(); !strings.HasPrefix(got, "There was a problem creating this user:") {
		t.Fatalf("unexpected failure body: %q", got)
	}
}

func TestOrganizationOverviewRoute(t *testing.T) {
	store := newStubStore()
	store.orgs[1] = &domain.Organization{ID: 1, Name: "Acme"}
	store.usersByOrg[1] = []domain.User{{ID: 10, Username: "sam"}}
	store.projectsByOrg[1] = []domain.Project{
		{ID: 20, OrganizationID: 1, Name: "web"},
		{ID: 21, OrganizationID: 1, Name: "mobile"},
	}
	store.domainsByProj[20] = []domain.DomainName{{ID: 30, ProjectID: 20, Name: "prod", Hostname: "acme.example"}}
	router := newTestRouter(t, store, nil)

	rec := doJSON(router, http.MethodGet, "/organization/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	for _, key := range []string{"targetOrganization", "users", "projects", "domains"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("overview missing key %q: %s", key, rec.Body.String())
		}
	}
	var domains []domain.DomainName
	if err := json.Unmarshal(payload["domains"], &domains); err != nil {
		t.Fatalf("decode domains: %v", err)
	}
	if len(domains) != 1 || domains[0].ID != 30 {
		t.Fatalf("expected first project's domains, got %+v", domains)
	}
}

func TestOrganizationOverviewMissing(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	rec := doJSON(router, http.MethodGet, "/organization/404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestRegisterRateLimit(t *testing.T) {
	router := newTestRouter(t, newStubStore(), nil)

	var last *httptest.ResponseRecorder
	for i := 0; i <= rateLimitRegister; i++ {
		last = doJSON(router, http.MethodPost, "/users/create", `{"username":"sam"}`)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429 after exceeding the limit", last.Code)
	}
	if last.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatalf("rate limit headers missing")
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("remaining %q, want 0", last.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, newStubStore(), func(ctx context.Context) error { return nil })

	rec := doJSON(router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("status %q, want ok", payload.Status)
	}
}

func TestHealthzDegraded(t *testing.T) {
	router := newTestRouter(t, newStubStore(), func(ctx context.Context) error {
		return context.DeadlineExceeded
	})

	rec := doJSON(router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
}

func TestRouteLabelCollapsesIDs(t *testing.T) {
	cases := map[string]string{
		"/organizations/update/17": "/organizations/update/:id",
		"/organization/3":          "/organization/:id",
		"/login":                   "/login",
		"/":                        "/",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
