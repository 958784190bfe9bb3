package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wrenware/tracker/internal/domain"
	"github.com/wrenware/tracker/internal/service/auth"
	"github.com/wrenware/tracker/internal/service/catalog"
	"github.com/wrenware/tracker/internal/service/mutate"
	"github.com/wrenware/tracker/internal/ws"
	"github.com/wrenware/tracker/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	cfg      config.APIConfig
	auth     auth.Service
	catalog  catalog.Service
	mutator  mutate.Engine
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitLogin     = 12
	rateLimitRegister  = 5
	healthCheckTimeout = 2 * time.Second
	sseHeartbeatEvery  = 30 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, cfg config.APIConfig, authSvc auth.Service, catalogSvc catalog.Service, mutator mutate.Engine, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		cfg:     cfg,
		auth:    authSvc,
		catalog: catalogSvc,
		mutator: mutator,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/", r.audit(r.withIdentity(r.handleRoot)))
	r.mux.HandleFunc("/login", r.audit(r.withRateLimit("/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/logout", r.audit(r.withIdentity(r.handleLogout)))

	r.mux.HandleFunc("/organizations/create", r.audit(r.withIdentity(r.handleOrganizationCreate)))
	r.mux.HandleFunc("/organizations/update/", r.audit(r.withIdentity(r.updateHandler(mutate.KindOrganization, "/organizations/update/", "organization"))))
	r.mux.HandleFunc("/users/create", r.audit(r.withRateLimit("/users/create", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleUserCreate)))
	r.mux.HandleFunc("/users/update/", r.audit(r.withIdentity(r.updateHandler(mutate.KindUser, "/users/update/", "user"))))
	r.mux.HandleFunc("/projects/create", r.audit(r.withIdentity(r.handleProjectCreate)))
	r.mux.HandleFunc("/projects/update/", r.audit(r.withIdentity(r.updateHandler(mutate.KindProject, "/projects/update/", "project"))))
	r.mux.HandleFunc("/domains/create", r.audit(r.withIdentity(r.handleDomainCreate)))
	r.mux.HandleFunc("/domains/update/", r.audit(r.withIdentity(r.updateHandler(mutate.KindDomain, "/domains/update/", "domain"))))
	r.mux.HandleFunc("/bugs/create", r.audit(r.withIdentity(r.handleBugCreate)))
	r.mux.HandleFunc("/bugs/update/", r.audit(r.withIdentity(r.updateHandler(mutate.KindBug, "/bugs/update/", "bug"))))
	r.mux.HandleFunc("/comments/create", r.audit(r.withIdentity(r.handleCommentCreate)))
	r.mux.HandleFunc("/initiatives/create", r.audit(r.withIdentity(r.handleInitiativeCreate)))

	r.mux.HandleFunc("/organization/", r.audit(r.withIdentity(r.handleOrganizationOverview)))

	r.mux.HandleFunc("/ws/presence", r.audit(r.handlePresenceWS))
	r.mux.HandleFunc("/presence/stream", r.audit(r.handlePresenceSSE))

	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
}

func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if id, ok := identityFromContext(req.Context()); ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": id.User})
		return
	}
	writeText(w, http.StatusOK, "no active session")
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		writeText(w, http.StatusOK, "POST a username and password to this route to sign in")
	case http.MethodPost:
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, token, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		r.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	id, ok := identityFromContext(req.Context())
	if !ok {
		writeText(w, http.StatusOK, "not logged in")
		return
	}
	if err := r.auth.Logout(req.Context(), id.Token, id.User); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	r.clearSessionCookie(w)
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

func (r *Router) handleOrganizationCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var org domain.Organization
	if err := json.NewDecoder(req.Body).Decode(&org); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.catalog.CreateOrganization(req.Context(), &org)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleUserCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.RegisterInput
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := r.auth.Register(req.Context(), payload)
	if err != nil {
		// Registration failures answer in plain text with the underlying
		// detail, unlike the other create routes.
		writeText(w, http.StatusBadRequest, fmt.Sprintf("There was a problem creating this user: %s", err))
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (r *Router) handleProjectCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var project domain.Project
	if err := json.NewDecoder(req.Body).Decode(&project); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.catalog.CreateProject(req.Context(), &project)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleDomainCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var dom domain.DomainName
	if err := json.NewDecoder(req.Body).Decode(&dom); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.catalog.CreateDomain(req.Context(), &dom)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleBugCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var bug domain.Bug
	if err := json.NewDecoder(req.Body).Decode(&bug); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.catalog.CreateBug(req.Context(), &bug)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleCommentCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var comment domain.Comment
	if err := json.NewDecoder(req.Body).Decode(&comment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.catalog.CreateComment(req.Context(), &comment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleInitiativeCreate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var initiative domain.Initiative
	if err := json.NewDecoder(req.Body).Decode(&initiative); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.catalog.CreateInitiative(req.Context(), &initiative)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// updateHandler builds the PATCH handler for one entity kind. Every update
// route shares this shape: parse the ID from the path, decode the change set,
// run the mutation engine, answer with the uniform envelope.
func (r *Router) updateHandler(kind mutate.Kind, prefix, label string) http.HandlerFunc {
	failureMessage := "Could not update this " + label
	successMessage := strings.ToUpper(label[:1]) + label[1:] + " successfully updated"
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPatch {
			r.methodNotAllowed(w)
			return
		}
		rawID := strings.TrimPrefix(req.URL.Path, prefix)
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			writeUpdateFailure(w, http.StatusBadRequest, failureMessage, fmt.Errorf("invalid identifier %q", rawID))
			return
		}
		var payload struct {
			Changes map[string]any `json:"changes"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeUpdateFailure(w, http.StatusBadRequest, failureMessage, errors.New("invalid JSON body"))
			return
		}
		if err := r.mutator.Update(req.Context(), kind, id, payload.Changes); err != nil {
			writeUpdateFailure(w, updateFailureStatus(err), failureMessage, err)
			return
		}
		writeUpdateSuccess(w, successMessage)
	}
}

func updateFailureStatus(err error) int {
	var unknownField domain.UnknownFieldError
	var fieldType domain.FieldTypeError
	switch {
	case mutate.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrImmutableField),
		errors.As(err, &unknownField),
		errors.As(err, &fieldType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) handleOrganizationOverview(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	rawID := strings.TrimPrefix(req.URL.Path, "/organization/")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid identifier %q", rawID))
		return
	}
	overview, err := r.catalog.OrganizationOverview(req.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if mutate.IsNotFound(err) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (r *Router) handlePresenceWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "presence feed disabled")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(auth.PresenceTopic, client)
	go func() {
		defer func() {
			r.hub.Unregister(auth.PresenceTopic, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handlePresenceSSE(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "presence feed disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(auth.PresenceTopic, client)
	defer func() {
		r.hub.Unregister(auth.PresenceTopic, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, routeLabel(req.URL.Path), status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if id, ok := identityFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", id.User.ID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
