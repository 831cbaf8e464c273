// Package testutil provides testing utilities.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nhle/nimbly/internal/model"
)

// EphemeralCreateID mirrors the fixed placeholder id the real service
// returns for every create.
const EphemeralCreateID = 255

// RequestLog records one request seen by the fake service.
type RequestLog struct {
	Method string
	Path   string
	Bearer string
}

// FakeAPI is an in-memory stand-in for the remote todo/auth service. It
// speaks the same endpoints and supports error and latency injection.
type FakeAPI struct {
	Server *httptest.Server

	mu           sync.Mutex
	user         model.User
	password     string
	todos        []model.Todo
	validAccess  map[string]bool
	validRefresh map[string]bool
	nextAccess   string
	nextRefresh  string
	createdID    int
	refreshCalls int
	refreshDelay time.Duration
	mutateDelay  time.Duration
	refreshFails bool
	createStatus int
	updateStatus int
	deleteStatus int
	requests     []RequestLog
}

// NewFakeAPI starts a fake service with one known user and shuts it down
// when the test completes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		user: model.User{
			ID:        1,
			Username:  "emilys",
			Email:     "emilys@example.com",
			FirstName: "Emily",
			LastName:  "Johnson",
		},
		password:     "emilyspass",
		validAccess:  make(map[string]bool),
		validRefresh: make(map[string]bool),
		nextAccess:   "fresh",
		nextRefresh:  "fresh-r",
		createdID:    EphemeralCreateID,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake service's base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// User returns the fake service's single known user.
func (f *FakeAPI) User() model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

// Password returns the known user's password.
func (f *FakeAPI) Password() string {
	return f.password
}

// AllowAccess marks an access token as valid.
func (f *FakeAPI) AllowAccess(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess[token] = true
}

// AllowRefresh marks a refresh token as exchangeable.
func (f *FakeAPI) AllowRefresh(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validRefresh[token] = true
}

// ExpireAccess invalidates an access token, so requests carrying it 401.
func (f *FakeAPI) ExpireAccess(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.validAccess, token)
}

// SetNextTokens controls the pair issued by the next login or refresh.
func (f *FakeAPI) SetNextTokens(access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextAccess = access
	f.nextRefresh = refresh
}

// SetRefreshDelay holds every refresh exchange open for d, letting tests
// pile concurrent 401s onto one in-flight refresh.
func (f *FakeAPI) SetRefreshDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshDelay = d
}

// SetMutateDelay holds todo create/update/delete calls open for d, letting
// tests observe pending state while a mutation is outstanding.
func (f *FakeAPI) SetMutateDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutateDelay = d
}

// FailRefresh makes every refresh exchange answer 401.
func (f *FakeAPI) FailRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFails = true
}

// RefreshCalls reports how many refresh exchanges the service has seen.
func (f *FakeAPI) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// SetTodos seeds the persisted todo list.
func (f *FakeAPI) SetTodos(todos []model.Todo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.todos = append([]model.Todo(nil), todos...)
}

// SetCreatedID controls the id assigned to created todos. The default is
// the service's real ephemeral placeholder.
func (f *FakeAPI) SetCreatedID(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdID = id
}

// FailCreate forces POST /todos/add to answer with the given status.
func (f *FakeAPI) FailCreate(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createStatus = status
}

// FailUpdate forces PUT /todos/{id} to answer with the given status.
func (f *FakeAPI) FailUpdate(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateStatus = status
}

// FailDelete forces DELETE /todos/{id} to answer with the given status.
func (f *FakeAPI) FailDelete(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteStatus = status
}

// Requests returns every request seen so far, in arrival order.
func (f *FakeAPI) Requests() []RequestLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RequestLog(nil), f.requests...)
}

// BearersFor returns the Authorization bearer of each request whose path
// starts with prefix, in arrival order.
func (f *FakeAPI) BearersFor(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var bearers []string
	for _, r := range f.requests {
		if strings.HasPrefix(r.Path, prefix) {
			bearers = append(bearers, r.Bearer)
		}
	}
	return bearers
}

func (f *FakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Bearer: bearerOf(r),
	})
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		f.handleLogin(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/refresh":
		f.handleRefresh(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/auth/me":
		f.handleMe(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/todos/user/"):
		f.handleList(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/todos/add":
		f.handleCreate(w, r)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/todos/"):
		f.handleUpdate(w, r)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/todos/"):
		f.handleDelete(w, r)
	default:
		writeError(w, http.StatusNotFound, "no such endpoint")
	}
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	f.mu.Lock()
	ok := creds.Username == f.user.Username && creds.Password == f.password
	if !ok {
		f.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	result := model.LoginResult{
		User: f.user,
		TokenPair: model.TokenPair{
			AccessToken:  f.nextAccess,
			RefreshToken: f.nextRefresh,
		},
	}
	f.validAccess[f.nextAccess] = true
	f.validRefresh[f.nextRefresh] = true
	f.mu.Unlock()

	writeJSON(w, result)
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	f.mu.Lock()
	f.refreshCalls++
	delay := f.refreshDelay
	fails := f.refreshFails || !f.validRefresh[body.RefreshToken]
	pair := model.TokenPair{AccessToken: f.nextAccess, RefreshToken: f.nextRefresh}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fails {
		writeError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	f.mu.Lock()
	f.validAccess[pair.AccessToken] = true
	f.validRefresh[pair.RefreshToken] = true
	f.mu.Unlock()

	writeJSON(w, pair)
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, f.User())
}

func (f *FakeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	ownerID, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/todos/user/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}

	f.mu.Lock()
	var owned []model.Todo
	for _, todo := range f.todos {
		if todo.OwnerID == ownerID {
			owned = append(owned, todo)
		}
	}
	f.mu.Unlock()

	writeJSON(w, model.TodoPage{
		Todos: owned,
		Total: len(owned),
		Skip:  0,
		Limit: len(owned),
	})
}

func (f *FakeAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	f.mu.Lock()
	forced := f.createStatus
	createdID := f.createdID
	delay := f.mutateDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != 0 {
		writeError(w, forced, "create failed")
		return
	}

	var req model.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	// Like the real service, the created record is never persisted.
	writeJSON(w, model.Todo{
		ID:        createdID,
		Title:     req.Title,
		Completed: req.Completed,
		OwnerID:   req.OwnerID,
	})
}

func (f *FakeAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	f.mu.Lock()
	forced := f.updateStatus
	delay := f.mutateDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != 0 {
		writeError(w, forced, "update failed")
		return
	}

	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/todos/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad todo id")
		return
	}

	var patch model.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, todo := range f.todos {
		if todo.ID == id {
			f.todos[i] = patch.Apply(todo)
			writeJSON(w, f.todos[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "todo not found")
}

func (f *FakeAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	f.mu.Lock()
	forced := f.deleteStatus
	delay := f.mutateDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != 0 {
		writeError(w, forced, "delete failed")
		return
	}

	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/todos/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad todo id")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, todo := range f.todos {
		if todo.ID == id {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			writeJSON(w, todo)
			return
		}
	}
	writeError(w, http.StatusNotFound, "todo not found")
}

func (f *FakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validAccess[bearerOf(r)]
}

func bearerOf(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
