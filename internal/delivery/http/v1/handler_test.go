package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/evlasenko/go-todo-app/internal/models"
	"github.com/evlasenko/go-todo-app/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthService struct {
	register     func(services.RegisterParams) (*services.AuthResult, error)
	login        func(services.LoginParams) (*services.AuthResult, error)
	authenticate func(string) (*models.Principal, error)
	getUser      func(string) (*models.User, error)
}

func (f *fakeAuthService) Register(_ context.Context, params services.RegisterParams) (*services.AuthResult, error) {
	return f.register(params)
}

func (f *fakeAuthService) Login(_ context.Context, params services.LoginParams) (*services.AuthResult, error) {
	return f.login(params)
}

func (f *fakeAuthService) Authenticate(_ context.Context, token string) (*models.Principal, error) {
	return f.authenticate(token)
}

func (f *fakeAuthService) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	return f.getUser(userID)
}

type fakeTodoService struct {
	create func(models.Principal, services.TodoParams) (*models.Todo, error)
	list   func(models.Principal, services.TodoFilter) ([]*models.Todo, error)
	get    func(models.Principal, string) (*models.Todo, error)
	update func(models.Principal, string, services.TodoParams) (*models.Todo, error)
	delete func(models.Principal, string) error
}

func (f *fakeTodoService) CreateTodo(_ context.Context, p models.Principal, params services.TodoParams) (*models.Todo, error) {
	return f.create(p, params)
}

func (f *fakeTodoService) GetTodos(_ context.Context, p models.Principal, filter services.TodoFilter) ([]*models.Todo, error) {
	return f.list(p, filter)
}

func (f *fakeTodoService) GetTodoByID(_ context.Context, p models.Principal, todoID string) (*models.Todo, error) {
	return f.get(p, todoID)
}

func (f *fakeTodoService) UpdateTodo(_ context.Context, p models.Principal, todoID string, params services.TodoParams) (*models.Todo, error) {
	return f.update(p, todoID, params)
}

func (f *fakeTodoService) DeleteTodo(_ context.Context, p models.Principal, todoID string) error {
	return f.delete(p, todoID)
}

type fakeAdminService struct {
	listUsers func() ([]*models.User, error)
	getUser   func(string) (*models.User, error)
	setRole   func(models.Principal, string, string) (*models.User, error)
	stats     func() (*services.Stats, error)
	listTodos func() ([]*models.TodoWithOwner, error)
}

func (f *fakeAdminService) ListUsers(_ context.Context) ([]*models.User, error) {
	return f.listUsers()
}

func (f *fakeAdminService) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	return f.getUser(userID)
}

func (f *fakeAdminService) SetUserRole(_ context.Context, p models.Principal, targetID, role string) (*models.User, error) {
	return f.setRole(p, targetID, role)
}

func (f *fakeAdminService) GetStats(_ context.Context) (*services.Stats, error) {
	return f.stats()
}

func (f *fakeAdminService) ListAllTodos(_ context.Context) ([]*models.TodoWithOwner, error) {
	return f.listTodos()
}

// tokenAuthenticate resolves the fixed test tokens "user-token" and
// "admin-token" the way the real service resolves a JWT subject.
func tokenAuthenticate(token string) (*models.Principal, error) {
	switch token {
	case "user-token":
		return &models.Principal{ID: "user-1", Role: models.RoleUser}, nil
	case "admin-token":
		return &models.Principal{ID: "admin-1", Role: models.RoleAdmin}, nil
	default:
		return nil, services.ErrInvalidToken
	}
}

func newTestRouter(auth services.AuthService, todos services.TodoService, admin services.AdminService) *gin.Engine {
	h := New(zerolog.Nop(), auth, todos, admin)

	router := gin.New()
	api := router.Group("/api")

	authRouter := api.Group("/auth")
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/login", h.HandleLogin)
	authRouter.GET("/me", h.HandleAuthMiddleware, h.HandleGetMe)

	todoRouter := api.Group("/todos", h.HandleAuthMiddleware)
	todoRouter.POST("", h.HandleCreateTodo)
	todoRouter.GET("", h.HandleGetTodos)
	todoRouter.GET("/:id", h.HandleGetTodo)
	todoRouter.PUT("/:id", h.HandleUpdateTodo)
	todoRouter.DELETE("/:id", h.HandleDeleteTodo)

	adminRouter := api.Group("/admin", h.HandleAuthMiddleware, h.RequireRoles(models.RoleAdmin))
	adminRouter.GET("/users", h.HandleListUsers)
	adminRouter.GET("/users/:id", h.HandleGetUser)
	adminRouter.PATCH("/users/:id/role", h.HandleSetUserRole)
	adminRouter.GET("/stats", h.HandleGetStats)
	adminRouter.GET("/todos", h.HandleListAllTodos)

	return router
}

func performRequest(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testUser() *models.User {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	return &models.User{
		ID:        "user-1",
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "$argon2id$v=19$m=65536,t=1,p=2$secret",
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRegisterSuccessHidesPassword(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthService{
		register: func(params services.RegisterParams) (*services.AuthResult, error) {
			return &services.AuthResult{
				Token:          "issued-token",
				TokenExpiresAt: time.Now().Add(time.Hour),
				User:           testUser(),
			}, nil
		},
	}
	router := newTestRouter(auth, nil, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/register", "",
		`{"username":"alice","email":"alice@example.com","password":"longenough"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Token != "issued-token" {
		t.Errorf("token = %q, want %q", resp.Token, "issued-token")
	}
	if resp.User["username"] != "alice" {
		t.Errorf("username = %v, want alice", resp.User["username"])
	}
	if _, ok := resp.User["password"]; ok {
		t.Error("response must not contain a password field")
	}
	if strings.Contains(w.Body.String(), "argon2id") {
		t.Error("response must not contain the password hash")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthService{
		register: func(services.RegisterParams) (*services.AuthResult, error) {
			return nil, services.ErrUserAlreadyExists
		},
	}
	router := newTestRouter(auth, nil, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/register", "",
		`{"username":"alice","email":"alice@example.com","password":"longenough"}`)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthService{
		register: func(services.RegisterParams) (*services.AuthResult, error) {
			return nil, &services.ValidationError{Fields: []services.FieldError{
				{Field: "username", Message: "username must be at least 3 characters"},
				{Field: "password", Message: "password must be at least 8 characters"},
			}}
		},
	}
	router := newTestRouter(auth, nil, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/register", "",
		`{"username":"ab","email":"a@b.co","password":"short"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp struct {
		Errors []fieldErrorResponse `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(resp.Errors))
	}
	if resp.Errors[0].Field != "username" || resp.Errors[1].Field != "password" {
		t.Errorf("unexpected fields: %+v", resp.Errors)
	}
}

func TestLoginInvalidCredentialsUniform(t *testing.T) {
	t.Parallel()

	// Unknown identifier and wrong password both surface as the same
	// service error; the response must be identical for the two.
	auth := &fakeAuthService{
		login: func(services.LoginParams) (*services.AuthResult, error) {
			return nil, services.ErrInvalidCredentials
		},
	}
	router := newTestRouter(auth, nil, nil)

	unknown := performRequest(router, http.MethodPost, "/api/auth/login", "",
		`{"login":"nobody","password":"whatever9"}`)
	wrongPassword := performRequest(router, http.MethodPost, "/api/auth/login", "",
		`{"login":"alice","password":"wrongpass"}`)

	if unknown.Code != http.StatusUnauthorized || wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d; want both %d",
			unknown.Code, wrongPassword.Code, http.StatusUnauthorized)
	}
	if unknown.Body.String() != wrongPassword.Body.String() {
		t.Errorf("bodies differ: %s vs %s", unknown.Body.String(), wrongPassword.Body.String())
	}
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthService{
		login: func(params services.LoginParams) (*services.AuthResult, error) {
			if params.Login != "alice" || params.Password != "longenough" {
				t.Errorf("unexpected params %+v", params)
			}
			return &services.AuthResult{Token: "fresh-token", User: testUser()}, nil
		},
	}
	router := newTestRouter(auth, nil, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/login", "",
		`{"login":"alice","password":"longenough"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "fresh-token") {
		t.Errorf("expected a fresh token in %s", w.Body.String())
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthService{authenticate: tokenAuthenticate}
	todos := &fakeTodoService{
		list: func(models.Principal, services.TodoFilter) ([]*models.Todo, error) {
			return nil, nil
		},
	}
	router := newTestRouter(auth, todos, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "no bearer prefix", header: "user-token"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "bad token", header: "Bearer expired-or-garbage"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddlewareStorageFailure(t *testing.T) {
	t.Parallel()

	// A failure resolving the principal that is not a token problem
	// must not masquerade as unauthorized.
	auth := &fakeAuthService{
		authenticate: func(string) (*models.Principal, error) {
			return nil, errors.New("connection reset")
		},
	}
	todos := &fakeTodoService{
		list: func(models.Principal, services.TodoFilter) ([]*models.Todo, error) {
			t.Error("handler must not run when authentication fails")
			return nil, nil
		},
	}
	router := newTestRouter(auth, todos, nil)

	w := performRequest(router, http.MethodGet, "/api/todos", "user-token", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestGetMe(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthService{
		authenticate: tokenAuthenticate,
		getUser: func(userID string) (*models.User, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return testUser(), nil
		},
	}
	router := newTestRouter(auth, nil, nil)

	w := performRequest(router, http.MethodGet, "/api/auth/me", "user-token", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "argon2id") {
		t.Error("response must not contain the password hash")
	}
}
