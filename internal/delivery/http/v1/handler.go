package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/evlasenko/go-todo-app/internal/services"
)

type Handler interface {
	HandleRegister(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleGetMe(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)
	RequireRoles(roles ...string) gin.HandlerFunc

	HandleCreateTodo(c *gin.Context)
	HandleGetTodos(c *gin.Context)
	HandleGetTodo(c *gin.Context)
	HandleUpdateTodo(c *gin.Context)
	HandleDeleteTodo(c *gin.Context)

	HandleListUsers(c *gin.Context)
	HandleGetUser(c *gin.Context)
	HandleSetUserRole(c *gin.Context)
	HandleGetStats(c *gin.Context)
	HandleListAllTodos(c *gin.Context)
}

type handlerImpl struct {
	logger zerolog.Logger
	auth   services.AuthService
	todos  services.TodoService
	admin  services.AdminService
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	todoService services.TodoService,
	adminService services.AdminService,
) Handler {
	return &handlerImpl{
		logger: logger,
		auth:   authService,
		todos:  todoService,
		admin:  adminService,
	}
}
