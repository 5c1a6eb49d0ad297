package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evlasenko/go-todo-app/internal/models"
	"github.com/evlasenko/go-todo-app/internal/services"
)

func (h *handlerImpl) HandleListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list users")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]userResponse, len(users))
	for i, user := range users {
		response[i] = newUserResponse(user)
	}
	c.JSON(http.StatusOK, response)
}

func (h *handlerImpl) HandleGetUser(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.logger.Error().Msg("no user id provided")
		abort(c, newBadRequestError("user id is required"))
		return
	}

	user, err := h.admin.GetUserByID(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get user")
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			abort(c, newNotFoundError(services.ErrUserNotFound.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type setUserRoleRequest struct {
	Role string `json:"role"`
}

func (h *handlerImpl) HandleSetUserRole(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	userID := c.Param("id")
	if userID == "" {
		h.logger.Error().Msg("no user id provided")
		abort(c, newBadRequestError("user id is required"))
		return
	}

	var req setUserRoleRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	user, err := h.admin.SetUserRole(c, principal, userID, req.Role)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to set user role")
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			abort(c, newBadRequestError(services.ErrInvalidRole.Error()))
		case errors.Is(err, services.ErrUserNotFound):
			abort(c, newNotFoundError(services.ErrUserNotFound.Error()))
		case errors.Is(err, services.ErrSelfDemotion):
			abort(c, newForbiddenError(services.ErrSelfDemotion.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "user role updated successfully",
		"user":    newUserResponse(user),
	})
}

type statsResponse struct {
	TotalUsers      int64            `json:"totalUsers"`
	TotalTodos      int64            `json:"totalTodos"`
	UsersByRole     map[string]int64 `json:"usersByRole"`
	TodosByCategory map[string]int64 `json:"todosByCategory"`
}

func (h *handlerImpl) HandleGetStats(c *gin.Context) {
	stats, err := h.admin.GetStats(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get stats")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, statsResponse{
		TotalUsers:      stats.TotalUsers,
		TotalTodos:      stats.TotalTodos,
		UsersByRole:     stats.UsersByRole,
		TodosByCategory: stats.TodosByCategory,
	})
}

type todoOwnerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type adminTodoResponse struct {
	todoResponse
	Owner todoOwnerResponse `json:"user"`
}

func newAdminTodoResponse(todo *models.TodoWithOwner) adminTodoResponse {
	return adminTodoResponse{
		todoResponse: newTodoResponse(&todo.Todo),
		Owner: todoOwnerResponse{
			ID:       todo.Owner.ID,
			Username: todo.Owner.Username,
			Email:    todo.Owner.Email,
		},
	}
}

func (h *handlerImpl) HandleListAllTodos(c *gin.Context) {
	todos, err := h.admin.ListAllTodos(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list todos")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]adminTodoResponse, len(todos))
	for i, todo := range todos {
		response[i] = newAdminTodoResponse(todo)
	}
	c.JSON(http.StatusOK, response)
}
