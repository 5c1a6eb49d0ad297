package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evlasenko/go-todo-app/internal/models"
	"github.com/evlasenko/go-todo-app/internal/services"
)

type todoResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Category    string     `json:"category"`
	Completed   bool       `json:"completed"`
	IsOverdue   bool       `json:"isOverdue"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func newTodoResponse(todo *models.Todo) todoResponse {
	return todoResponse{
		ID:          todo.ID,
		UserID:      todo.UserID,
		Title:       todo.Title,
		Description: todo.Description,
		DueDate:     todo.DueDate,
		Category:    todo.Category,
		Completed:   todo.Completed,
		IsOverdue:   todo.IsOverdue(time.Now()),
		CreatedAt:   todo.CreatedAt,
		UpdatedAt:   todo.UpdatedAt,
	}
}

type todoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Category    string     `json:"category"`
	Completed   bool       `json:"completed"`
}

func (r todoRequest) params() services.TodoParams {
	return services.TodoParams{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Category:    r.Category,
		Completed:   r.Completed,
	}
}

func (h *handlerImpl) HandleCreateTodo(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	var req todoRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	todo, err := h.todos.CreateTodo(c, principal, req.params())
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create todo")

		var ve *services.ValidationError
		switch {
		case errors.As(err, &ve):
			abortValidation(c, ve)
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusCreated, newTodoResponse(todo))
}

func (h *handlerImpl) HandleGetTodos(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	filter, err := parseTodoFilter(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid todo filter")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	todos, err := h.todos.GetTodos(c, principal, filter)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get todos")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]todoResponse, len(todos))
	for i, todo := range todos {
		response[i] = newTodoResponse(todo)
	}
	c.JSON(http.StatusOK, response)
}

func parseTodoFilter(c *gin.Context) (services.TodoFilter, error) {
	var filter services.TodoFilter

	if category := c.Query("category"); category != "" {
		if !models.IsValidCategory(category) {
			return filter, errors.New("category must be either Urgent or Non-Urgent")
		}
		filter.Category = category
	}

	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.New("completed must be a boolean")
		}
		filter.Completed = &completed
	}

	if raw := c.Query("dueBefore"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("dueBefore must be an RFC 3339 timestamp")
		}
		filter.DueBefore = &t
	}

	if raw := c.Query("dueAfter"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("dueAfter must be an RFC 3339 timestamp")
		}
		filter.DueAfter = &t
	}

	return filter, nil
}

func (h *handlerImpl) HandleGetTodo(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	todoID := c.Param("id")
	if todoID == "" {
		h.logger.Error().Msg("no todo id provided")
		abort(c, newBadRequestError("todo id is required"))
		return
	}

	todo, err := h.todos.GetTodoByID(c, principal, todoID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get todo")
		h.abortTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTodoResponse(todo))
}

func (h *handlerImpl) HandleUpdateTodo(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	todoID := c.Param("id")
	if todoID == "" {
		h.logger.Error().Msg("no todo id provided")
		abort(c, newBadRequestError("todo id is required"))
		return
	}

	var req todoRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	todo, err := h.todos.UpdateTodo(c, principal, todoID, req.params())
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to update todo")
		h.abortTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTodoResponse(todo))
}

func (h *handlerImpl) HandleDeleteTodo(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	todoID := c.Param("id")
	if todoID == "" {
		h.logger.Error().Msg("no todo id provided")
		abort(c, newBadRequestError("todo id is required"))
		return
	}

	err := h.todos.DeleteTodo(c, principal, todoID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to delete todo")
		h.abortTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "todo deleted successfully"})
}

func (h *handlerImpl) abortTodoError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		abortValidation(c, ve)
	case errors.Is(err, services.ErrTodoNotFound):
		abort(c, newNotFoundError(services.ErrTodoNotFound.Error()))
	case errors.Is(err, services.ErrAccessDenied):
		abort(c, newForbiddenError(services.ErrAccessDenied.Error()))
	default:
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
