package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain_todo "github.com/hijjiri/todo-rest/internal/domain/todo"
	todo_usecase "github.com/hijjiri/todo-rest/internal/usecase/todo"
)

// todoRequest is the body of POST /todos/ and PUT /todos/{id}.
type todoRequest struct {
	Text string `json:"text" binding:"required"`
	Done *bool  `json:"done"`
}

type todoResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type TodoHandler struct {
	uc     todo_usecase.Usecase
	logger *zap.Logger
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{uc: uc, logger: logger}
}

// --- GET /todos/ ---
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.uc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]todoResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, toResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

// --- POST /todos/ ---
func (h *TodoHandler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	created, err := h.uc.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Location", created.Location)
	c.JSON(http.StatusCreated, toResponse(created.Todo))
}

// --- GET /todos/{id} ---
func (h *TodoHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.uc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(t))
}

// --- PUT /todos/{id} ---
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}

	t, err := h.uc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(t))
}

// --- DELETE /todos/{id} ---
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.uc.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- OPTIONS /todos/ ---
func (h *TodoHandler) CollectionOptions(c *gin.Context) {
	c.Header("Allow", todo_usecase.AllowHeader(h.uc.AllowedForCollection()))
	c.Status(http.StatusOK)
}

// --- OPTIONS /todos/{id} ---
func (h *TodoHandler) ItemOptions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	methods, err := h.uc.AllowedForItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Allow", todo_usecase.AllowHeader(methods))
	c.Status(http.StatusOK)
}

func (h *TodoHandler) bind(c *gin.Context) (domain_todo.TodoCreate, bool) {
	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid request body", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Detail: "invalid request body: text is required"})
		return domain_todo.TodoCreate{}, false
	}
	return domain_todo.TodoCreate{Text: req.Text, Done: req.Done}, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Detail: "todo id must be an integer"})
		return 0, false
	}
	return id, true
}

func (h *TodoHandler) respondError(c *gin.Context, err error) {
	status, detail := toHTTPError(err)
	if status >= http.StatusInternalServerError {
		// 詳細はログ側にだけ残す
		h.logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}

// --- converter (domain -> response) ---
func toResponse(t *domain_todo.Todo) todoResponse {
	return todoResponse{
		ID:   t.ID,
		Text: t.Text,
		Done: t.Done,
	}
}

// --- error mapper ---
func toHTTPError(err error) (int, string) {
	switch {
	case errors.Is(err, todo_usecase.ErrNotFound):
		return http.StatusNotFound, "Todo not found"

	case errors.Is(err, todo_usecase.ErrEmptyText):
		return http.StatusUnprocessableEntity, "text must not be empty"

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timeout"

	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request canceled"

	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
