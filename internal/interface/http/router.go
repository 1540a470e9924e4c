package httpadapter

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	todo_usecase "github.com/hijjiri/todo-rest/internal/usecase/todo"
)

// RouterConfig collects what NewRouter needs. Metrics may be nil.
type RouterConfig struct {
	Usecase        todo_usecase.Usecase
	Logger         *zap.Logger
	Metrics        *Metrics
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine serving the todo API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		NewRecoveryMiddleware(logger),
		NewRequestIDMiddleware(),
		NewTracingMiddleware(),
	)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(
		NewLoggingMiddleware(logger),
		NewTimeoutMiddleware(logger, cfg.RequestTimeout),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Detail: "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Detail: "Method Not Allowed"})
	})

	h := NewTodoHandler(cfg.Usecase, logger)

	todos := r.Group("/todos")
	todos.GET("/", h.List)
	todos.POST("/", h.Create)
	todos.OPTIONS("/", h.CollectionOptions)
	todos.GET("/:id", h.Get)
	todos.PUT("/:id", h.Update)
	todos.DELETE("/:id", h.Delete)
	todos.OPTIONS("/:id", h.ItemOptions)

	return r
}
