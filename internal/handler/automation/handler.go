package automation

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/service/automation"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

// Runner is the orchestrator surface the handler needs.
type Runner interface {
	Run(ctx context.Context) error
	Status() (string, *automation.RunSummary)
}

type Handler struct {
	service Runner
	logger  *logger.Logger
}

func NewHandler(service Runner, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auto := r.Group("/automation")
	{
		auto.POST("/run", h.Run)
		auto.GET("/status", h.Status)
	}
}

// Run triggers one automation cycle synchronously. A cycle already in
// flight yields 409 without starting anything.
func (h *Handler) Run(c *gin.Context) {
	if err := h.service.Run(c.Request.Context()); err != nil {
		if errors.Is(err, automation.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse("automation run already in progress"))
			return
		}
		h.logger.Error(err, "automation run failed")
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	_, summary := h.service.Status()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) Status(c *gin.Context) {
	state, lastRun := h.service.Status()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"state":    state,
		"last_run": lastRun,
	}))
}
