package dispatchlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

// Handler exposes the append-only dispatch log for inspection. There are no
// write endpoints; results are written by the dispatch worker only.
type Handler struct {
	repo repository.DispatchLogRepository
}

func NewHandler(repo repository.DispatchLogRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dispatch-log", h.List)
}

func (h *Handler) List(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid organization ID"))
		return
	}

	filters := &model.DispatchResultFilters{OrganizationID: orgID}

	if raw := c.Query("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
			return
		}
		filters.ClientID = &clientID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.DispatchStatus(status)
	}
	if trigger := c.Query("trigger_type"); trigger != "" {
		filters.TriggerType = model.TriggerType(trigger)
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid since date, expected YYYY-MM-DD"))
			return
		}
		filters.Since = &since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		filters.Limit = limit
	}

	results, err := h.repo.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(results))
}
