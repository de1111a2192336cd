package campaign

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
			switch model.Channel(fl.Field().String()) {
			case "", model.ChannelWhatsApp, model.ChannelSMS, model.ChannelEmail:
				return true
			}
			return false
		})
	}
}

// Service is the campaign surface the handler needs.
type Service interface {
	RunBulk(ctx context.Context, orgID uuid.UUID, templateName string, recipients []model.CampaignRecipient) ([]*model.DispatchResult, error)
	Create(ctx context.Context, campaign *model.Campaign) error
	Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
}

type Handler struct {
	service Service
	logger  *logger.Logger
}

func NewHandler(service Service, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	campaigns := r.Group("/campaigns")
	{
		campaigns.POST("/bulk", h.RunBulk)
		campaigns.POST("", h.Create)
		campaigns.GET("/:id", h.Get)
	}
}

type bulkRequest struct {
	OrganizationID string                    `json:"organization_id" binding:"required,uuid"`
	TemplateName   string                    `json:"template_name" binding:"required"`
	Recipients     []model.CampaignRecipient `json:"recipients" binding:"required,min=1,dive"`
}

// RunBulk sends a template to an explicit recipient list synchronously and
// returns one result per recipient, in request order.
func (h *Handler) RunBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid organization ID"))
		return
	}

	results, err := h.service.RunBulk(c.Request.Context(), orgID, req.TemplateName, req.Recipients)
	if err != nil {
		h.logger.Error(err, "bulk campaign failed")
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(results))
}

type createRequest struct {
	OrganizationID string                    `json:"organization_id" binding:"required,uuid"`
	Name           string                    `json:"name" binding:"required"`
	TemplateName   string                    `json:"template_name" binding:"required"`
	Recipients     []model.CampaignRecipient `json:"recipients" binding:"required,min=1,dive"`
	ScheduledAt    *time.Time                `json:"scheduled_at" binding:"required"`
}

// Create schedules a campaign; the next automation cycle after ScheduledAt
// picks it up.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid organization ID"))
		return
	}

	cmp := &model.Campaign{
		OrganizationID: orgID,
		Name:           req.Name,
		TemplateName:   req.TemplateName,
		Recipients:     req.Recipients,
		ScheduledAt:    req.ScheduledAt,
	}
	if err := h.service.Create(c.Request.Context(), cmp); err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cmp))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid campaign ID"))
		return
	}

	cmp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cmp))
}
