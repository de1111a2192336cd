package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/internal/service/template"
	"github.com/jwalitptl/notify-engine/pkg/errors"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

// Dispatcher is the slice of the dispatch worker campaigns need.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []model.DispatchJob) []*model.DispatchResult
}

// Service runs bulk campaigns: ad-hoc ones synchronously, scheduled ones
// claimed by the automation cycle. Campaigns bypass the scanner and the
// trigger ledger; they are one-shot and never retried.
type Service struct {
	repo      repository.CampaignRepository
	clients   repository.ClientRepository
	templates *template.Service
	dispatch  Dispatcher
	logger    *logger.Logger
}

func NewService(
	repo repository.CampaignRepository,
	clients repository.ClientRepository,
	templates *template.Service,
	dispatch Dispatcher,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		clients:   clients,
		templates: templates,
		dispatch:  dispatch,
		logger:    logger,
	}
}

// RunBulk sends one template to an explicit recipient list and returns one
// result per recipient, in order.
func (s *Service) RunBulk(ctx context.Context, orgID uuid.UUID, templateName string, recipients []model.CampaignRecipient) ([]*model.DispatchResult, error) {
	if len(recipients) == 0 {
		return nil, errors.BadRequest("recipient list is empty", nil)
	}

	tmpl, err := s.templates.Get(ctx, orgID, templateName)
	if err != nil {
		return nil, errors.NotFound("template", err)
	}

	jobs := make([]model.DispatchJob, 0, len(recipients))
	for _, recipient := range recipients {
		job := model.DispatchJob{
			OrganizationID: orgID,
			RawAddress:     recipient.Address,
			Channel:        recipient.Channel,
			Trigger:        model.TriggerBulkCustom,
		}

		if recipient.ClientID != nil {
			client, err := s.clients.Get(ctx, *recipient.ClientID)
			if err != nil {
				// keep the slot: the dispatcher reports it as unresolvable
				s.logger.Warn("bulk recipient client not found",
					"client_id", recipient.ClientID.String(), "error", err.Error())
			} else {
				job.Client = client
			}
		}

		job.Body = template.Render(tmpl.Body, job.Client, recipient.Fields)
		jobs = append(jobs, job)
	}

	return s.dispatch.Dispatch(ctx, jobs), nil
}

// Create persists a scheduled campaign for the automation cycle to claim
// once its scheduled time passes.
func (s *Service) Create(ctx context.Context, campaign *model.Campaign) error {
	if campaign.OrganizationID == uuid.Nil {
		return errors.BadRequest("organization ID is required", nil)
	}
	if campaign.TemplateName == "" {
		return errors.BadRequest("template name is required", nil)
	}
	if len(campaign.Recipients) == 0 {
		return errors.BadRequest("recipient list is empty", nil)
	}

	campaign.ID = uuid.New()
	campaign.Status = model.CampaignStatusPending

	if err := s.repo.Create(ctx, campaign); err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// RunDue claims every pending campaign whose schedule has passed and runs
// it. A campaign that cannot run (template deleted since scheduling) is
// marked failed and never picked up again.
func (s *Service) RunDue(ctx context.Context, now time.Time) {
	due, err := s.repo.ClaimDue(ctx, now)
	if err != nil {
		s.logger.Error(err, "failed to claim due campaigns")
		return
	}

	for _, campaign := range due {
		results, err := s.RunBulk(ctx, campaign.OrganizationID, campaign.TemplateName, campaign.Recipients)
		if err != nil {
			s.logger.Error(err, "campaign run failed", "campaign_id", campaign.ID.String())
			if updErr := s.repo.UpdateOutcome(ctx, campaign.ID, model.CampaignStatusFailed, 0, 0); updErr != nil {
				s.logger.Error(updErr, "failed to mark campaign failed", "campaign_id", campaign.ID.String())
			}
			continue
		}

		sent, failed := 0, 0
		for _, result := range results {
			if result.Status == model.DispatchStatusSent {
				sent++
			} else {
				failed++
			}
		}

		if err := s.repo.UpdateOutcome(ctx, campaign.ID, model.CampaignStatusCompleted, sent, failed); err != nil {
			s.logger.Error(err, "failed to record campaign outcome", "campaign_id", campaign.ID.String())
		}
		s.logger.Info("campaign completed",
			"campaign_id", campaign.ID.String(), "sent", sent, "failed", failed)
	}
}
