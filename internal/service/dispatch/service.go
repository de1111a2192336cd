package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/notify-engine/internal/messenger"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// Service serializes sends to the message transport. Dispatch is
// intentionally sequential: the limiter enforces a minimum gap between
// consecutive transport calls and keeps per-recipient ordering
// deterministic.
type Service struct {
	ledger    repository.TriggerLedgerRepository
	results   repository.DispatchLogRepository
	messenger messenger.Messenger
	limiter   *rate.Limiter
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	ledger repository.TriggerLedgerRepository,
	results repository.DispatchLogRepository,
	m messenger.Messenger,
	delay time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Service{
		ledger:    ledger,
		results:   results,
		messenger: m,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
		metrics:   metrics,
	}
}

// Dispatch processes jobs one at a time. A job's failure never aborts the
// batch and is never retried within the run; trigger jobs re-surface on the
// next scan if their ledger entry is still missing.
func (s *Service) Dispatch(ctx context.Context, jobs []model.DispatchJob) []*model.DispatchResult {
	results := make([]*model.DispatchResult, 0, len(jobs))

	for _, job := range jobs {
		if job.Trigger.RequiresLedger() {
			fired, err := s.ledger.HasFired(ctx, job.Client.ID, job.Trigger, job.TriggerDate)
			if err != nil {
				// With the ledger unreadable we cannot prove the send has not
				// happened; skip and let the next run pick the trigger up again.
				s.logger.Warn("ledger check failed, skipping job",
					"client_id", job.Client.ID.String(), "trigger", string(job.Trigger), "error", err.Error())
				continue
			}
			if fired {
				s.metrics.LedgerSkips.Inc()
				continue
			}
		}

		result := s.send(ctx, job)
		results = append(results, result)
		s.metrics.MessagesDispatched.WithLabelValues(string(result.TriggerType), string(result.Status)).Inc()

		if err := s.results.Create(ctx, result); err != nil {
			s.logger.Error(err, "failed to record dispatch result", "result_id", result.ID.String())
		}

		if result.Status == model.DispatchStatusSent && job.Trigger.RequiresLedger() {
			// A failed ledger write after a successful send is non-fatal: a
			// possible duplicate on the next run beats silent message loss.
			if err := s.ledger.MarkFired(ctx, job.Client.ID, job.Trigger, job.TriggerDate); err != nil {
				s.logger.Warn("failed to mark trigger fired after send",
					"client_id", job.Client.ID.String(), "trigger", string(job.Trigger), "error", err.Error())
			}
		}
	}

	return results
}

func (s *Service) send(ctx context.Context, job model.DispatchJob) *model.DispatchResult {
	result := &model.DispatchResult{
		ID:             uuid.New(),
		OrganizationID: job.OrganizationID,
		Body:           job.Body,
		TriggerType:    job.Trigger,
		CreatedAt:      time.Now(),
	}
	if job.Client != nil {
		id := job.Client.ID
		result.ClientID = &id
		if result.OrganizationID == uuid.Nil {
			result.OrganizationID = job.Client.OrganizationID
		}
	}

	channel, address, ok := resolveAddress(job)
	if !ok {
		result.Status = model.DispatchStatusFailed
		result.ErrorDetail = "no resolvable contact address"
		return result
	}
	result.Channel = channel
	result.Address = address

	if err := s.limiter.Wait(ctx); err != nil {
		result.Status = model.DispatchStatusFailed
		result.ErrorDetail = err.Error()
		return result
	}

	timer := prometheus.NewTimer(s.metrics.DispatchLatency)
	providerID, err := s.messenger.Send(ctx, channel, address, messenger.Message{Body: job.Body})
	timer.ObserveDuration()

	if err != nil {
		result.Status = model.DispatchStatusFailed
		result.ErrorDetail = err.Error()
		s.logger.Warn("transport send failed",
			"channel", string(channel), "address", address, "error", err.Error())
		return result
	}

	result.Status = model.DispatchStatusSent
	result.ProviderMessageID = providerID
	return result
}

func resolveAddress(job model.DispatchJob) (model.Channel, string, bool) {
	if job.RawAddress != "" {
		channel := job.Channel
		if channel == "" {
			channel = model.ChannelWhatsApp
		}
		return channel, job.RawAddress, true
	}
	if job.Client == nil {
		return "", "", false
	}
	contact, ok := job.Client.PreferredContact()
	if !ok {
		return "", "", false
	}
	return contact.Channel, contact.Address, true
}
