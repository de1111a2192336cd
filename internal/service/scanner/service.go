package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/notify-engine/internal/lifecycle"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// DueTrigger is one (subject, trigger) pair owed a message today.
// Membership is set only for expiry triggers.
type DueTrigger struct {
	Client     *model.Client
	Membership *model.Membership
	Trigger    model.TriggerType
	Date       time.Time
}

// Service decides what is due. It deliberately never consults the trigger
// ledger; deduplication against already-sent messages belongs to the
// dispatch worker.
type Service struct {
	clients     repository.ClientRepository
	memberships repository.MembershipRepository
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewService(clients repository.ClientRepository, memberships repository.MembershipRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		clients:     clients,
		memberships: memberships,
		logger:      logger,
		metrics:     metrics,
	}
}

// ScanBirthdays emits a birthday trigger for every active client whose
// birthday falls on today, ignoring the year.
func (s *Service) ScanBirthdays(ctx context.Context, today time.Time) ([]DueTrigger, error) {
	timer := prometheus.NewTimer(s.metrics.ScanDuration)
	defer timer.ObserveDuration()

	clients, err := s.clients.FindWithBirthdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients with birthdate: %w", err)
	}

	today = lifecycle.DateOf(today)
	var due []DueTrigger
	skipped := 0
	for _, client := range clients {
		if client.DateOfBirth == nil {
			continue
		}
		if !lifecycle.IsBirthday(*client.DateOfBirth, today) {
			continue
		}
		if _, ok := client.PreferredContact(); !ok {
			skipped++
			s.logger.Warn("skipping client with no contact address",
				"client_id", client.ID.String(), "trigger", string(model.TriggerBirthday))
			continue
		}
		due = append(due, DueTrigger{
			Client:  client,
			Trigger: model.TriggerBirthday,
			Date:    today,
		})
		s.metrics.TriggersScanned.WithLabelValues(string(model.TriggerBirthday)).Inc()
	}

	if skipped > 0 {
		s.metrics.SubjectsSkipped.Add(float64(skipped))
	}
	s.logger.Info("birthday scan complete", "due", len(due), "skipped", skipped)
	return due, nil
}

// ScanExpiries emits expiry triggers for memberships whose end date sits at
// exactly +3, 0 or -3 days from today. Stored statuses narrow the query but
// every row is re-classified against today before the offset check, so a
// stale status cache cannot produce a wrong trigger.
func (s *Service) ScanExpiries(ctx context.Context, today time.Time) ([]DueTrigger, error) {
	timer := prometheus.NewTimer(s.metrics.ScanDuration)
	defer timer.ObserveDuration()

	rows, err := s.memberships.FindByStatuses(ctx, []model.MembershipStatus{
		model.MembershipStatusActive,
		model.MembershipStatusExpiringSoon,
		model.MembershipStatusExpired,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}

	today = lifecycle.DateOf(today)
	var due []DueTrigger
	skipped := 0
	for _, row := range rows {
		status := lifecycle.Classify(row.StartDate, row.EndDate, today)
		if status == model.MembershipStatusUpcoming {
			continue
		}

		trigger, ok := lifecycle.ExpiryTrigger(row.EndDate, today)
		if !ok {
			continue
		}

		client := row.Client
		if _, ok := client.PreferredContact(); !ok {
			skipped++
			s.logger.Warn("skipping client with no contact address",
				"client_id", client.ID.String(), "trigger", string(trigger))
			continue
		}

		membership := row.Membership
		due = append(due, DueTrigger{
			Client:     &client,
			Membership: &membership,
			Trigger:    trigger,
			Date:       today,
		})
		s.metrics.TriggersScanned.WithLabelValues(string(trigger)).Inc()
	}

	if skipped > 0 {
		s.metrics.SubjectsSkipped.Add(float64(skipped))
	}
	s.logger.Info("expiry scan complete", "due", len(due), "skipped", skipped)
	return due, nil
}

// Scan runs both scans and concatenates their results, birthdays first.
func (s *Service) Scan(ctx context.Context, today time.Time) ([]DueTrigger, error) {
	birthdays, err := s.ScanBirthdays(ctx, today)
	if err != nil {
		return nil, err
	}
	expiries, err := s.ScanExpiries(ctx, today)
	if err != nil {
		return nil, err
	}
	return append(birthdays, expiries...), nil
}
