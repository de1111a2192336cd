package automation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/notify-engine/internal/lifecycle"
	"github.com/jwalitptl/notify-engine/internal/messenger"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/internal/service/scanner"
	"github.com/jwalitptl/notify-engine/internal/service/template"
	"github.com/jwalitptl/notify-engine/pkg/errors"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// ErrAlreadyRunning is returned when a run is requested while one is in
// flight. The request is rejected immediately, never queued.
var ErrAlreadyRunning = errors.Conflict("automation run already in progress", nil)

// Scanner decides what is due; see the scanner package.
type Scanner interface {
	ScanBirthdays(ctx context.Context, today time.Time) ([]scanner.DueTrigger, error)
	ScanExpiries(ctx context.Context, today time.Time) ([]scanner.DueTrigger, error)
}

// Dispatcher sends the jobs a phase produced.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []model.DispatchJob) []*model.DispatchResult
}

// CampaignRunner claims and runs due scheduled campaigns.
type CampaignRunner interface {
	RunDue(ctx context.Context, now time.Time)
}

// RunSummary is the best-effort completion report of one automation cycle.
// Per-recipient detail lives in the dispatch log, not here.
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Today      string    `json:"today"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
}

// Service sequences one automation cycle: birthday scan+dispatch, expiry
// scan+dispatch, then due campaigns, in that fixed order. The idle/running
// state is the only concurrency primitive; there is at most one run in
// flight per process.
type Service struct {
	scanner     Scanner
	templates   *template.Service
	dispatcher  Dispatcher
	campaigns   CampaignRunner
	memberships repository.MembershipRepository
	msgr        messenger.Messenger
	broker      messaging.Broker
	logger      *logger.Logger
	metrics     *metrics.Metrics

	running atomic.Bool
	mu      sync.Mutex
	lastRun *RunSummary

	// now is swappable for tests
	now func() time.Time
}

func NewService(
	scn Scanner,
	templates *template.Service,
	dispatcher Dispatcher,
	campaigns CampaignRunner,
	memberships repository.MembershipRepository,
	msgr messenger.Messenger,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		scanner:     scn,
		templates:   templates,
		dispatcher:  dispatcher,
		campaigns:   campaigns,
		memberships: memberships,
		msgr:        msgr,
		broker:      broker,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Run executes one full automation cycle. It returns ErrAlreadyRunning if a
// cycle is in flight, a configuration error if the transport is unusable,
// and nil otherwise; individual job failures are recorded as dispatch
// results, not surfaced here.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.RunsRejected.Inc()
		s.logger.Warn("automation run rejected, already running")
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.msgr == nil || !s.msgr.Configured() {
		s.metrics.AutomationRuns.WithLabelValues("config_error").Inc()
		return fmt.Errorf("message transport is not configured")
	}

	timer := prometheus.NewTimer(s.metrics.AutomationRunDuration)
	defer timer.ObserveDuration()

	started := s.now()
	today := lifecycle.DateOf(started)
	summary := &RunSummary{
		StartedAt: started,
		Today:     today.Format(time.DateOnly),
	}
	s.logger.Info("automation run started", "today", summary.Today)

	// Stored membership statuses are a cache of classify(start, end, today);
	// bring them current before scanning. A failure here only widens the
	// scan window, it does not block the run.
	if _, err := s.memberships.RefreshStatuses(ctx, today); err != nil {
		s.logger.Error(err, "failed to refresh membership statuses")
	}

	// Phases are independent: an error in one is logged and the next still
	// runs.
	s.runScanPhase(ctx, "birthday", today, summary, s.scanner.ScanBirthdays)
	s.runScanPhase(ctx, "expiry", today, summary, s.scanner.ScanExpiries)
	s.campaigns.RunDue(ctx, started)

	summary.FinishedAt = s.now()
	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	s.metrics.AutomationRuns.WithLabelValues("completed").Inc()
	s.logger.Info("automation run completed",
		"sent", summary.Sent, "failed", summary.Failed,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).String())

	if s.broker != nil {
		event := messaging.Message{Type: "automation.completed", Payload: summary}
		if err := s.broker.Publish(ctx, "automation.completed", event); err != nil {
			s.logger.Warn("failed to publish run completion event", "error", err.Error())
		}
	}

	return nil
}

// Status reports whether a run is in flight plus the last completed
// summary.
func (s *Service) Status() (string, *RunSummary) {
	state := "idle"
	if s.running.Load() {
		state = "running"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return state, s.lastRun
}

type scanFunc func(ctx context.Context, today time.Time) ([]scanner.DueTrigger, error)

func (s *Service) runScanPhase(ctx context.Context, phase string, today time.Time, summary *RunSummary, scan scanFunc) {
	due, err := scan(ctx, today)
	if err != nil {
		s.logger.Error(err, "scan phase failed", "phase", phase)
		return
	}
	if len(due) == 0 {
		return
	}

	jobs := make([]model.DispatchJob, 0, len(due))
	for _, trigger := range due {
		jobs = append(jobs, s.buildJob(ctx, trigger, today))
	}

	results := s.dispatcher.Dispatch(ctx, jobs)
	for _, result := range results {
		if result.Status == model.DispatchStatusSent {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	s.logger.Info("phase complete", "phase", phase, "jobs", len(jobs), "results", len(results))
}

func (s *Service) buildJob(ctx context.Context, due scanner.DueTrigger, today time.Time) model.DispatchJob {
	body := s.templates.BodyForTrigger(ctx, due.Client.OrganizationID, due.Trigger)

	extra := map[string]string{}
	if due.Membership != nil {
		extra["plan"] = due.Membership.PlanName
		extra["start_date"] = lifecycle.DateOf(due.Membership.StartDate).Format(time.DateOnly)
		extra["end_date"] = lifecycle.DateOf(due.Membership.EndDate).Format(time.DateOnly)
		extra["days_left"] = strconv.Itoa(lifecycle.DaysBetween(today, due.Membership.EndDate))
	}

	return model.DispatchJob{
		OrganizationID: due.Client.OrganizationID,
		Client:         due.Client,
		Body:           template.Render(body, due.Client, extra),
		Trigger:        due.Trigger,
		TriggerDate:    due.Date,
	}
}
