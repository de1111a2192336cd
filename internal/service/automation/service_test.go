package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/lifecycle"
	"github.com/jwalitptl/notify-engine/internal/messenger"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/service/dispatch"
	"github.com/jwalitptl/notify-engine/internal/service/scanner"
	"github.com/jwalitptl/notify-engine/internal/service/template"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// ---- fakes ----

type fakeClientRepo struct {
	clients []*model.Client
}

func (f *fakeClientRepo) Create(context.Context, *model.Client) error { return nil }
func (f *fakeClientRepo) Update(context.Context, *model.Client) error { return nil }
func (f *fakeClientRepo) Delete(context.Context, uuid.UUID) error     { return nil }
func (f *fakeClientRepo) Get(context.Context, uuid.UUID) (*model.Client, error) {
	return nil, fmt.Errorf("not found")
}
func (f *fakeClientRepo) List(context.Context, *model.ClientFilters) ([]*model.Client, error) {
	return f.clients, nil
}
func (f *fakeClientRepo) FindWithBirthdate(context.Context) ([]*model.Client, error) {
	var out []*model.Client
	for _, c := range f.clients {
		if c.DateOfBirth != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeMembershipRepo struct {
	rows      []*model.MembershipWithClient
	refreshed int
}

func (f *fakeMembershipRepo) Create(context.Context, *model.Membership) error { return nil }
func (f *fakeMembershipRepo) Update(context.Context, *model.Membership) error { return nil }
func (f *fakeMembershipRepo) Get(context.Context, uuid.UUID) (*model.Membership, error) {
	return nil, fmt.Errorf("not found")
}
func (f *fakeMembershipRepo) ListByClient(context.Context, uuid.UUID) ([]*model.Membership, error) {
	return nil, nil
}
func (f *fakeMembershipRepo) FindByStatuses(context.Context, []model.MembershipStatus) ([]*model.MembershipWithClient, error) {
	return f.rows, nil
}
func (f *fakeMembershipRepo) RefreshStatuses(context.Context, time.Time) (int64, error) {
	f.refreshed++
	return int64(len(f.rows)), nil
}

type fakeTemplateRepo struct{}

func (fakeTemplateRepo) Create(context.Context, *model.MessageTemplate) error { return nil }
func (fakeTemplateRepo) Get(context.Context, uuid.UUID, string) (*model.MessageTemplate, error) {
	return nil, fmt.Errorf("no tenant template")
}
func (fakeTemplateRepo) GetByID(context.Context, uuid.UUID) (*model.MessageTemplate, error) {
	return nil, fmt.Errorf("not found")
}
func (fakeTemplateRepo) List(context.Context, uuid.UUID) ([]*model.MessageTemplate, error) {
	return nil, nil
}
func (fakeTemplateRepo) Update(context.Context, *model.MessageTemplate) error { return nil }
func (fakeTemplateRepo) Delete(context.Context, uuid.UUID) error              { return nil }

type memoryLedger struct {
	mu    sync.Mutex
	fired map[string]bool
}

func newMemoryLedger() *memoryLedger { return &memoryLedger{fired: make(map[string]bool)} }

func (l *memoryLedger) key(id uuid.UUID, tr model.TriggerType, d time.Time) string {
	return fmt.Sprintf("%s|%s|%s", id, tr, lifecycle.DateOf(d).Format(time.DateOnly))
}

func (l *memoryLedger) HasFired(_ context.Context, id uuid.UUID, tr model.TriggerType, d time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired[l.key(id, tr, d)], nil
}

func (l *memoryLedger) MarkFired(_ context.Context, id uuid.UUID, tr model.TriggerType, d time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired[l.key(id, tr, d)] = true
	return nil
}

type memoryDispatchLog struct {
	mu      sync.Mutex
	results []*model.DispatchResult
}

func (m *memoryDispatchLog) Create(_ context.Context, r *model.DispatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}
func (m *memoryDispatchLog) List(context.Context, *model.DispatchResultFilters) ([]*model.DispatchResult, error) {
	return m.results, nil
}
func (m *memoryDispatchLog) Cleanup(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memoryDispatchLog) countSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.results {
		if r.Status == model.DispatchStatusSent {
			n++
		}
	}
	return n
}

type fakeMessenger struct {
	mu         sync.Mutex
	sent       []string
	configured bool
	block      chan struct{}
}

func (f *fakeMessenger) Send(_ context.Context, _ model.Channel, address string, _ messenger.Message) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, address)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeMessenger) Configured() bool { return f.configured }

type fakeCampaigns struct {
	runs int
}

func (f *fakeCampaigns) RunDue(context.Context, time.Time) { f.runs++ }

type fakeBroker struct {
	published []messaging.Message
}

func (f *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if event, ok := message.(messaging.Message); ok {
		f.published = append(f.published, event)
	}
	return nil
}

func (f *fakeBroker) Close() error { return nil }

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

type failingScanner struct {
	expiries []scanner.DueTrigger
}

func (failingScanner) ScanBirthdays(context.Context, time.Time) ([]scanner.DueTrigger, error) {
	return nil, errors.New("birthday scan exploded")
}
func (f failingScanner) ScanExpiries(context.Context, time.Time) ([]scanner.DueTrigger, error) {
	return f.expiries, nil
}

// ---- fixture ----

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc       *Service
	msgr      *fakeMessenger
	log       *memoryDispatchLog
	ledger    *memoryLedger
	members   *fakeMembershipRepo
	campaigns *fakeCampaigns
	broker    *fakeBroker
}

func newFixture(t *testing.T, today time.Time, clients []*model.Client, rows []*model.MembershipWithClient) *fixture {
	t.Helper()
	lg := logger.NewLogger(nil)
	mtr := metrics.New("automation_test")

	clientRepo := &fakeClientRepo{clients: clients}
	membershipRepo := &fakeMembershipRepo{rows: rows}
	scn := scanner.NewService(clientRepo, membershipRepo, lg, mtr)
	templates := template.NewService(fakeTemplateRepo{}, lg)

	ledger := newMemoryLedger()
	log := &memoryDispatchLog{}
	msgr := &fakeMessenger{configured: true}
	dispatcher := dispatch.NewService(ledger, log, msgr, time.Millisecond, lg, mtr)
	campaigns := &fakeCampaigns{}
	broker := &fakeBroker{}

	svc := NewService(scn, templates, dispatcher, campaigns, membershipRepo, msgr, broker, lg, mtr)
	svc.now = func() time.Time { return today }

	return &fixture{
		svc:       svc,
		msgr:      msgr,
		log:       log,
		ledger:    ledger,
		members:   membershipRepo,
		campaigns: campaigns,
		broker:    broker,
	}
}

func birthdayClient(dob time.Time) *model.Client {
	return &model.Client{
		Base:           model.Base{ID: uuid.New()},
		OrganizationID: uuid.New(),
		Name:           "Asha",
		WhatsApp:       "+911234567890",
		Status:         model.ClientStatusActive,
		DateOfBirth:    &dob,
	}
}

// ---- tests ----

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	today := date(2024, 7, 4)
	f := newFixture(t, today, []*model.Client{birthdayClient(date(1990, 7, 4))}, nil)
	f.msgr.block = make(chan struct{})

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- f.svc.Run(context.Background())
	}()

	<-started
	// wait until the first run is inside the dispatch loop
	require.Eventually(t, func() bool {
		state, _ := f.svc.Status()
		return state == "running"
	}, time.Second, time.Millisecond)

	err := f.svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(f.msgr.block)
	require.NoError(t, <-done)

	state, _ := f.svc.Status()
	assert.Equal(t, "idle", state)
}

func TestRunFailsFastWhenTransportUnconfigured(t *testing.T) {
	f := newFixture(t, date(2024, 7, 4), nil, nil)
	f.msgr.configured = false

	err := f.svc.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, 0, f.campaigns.runs, "no phase runs on a config error")
}

func TestRunSendsBirthdayAndExpiry(t *testing.T) {
	today := date(2024, 7, 4)
	client := birthdayClient(date(1990, 7, 4))

	memberID := uuid.New()
	row := &model.MembershipWithClient{
		Membership: model.Membership{
			Base:      model.Base{ID: uuid.New()},
			ClientID:  memberID,
			PlanName:  "Gold",
			StartDate: date(2024, 6, 1),
			EndDate:   date(2024, 7, 7),
			Status:    model.MembershipStatusActive,
		},
		Client: model.Client{
			Base:           model.Base{ID: memberID},
			OrganizationID: uuid.New(),
			Name:           "Ravi",
			WhatsApp:       "+919999999999",
			Status:         model.ClientStatusActive,
		},
	}

	f := newFixture(t, today, []*model.Client{client}, []*model.MembershipWithClient{row})

	require.NoError(t, f.svc.Run(context.Background()))

	assert.Equal(t, 2, f.log.countSent())
	assert.Equal(t, 1, f.members.refreshed)
	assert.Equal(t, 1, f.campaigns.runs)

	_, last := f.svc.Status()
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Sent)
	assert.Equal(t, 0, last.Failed)

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, "automation.completed", f.broker.published[0].Type)
}

// Running the full cycle twice on the same simulated day must not send the
// same trigger twice: the ledger makes the second run a no-op.
func TestRunTwiceSameDaySendsOnce(t *testing.T) {
	today := date(2024, 7, 4)
	f := newFixture(t, today, []*model.Client{birthdayClient(date(1990, 7, 4))}, nil)

	require.NoError(t, f.svc.Run(context.Background()))
	require.NoError(t, f.svc.Run(context.Background()))

	assert.Equal(t, 1, f.log.countSent())
	assert.Len(t, f.msgr.sent, 1)
}

// A failing phase must not block the phases after it.
func TestRunPhaseFailureDoesNotBlockNextPhases(t *testing.T) {
	today := date(2024, 7, 4)
	f := newFixture(t, today, nil, nil)

	expiry := scanner.DueTrigger{
		Client: &model.Client{
			Base:           model.Base{ID: uuid.New()},
			OrganizationID: uuid.New(),
			Name:           "Ravi",
			WhatsApp:       "+919999999999",
		},
		Membership: &model.Membership{PlanName: "Gold", EndDate: date(2024, 7, 7)},
		Trigger:    model.TriggerExpiryBefore,
		Date:       today,
	}
	f.svc.scanner = failingScanner{expiries: []scanner.DueTrigger{expiry}}

	require.NoError(t, f.svc.Run(context.Background()))

	assert.Equal(t, 1, f.log.countSent(), "expiry phase still ran")
	assert.Equal(t, 1, f.campaigns.runs, "campaign phase still ran")
}

func TestRenderedExpiryBodyHasMembershipFields(t *testing.T) {
	today := date(2024, 7, 4)
	memberID := uuid.New()
	row := &model.MembershipWithClient{
		Membership: model.Membership{
			Base:      model.Base{ID: uuid.New()},
			ClientID:  memberID,
			PlanName:  "Gold",
			StartDate: date(2024, 6, 1),
			EndDate:   date(2024, 7, 7),
			Status:    model.MembershipStatusActive,
		},
		Client: model.Client{
			Base:           model.Base{ID: memberID},
			OrganizationID: uuid.New(),
			Name:           "Ravi",
			WhatsApp:       "+919999999999",
			Status:         model.ClientStatusActive,
		},
	}

	f := newFixture(t, today, nil, []*model.MembershipWithClient{row})
	require.NoError(t, f.svc.Run(context.Background()))

	require.Len(t, f.log.results, 1)
	body := f.log.results[0].Body
	assert.Contains(t, body, "Ravi")
	assert.Contains(t, body, "Gold")
	assert.Contains(t, body, "2024-07-07")
}
