package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

type fakeClientRepo struct {
	clients []*model.Client
}

func (f *fakeClientRepo) Create(context.Context, *model.Client) error { return nil }
func (f *fakeClientRepo) Update(context.Context, *model.Client) error { return nil }
func (f *fakeClientRepo) Delete(context.Context, uuid.UUID) error     { return nil }
func (f *fakeClientRepo) Get(context.Context, uuid.UUID) (*model.Client, error) {
	return nil, nil
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
	rows []*model.MembershipWithClient
}

func (f *fakeMembershipRepo) Create(context.Context, *model.Membership) error { return nil }
func (f *fakeMembershipRepo) Update(context.Context, *model.Membership) error { return nil }
func (f *fakeMembershipRepo) Get(context.Context, uuid.UUID) (*model.Membership, error) {
	return nil, nil
}
func (f *fakeMembershipRepo) ListByClient(context.Context, uuid.UUID) ([]*model.Membership, error) {
	return nil, nil
}
func (f *fakeMembershipRepo) FindByStatuses(_ context.Context, statuses []model.MembershipStatus) ([]*model.MembershipWithClient, error) {
	allowed := make(map[model.MembershipStatus]bool)
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []*model.MembershipWithClient
	for _, row := range f.rows {
		if allowed[row.Status] {
			out = append(out, row)
		}
	}
	return out, nil
}
func (f *fakeMembershipRepo) RefreshStatuses(context.Context, time.Time) (int64, error) {
	return 0, nil
}

var (
	_ repository.ClientRepository     = (*fakeClientRepo)(nil)
	_ repository.MembershipRepository = (*fakeMembershipRepo)(nil)
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clientWithBirthday(dob time.Time) *model.Client {
	return &model.Client{
		Base:        model.Base{ID: uuid.New()},
		Name:        "Test Client",
		WhatsApp:    "+911234567890",
		Status:      model.ClientStatusActive,
		DateOfBirth: &dob,
	}
}

func membershipRow(end time.Time, status model.MembershipStatus) *model.MembershipWithClient {
	clientID := uuid.New()
	return &model.MembershipWithClient{
		Membership: model.Membership{
			Base:      model.Base{ID: uuid.New()},
			ClientID:  clientID,
			PlanName:  "Gold",
			StartDate: end.AddDate(0, -1, 0),
			EndDate:   end,
			Status:    status,
		},
		Client: model.Client{
			Base:     model.Base{ID: clientID},
			Name:     "Member",
			WhatsApp: "+911234567890",
			Status:   model.ClientStatusActive,
		},
	}
}

func newScanner(clients *fakeClientRepo, memberships *fakeMembershipRepo) *Service {
	return NewService(clients, memberships, logger.NewLogger(nil), metrics.New("scanner_test"))
}

func TestScanBirthdaysMatch(t *testing.T) {
	today := date(2024, 7, 4)
	match := clientWithBirthday(date(1990, 7, 4))
	noMatch := clientWithBirthday(date(1990, 7, 5))

	svc := newScanner(&fakeClientRepo{clients: []*model.Client{match, noMatch}}, &fakeMembershipRepo{})

	due, err := svc.ScanBirthdays(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, match.ID, due[0].Client.ID)
	assert.Equal(t, model.TriggerBirthday, due[0].Trigger)
	assert.Equal(t, today, due[0].Date)
}

func TestScanBirthdaysSkipsClientWithoutContact(t *testing.T) {
	today := date(2024, 7, 4)
	unreachable := clientWithBirthday(date(1990, 7, 4))
	unreachable.WhatsApp = ""
	unreachable.Phone = ""
	unreachable.Email = ""

	svc := newScanner(&fakeClientRepo{clients: []*model.Client{unreachable}}, &fakeMembershipRepo{})

	due, err := svc.ScanBirthdays(context.Background(), today)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestScanExpiriesThresholds(t *testing.T) {
	today := date(2024, 7, 4)

	tests := []struct {
		name    string
		end     time.Time
		status  model.MembershipStatus
		trigger model.TriggerType
		due     bool
	}{
		{"ends in 3 days", date(2024, 7, 7), model.MembershipStatusActive, model.TriggerExpiryBefore, true},
		{"ends today", date(2024, 7, 4), model.MembershipStatusExpiringSoon, model.TriggerExpiryOn, true},
		{"ended 3 days ago", date(2024, 7, 1), model.MembershipStatusExpired, model.TriggerExpiryAfter, true},
		{"ends in 4 days", date(2024, 7, 8), model.MembershipStatusActive, "", false},
		{"ends in 2 days", date(2024, 7, 6), model.MembershipStatusExpiringSoon, "", false},
		{"ends in 1 day", date(2024, 7, 5), model.MembershipStatusExpiringSoon, "", false},
		{"ended 2 days ago", date(2024, 7, 2), model.MembershipStatusExpired, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newScanner(&fakeClientRepo{}, &fakeMembershipRepo{
				rows: []*model.MembershipWithClient{membershipRow(tt.end, tt.status)},
			})

			due, err := svc.ScanExpiries(context.Background(), today)
			require.NoError(t, err)
			if !tt.due {
				assert.Empty(t, due)
				return
			}
			require.Len(t, due, 1)
			assert.Equal(t, tt.trigger, due[0].Trigger)
			require.NotNil(t, due[0].Membership)
			assert.Equal(t, tt.end, due[0].Membership.EndDate)
		})
	}
}

// Walking one membership through the calendar: before-reminder at end-3,
// silence in between, on-reminder at the end date, after-reminder 3 days
// past it.
func TestScanExpiriesSequence(t *testing.T) {
	end := date(2024, 7, 7)
	row := membershipRow(end, model.MembershipStatusActive)
	svc := newScanner(&fakeClientRepo{}, &fakeMembershipRepo{rows: []*model.MembershipWithClient{row}})

	expected := map[string]model.TriggerType{
		"2024-07-04": model.TriggerExpiryBefore,
		"2024-07-07": model.TriggerExpiryOn,
		"2024-07-10": model.TriggerExpiryAfter,
	}

	for day := date(2024, 7, 4); !day.After(date(2024, 7, 10)); day = day.AddDate(0, 0, 1) {
		due, err := svc.ScanExpiries(context.Background(), day)
		require.NoError(t, err)

		trigger, want := expected[day.Format(time.DateOnly)]
		if !want {
			assert.Empty(t, due, "day %s", day.Format(time.DateOnly))
			continue
		}
		require.Len(t, due, 1, "day %s", day.Format(time.DateOnly))
		assert.Equal(t, trigger, due[0].Trigger)
	}
}

// A stored status is only a cache: a row still marked active whose end date
// has already passed must classify as expired, not produce a stale trigger.
func TestScanExpiriesStaleStatus(t *testing.T) {
	today := date(2024, 7, 4)
	row := membershipRow(date(2024, 6, 20), model.MembershipStatusActive)
	svc := newScanner(&fakeClientRepo{}, &fakeMembershipRepo{rows: []*model.MembershipWithClient{row}})

	due, err := svc.ScanExpiries(context.Background(), today)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestScanCombinesBirthdaysAndExpiries(t *testing.T) {
	today := date(2024, 7, 4)
	birthday := clientWithBirthday(date(1990, 7, 4))
	expiring := membershipRow(date(2024, 7, 7), model.MembershipStatusActive)

	svc := newScanner(
		&fakeClientRepo{clients: []*model.Client{birthday}},
		&fakeMembershipRepo{rows: []*model.MembershipWithClient{expiring}},
	)

	due, err := svc.Scan(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, model.TriggerBirthday, due[0].Trigger)
	assert.Equal(t, model.TriggerExpiryBefore, due[1].Trigger)
}
