package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/store/memstore"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCheckIn(ctx context.Context, evt models.CheckInEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func setupTestCheckInService(t *testing.T) (*CheckInService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	require.NoError(t, store.CreateRegistration(context.Background(), &models.Registration{
		EventID:    "E1",
		UserID:     "U1",
		Name:       "Meera Iyer",
		Email:      "meera@example.edu",
		TicketCode: "T-1",
	}))
	return NewCheckInService(store, nil, monitoring.NewMonitor()), store
}

func TestCheckInService_SuccessThenDuplicate(t *testing.T) {
	service, store := setupTestCheckInService(t)
	t1 := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return t1 })
	ctx := context.Background()

	first, err := service.CheckIn(ctx, models.CheckInRequest{EventID: "E1", UserID: "U1", ScannedBy: "usr_staff"})
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, models.CheckInCodeSuccess, first.Code)
	require.NotNil(t, first.Data)
	assert.Equal(t, "Meera Iyer", first.Data.Name)
	assert.Equal(t, "meera@example.edu", first.Data.Email)
	assert.Equal(t, t1, first.Data.CheckedInAt)

	store.SetClock(func() time.Time { return t1.Add(5 * time.Second) })
	second, err := service.CheckIn(ctx, models.CheckInRequest{EventID: "E1", UserID: "U1"})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, models.CheckInCodeAlreadyCheckedIn, second.Code)
	assert.Contains(t, second.Message, "already")
	require.NotNil(t, second.Data)
	assert.Equal(t, t1, second.Data.CheckedInAt)
}

func TestCheckInService_Idempotence(t *testing.T) {
	service, _ := setupTestCheckInService(t)
	ctx := context.Background()

	var successes, duplicates int
	var stamps []time.Time
	for i := 0; i < 5; i++ {
		res, err := service.CheckIn(ctx, models.CheckInRequest{EventID: "E1", UserID: "U1"})
		require.NoError(t, err)
		if res.Success {
			successes++
		} else {
			assert.Equal(t, models.CheckInCodeAlreadyCheckedIn, res.Code)
			duplicates++
		}
		stamps = append(stamps, res.Data.CheckedInAt)
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 4, duplicates)
	for _, ts := range stamps {
		assert.Equal(t, stamps[0], ts)
	}
}

func TestCheckInService_UnknownTicket(t *testing.T) {
	service, store := setupTestCheckInService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		eventID string
		userID  string
	}{
		{"Unknown user", "E1", "unknown-user"},
		{"Valid user under another event", "E2", "U1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := service.CheckIn(ctx, models.CheckInRequest{EventID: tt.eventID, UserID: tt.userID})
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, models.CheckInCodeNotFound, res.Code)
			assert.Equal(t, "Invalid ticket", res.Message)
			assert.Nil(t, res.Data)
		})
	}

	regs, err := store.ListRegistrations(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.False(t, regs[0].CheckedIn, "rejected scans never mutate the store")
	assert.Nil(t, regs[0].CheckedInAt)
}

func TestCheckInService_InvalidInput(t *testing.T) {
	service, _ := setupTestCheckInService(t)

	_, err := service.CheckIn(context.Background(), models.CheckInRequest{EventID: " ", UserID: "U1"})
	assert.ErrorIs(t, err, status.ErrInvalidInput)

	_, err = service.CheckIn(context.Background(), models.CheckInRequest{EventID: "E1"})
	assert.ErrorIs(t, err, status.ErrInvalidInput)
}

func TestCheckInService_StoreFailureIsTransient(t *testing.T) {
	service, store := setupTestCheckInService(t)
	store.FailWith = errors.New("connection reset by peer")

	res, err := service.CheckIn(context.Background(), models.CheckInRequest{EventID: "E1", UserID: "U1"})

	assert.Nil(t, res, "a transient failure is never reported as a ticket outcome")
	assert.ErrorIs(t, err, status.ErrTransient)
	assert.NotErrorIs(t, err, status.ErrNotFound)
}

func TestCheckInService_ConcurrentStations(t *testing.T) {
	service, _ := setupTestCheckInService(t)

	const stations = 2
	results := make([]*models.CheckInResult, stations)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < stations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := service.CheckIn(context.Background(), models.CheckInRequest{EventID: "E1", UserID: "U1"})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	close(start)
	wg.Wait()

	var successes, duplicates int
	for _, res := range results {
		if res.Success {
			successes++
		} else if res.Code == models.CheckInCodeAlreadyCheckedIn {
			duplicates++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, duplicates)
}

func TestCheckInService_PublishesOnlySuccess(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.CreateRegistration(context.Background(), &models.Registration{
		EventID: "E1", UserID: "U1", Name: "Meera Iyer", Email: "meera@example.edu", TicketCode: "T-1",
	}))

	pub := new(MockPublisher)
	pub.On("PublishCheckIn", mock.Anything, mock.MatchedBy(func(evt models.CheckInEvent) bool {
		return evt.Type == "checkin" && evt.EventID == "E1" && evt.UserID == "U1" && evt.Name == "Meera Iyer"
	})).Return(errors.New("pubnub unavailable")).Once()

	service := NewCheckInService(store, pub, monitoring.NewMonitor())

	res, err := service.CheckIn(context.Background(), models.CheckInRequest{EventID: "E1", UserID: "U1"})
	require.NoError(t, err)
	assert.True(t, res.Success, "publish failures do not affect the check-in result")

	_, err = service.CheckIn(context.Background(), models.CheckInRequest{EventID: "E1", UserID: "U1"})
	require.NoError(t, err)

	pub.AssertExpectations(t)
	pub.AssertNumberOfCalls(t, "PublishCheckIn", 1)
}
