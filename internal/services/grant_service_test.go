package services

import (
	"context"
	"errors"
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

func setupTestGrantService(now time.Time) (*GrantService, *memstore.Store) {
	store := memstore.New()
	service := NewGrantService(store, 48*time.Hour, monitoring.NewMonitor())
	service.now = func() time.Time { return now }
	return service, store
}

func TestGrantService_GenerateAndValidate(t *testing.T) {
	issued := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	service, _ := setupTestGrantService(issued)
	ctx := context.Background()

	grant, err := service.GenerateGrant(ctx, "E1", "usr_owner", "volunteer@example.edu")
	require.NoError(t, err)
	assert.Len(t, grant.Token, 64)
	assert.Equal(t, issued.Add(48*time.Hour), grant.ExpiresAt)

	v := service.ValidateGrant(ctx, grant.Token, "E1")
	assert.True(t, v.Valid)
	assert.Empty(t, v.Reason)
	assert.NoError(t, service.Authorize(ctx, grant.Token, "E1"))
}

func TestGrantService_TokensAreUnique(t *testing.T) {
	service, _ := setupTestGrantService(time.Now())

	a, err := service.GenerateGrant(context.Background(), "E1", "usr_owner", "")
	require.NoError(t, err)
	b, err := service.GenerateGrant(context.Background(), "E1", "usr_owner", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestGrantService_StoresOnlyDigest(t *testing.T) {
	service, store := setupTestGrantService(time.Now())

	grant, err := service.GenerateGrant(context.Background(), "E1", "usr_owner", "")
	require.NoError(t, err)

	_, err = store.FindGrant(context.Background(), grant.Token, "E1")
	assert.ErrorIs(t, err, status.ErrNotFound, "raw token is not a lookup key")

	stored, err := store.FindGrant(context.Background(), HashGrantToken(grant.Token), "E1")
	require.NoError(t, err)
	assert.Equal(t, "usr_owner", stored.GrantedBy)
}

func TestGrantService_RejectionsAreUniform(t *testing.T) {
	issued := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	service, _ := setupTestGrantService(issued)
	ctx := context.Background()

	grant, err := service.GenerateGrant(ctx, "E1", "usr_owner", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		eventID string
		at      time.Time
	}{
		{"Unknown token", "deadbeef", "E1", issued},
		{"Empty token", "", "E1", issued},
		{"Other event", grant.Token, "E2", issued},
		{"Expired", grant.Token, "E1", issued.Add(48*time.Hour + time.Second)},
		{"Expiry instant", grant.Token, "E1", issued.Add(48 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service.now = func() time.Time { return tt.at }

			v := service.ValidateGrant(ctx, tt.token, tt.eventID)
			assert.Equal(t, models.GrantValidation{Valid: false, Reason: "invalid or expired"}, v)
			assert.ErrorIs(t, service.Authorize(ctx, tt.token, tt.eventID), status.ErrInvalidGrant)
		})
	}
}

func TestGrantService_GenerateValidation(t *testing.T) {
	service, _ := setupTestGrantService(time.Now())

	_, err := service.GenerateGrant(context.Background(), "", "usr_owner", "")
	assert.ErrorIs(t, err, status.ErrInvalidInput)

	_, err = service.GenerateGrant(context.Background(), "E1", "", "")
	assert.ErrorIs(t, err, status.ErrInvalidInput)

	_, err = service.GenerateGrant(context.Background(), "E1", "usr_owner", "not-an-email")
	assert.ErrorIs(t, err, status.ErrInvalidInput)
}

type MockGrantStore struct {
	mock.Mock
}

func (m *MockGrantStore) SaveGrant(ctx context.Context, g *models.AccessGrant) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockGrantStore) FindGrant(ctx context.Context, tokenHash, eventID string) (*models.AccessGrant, error) {
	args := m.Called(ctx, tokenHash, eventID)
	g, _ := args.Get(0).(*models.AccessGrant)
	return g, args.Error(1)
}

func TestGrantService_StoreFailures(t *testing.T) {
	store := new(MockGrantStore)
	store.On("SaveGrant", mock.Anything, mock.Anything).Return(errors.New("redis timeout"))
	store.On("FindGrant", mock.Anything, HashGrantToken("tok"), "E1").Return(nil, errors.New("redis timeout"))

	service := NewGrantService(store, time.Hour, monitoring.NewMonitor())

	_, err := service.GenerateGrant(context.Background(), "E1", "usr_owner", "")
	assert.ErrorIs(t, err, status.ErrTransient)

	v := service.ValidateGrant(context.Background(), "tok", "E1")
	assert.False(t, v.Valid)
	assert.Equal(t, "invalid or expired", v.Reason)

	store.AssertExpectations(t)
}
