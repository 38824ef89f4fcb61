package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, eventID, userID string) {
	t.Helper()
	require.NoError(t, s.CreateRegistration(context.Background(), &models.Registration{
		EventID:    eventID,
		UserID:     userID,
		Name:       "Ravi Nair",
		Email:      "ravi@example.edu",
		TicketCode: "T-" + eventID + "-" + userID,
	}))
}

func TestStore_MarkCheckedIn_Transitions(t *testing.T) {
	s := New()
	at := time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return at })
	seed(t, s, "E1", "U1")

	reg, err := s.MarkCheckedIn(context.Background(), "E1", "U1", "usr_staff")
	require.NoError(t, err)
	assert.True(t, reg.CheckedIn)
	assert.Equal(t, at, *reg.CheckedInAt)

	s.SetClock(func() time.Time { return at.Add(time.Minute) })
	reg, err = s.MarkCheckedIn(context.Background(), "E1", "U1", "")
	assert.ErrorIs(t, err, status.ErrAlreadyCheckedIn)
	assert.Equal(t, at, *reg.CheckedInAt, "duplicate keeps the original timestamp")
	assert.Equal(t, "usr_staff", reg.ScannedBy)

	_, err = s.MarkCheckedIn(context.Background(), "E2", "U1", "")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestStore_MarkCheckedIn_SingleWinner(t *testing.T) {
	s := New()
	seed(t, s, "E1", "U1")

	var wg sync.WaitGroup
	var wins, dups int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MarkCheckedIn(context.Background(), "E1", "U1", "")
			if err == nil {
				atomic.AddInt64(&wins, 1)
			} else if errors.Is(err, status.ErrAlreadyCheckedIn) {
				atomic.AddInt64(&dups, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
	assert.Equal(t, int64(49), dups)
}

func TestStore_CreateRegistration_Duplicate(t *testing.T) {
	s := New()
	seed(t, s, "E1", "U1")

	err := s.CreateRegistration(context.Background(), &models.Registration{EventID: "E1", UserID: "U1"})
	assert.ErrorIs(t, err, status.ErrAlreadyRegistered)

	regs, err := s.ListRegistrations(context.Background(), "E1")
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	seed(t, s, "E1", "U1")

	reg, err := s.FindRegistrationByTicket(context.Background(), "T-E1-U1")
	require.NoError(t, err)
	reg.CheckedIn = true

	again, err := s.FindRegistrationByTicket(context.Background(), "T-E1-U1")
	require.NoError(t, err)
	assert.False(t, again.CheckedIn)
}

func TestStore_FailWith(t *testing.T) {
	s := New()
	s.FailWith = errors.New("disk on fire")

	_, err := s.MarkCheckedIn(context.Background(), "E1", "U1", "")
	assert.EqualError(t, err, "disk on fire")
}
