package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

type storeMock struct {
	expired    []uuid.UUID
	expiredErr error
	deleteErr  error

	gotCutoff  time.Time
	gotDeleted []uuid.UUID
}

func (m *storeMock) ExpiredGuestCartIDs(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.gotCutoff = cutoff
	return m.expired, m.expiredErr
}

func (m *storeMock) DeleteCarts(_ context.Context, ids []uuid.UUID) (int64, error) {
	m.gotDeleted = ids
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return int64(len(ids)), nil
}

func TestSweep_DeletesCapturedSet(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	mock := &storeMock{expired: ids}
	s := NewSweeper(mock, slog.New(slog.DiscardHandler))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	deleted, err := s.Sweep(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, ids, mock.gotDeleted)
	assert.Equal(t, now.Add(-domain.GuestRetention), mock.gotCutoff)
}

func TestSweep_NothingExpired(t *testing.T) {
	mock := &storeMock{}
	s := NewSweeper(mock, slog.New(slog.DiscardHandler))

	deleted, err := s.Sweep(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Nil(t, mock.gotDeleted)
}

func TestSweep_CaptureFailure(t *testing.T) {
	mock := &storeMock{expiredErr: errors.New("db down")}
	s := NewSweeper(mock, slog.New(slog.DiscardHandler))

	_, err := s.Sweep(context.Background(), time.Now())

	assert.Error(t, err)
	assert.Nil(t, mock.gotDeleted)
}

func TestSweep_DeleteFailure(t *testing.T) {
	mock := &storeMock{expired: []uuid.UUID{uuid.New()}, deleteErr: errors.New("db down")}
	s := NewSweeper(mock, slog.New(slog.DiscardHandler))

	_, err := s.Sweep(context.Background(), time.Now())

	assert.Error(t, err)
}
