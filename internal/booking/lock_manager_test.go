package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

func TestLockAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.lock(t, 102)

	// 101 is free but 102 is taken: the batch must fail as a whole and
	// leave 101 untouched.
	_, err := f.locks.Lock(ctx, testScreeningID, []uint64{101, 102})
	var seatErr *SeatUnavailableError
	require.ErrorAs(t, err, &seatErr)
	assert.Equal(t, []uint64{102}, seatErr.SeatIDs)
	assert.Equal(t, model.SeatStatusAvailable, f.backend.seatStatus(testScreeningID, 101))

	// Releasing the hold makes the full batch lockable.
	released, err := f.locks.Unlock(ctx, testScreeningID, first.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)
	res := f.lock(t, 101, 102)
	assert.Len(t, res.SeatIDs, 2)
}

func TestLockConcurrentOverlap(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	results := make([]*LockResult, 2)
	errs := make([]error, 2)
	batches := [][]uint64{{101, 102}, {102, 103}}
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.locks.Lock(context.Background(), testScreeningID, batches[i])
		}(i)
	}
	wg.Wait()

	// Exactly one batch wins the overlapping seat.
	wins := 0
	for i := range batches {
		if errs[i] == nil {
			wins++
			assert.Len(t, results[i].SeatIDs, 2)
		} else {
			var seatErr *SeatUnavailableError
			require.ErrorAs(t, errs[i], &seatErr)
			assert.Contains(t, seatErr.SeatIDs, uint64(102))
		}
	}
	assert.Equal(t, 1, wins)

	// The loser's non-overlapping seat stays available.
	locked := 0
	for _, id := range []uint64{101, 102, 103} {
		if f.backend.seatStatus(testScreeningID, id) == model.SeatStatusLocked {
			locked++
		}
	}
	assert.Equal(t, 2, locked)
}

func TestLockDeduplicatesSelection(t *testing.T) {
	f := newFixture(t)
	res := f.lock(t, 101, 101, 0, 101)
	assert.Equal(t, []uint64{101}, res.SeatIDs)
	assert.Equal(t, f.now.Add(holdTTL), res.ExpiresAt)
}

func TestLockValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.locks.Lock(ctx, testScreeningID, nil)
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = f.locks.Lock(ctx, testScreeningID, []uint64{0})
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = f.locks.Lock(ctx, 999, []uint64{101})
	assert.ErrorIs(t, err, repository.ErrScreeningNotFound)

	// Unknown seats count as unavailable, not as a lookup error.
	_, err = f.locks.Lock(ctx, testScreeningID, []uint64{101, 999})
	var seatErr *SeatUnavailableError
	require.ErrorAs(t, err, &seatErr)
	assert.Equal(t, []uint64{999}, seatErr.SeatIDs)
}

func TestLockClosedScreening(t *testing.T) {
	f := newFixture(t)
	f.now = screeningStart.Add(time.Minute)

	_, err := f.locks.Lock(context.Background(), testScreeningID, []uint64{101})
	assert.ErrorIs(t, err, ErrScreeningNotBookable)
}

func TestUnlockSpentTokenIsNoop(t *testing.T) {
	f := newFixture(t)
	res := f.lock(t, 101)
	f.createBooking(t, res.Token, nil, 0)

	// Once bound to a booking, the seats no longer belong to the hold.
	released, err := f.locks.Unlock(context.Background(), testScreeningID, res.Token)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, model.SeatStatusLocked, f.backend.seatStatus(testScreeningID, 101))
}
