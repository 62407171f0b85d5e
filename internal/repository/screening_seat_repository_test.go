package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A partial lock must roll back before the conflict read runs, and the
// read must go to the pool rather than the open transaction. Inside the
// transaction the batch's own uncommitted locks are visible, so reading
// there would report every requested seat as taken instead of only the
// ones another actor holds.
func TestLockPartialConflictNamesOnlyTakenSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewScreeningSeatRepo(db)

	// Seats 101 and 102 requested, 102 already LOCKED elsewhere: the
	// conditional UPDATE only moves 101.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE screening_seats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT seat_id FROM screening_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(101))

	conflicts, err := repo.Lock(context.Background(), 1, []uint64{101, 102}, "tok", time.Now())
	require.NoError(t, err)
	assert.Equal(t, []uint64{102}, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAllAvailableCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewScreeningSeatRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE screening_seats").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	conflicts, err := repo.Lock(context.Background(), 1, []uint64{101, 102}, "tok", time.Now())
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Requesting a seat with no inventory row at all still surfaces it as a
// conflict: the conflict read lists the AVAILABLE rows and everything
// absent from that answer is reported.
func TestLockUnknownSeatReportedAsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewScreeningSeatRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE screening_seats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT seat_id FROM screening_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(101))

	conflicts, err := repo.Lock(context.Background(), 1, []uint64{101, 999}, "tok", time.Now())
	require.NoError(t, err)
	assert.Equal(t, []uint64{999}, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
