package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/models"
)

func TestCreateQueryReturnsShareToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQueryRepository(db)

	mock.ExpectQuery("INSERT INTO mentee_queries").
		WillReturnRows(sqlmock.NewRows([]string{"share_token"}).AddRow("0b9f6c7e-3f5a-4c1e-9d8a-2b7f1e4c5d6a"))

	query := &models.MenteeQuery{MenteeID: "mentee-1", MentorID: "mentor-1", FullName: "Ravi"}
	require.NoError(t, repo.Create(context.Background(), query))
	assert.Equal(t, "0b9f6c7e-3f5a-4c1e-9d8a-2b7f1e4c5d6a", query.ShareToken)
	assert.NotEmpty(t, query.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateQueryWithoutShareToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQueryRepository(db)

	mock.ExpectQuery("INSERT INTO mentee_queries").WillReturnRows(sqlmock.NewRows([]string{"share_token"}))

	query := &models.MenteeQuery{MenteeID: "mentee-1", MentorID: "mentor-1", FullName: "Ravi"}
	err := repo.Create(context.Background(), query)
	require.Error(t, err)
	assert.Empty(t, query.ShareToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByShareTokenUnknown(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQueryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE q.share_token = $1")).
		WithArgs("0b9f6c7e-3f5a-4c1e-9d8a-2b7f1e4c5d6a").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByShareToken(context.Background(), "0b9f6c7e-3f5a-4c1e-9d8a-2b7f1e4c5d6a")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReplyScopedToMentor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQueryRepository(db)

	repliedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentee_queries SET mentor_reply = $3, replied_at = $4, updated_at = $4 WHERE id = $1 AND mentor_id = $2")).
		WithArgs("q-1", "mentor-2", "See you Monday", repliedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveReply(context.Background(), "q-1", "mentor-2", "See you Monday", repliedAt)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateShareToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQueryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET share_token = gen_random_uuid(), share_revoked_at = NULL")).
		WithArgs("q-1", "mentee-1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"share_token"}).AddRow("new-token"))

	token, err := repo.RotateShareToken(context.Background(), "q-1", "mentee-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileOccupancy(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMentorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles mp SET current_mentees = counts.open_count")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	fixed, err := repo.ReconcileOccupancy(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, fixed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAvailabilityUnknownMentor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMentorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles SET is_available = $2")).
		WithArgs("nobody", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetAvailability(context.Background(), "nobody", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
