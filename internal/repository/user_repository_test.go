package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "role", "avatar_url", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "mentor@example.com", "hash", "Asha Rao", string(models.RoleMentor), nil, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u JOIN profiles p ON p.user_id = u.id WHERE u.email = $1 LIMIT 1")).
		WithArgs("mentor@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "mentor@example.com")
	require.NoError(t, err)
	assert.Equal(t, "mentor@example.com", user.Email)
	assert.Equal(t, models.RoleMentor, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserWritesRoleProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id, role) VALUES ($1, $2)")).
		WithArgs(sqlmock.AnyArg(), models.RoleMentee).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mentee_profiles (user_id)")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	user := &models.User{Email: "mentee@example.com", PasswordHash: "hash", FullName: "Ravi", Role: models.RoleMentee, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "dup@example.com", Role: models.RoleMentor})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRoleSwapsRoleProfiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("mentee"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET role = $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_roles SET role = $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles mp SET current_mentees = GREATEST(mp.current_mentees - 1, 0)")).WithArgs("u1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE active_mentorships SET ended_at = $2 WHERE mentee_id = $1 AND ended_at IS NULL")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentorship_requests SET status = 'rejected', rejection_message = $3, updated_at = $2 WHERE mentee_id = $1 AND status = 'pending'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mentee_profiles WHERE user_id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mentor_profiles (user_id)")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	previous, err := repo.ChangeRole(context.Background(), "u1", models.RoleMentor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentee, previous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRoleFromMentorSettlesRequests(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("mentor"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET role = $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_roles SET role = $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE active_mentorships SET ended_at = $2 WHERE mentor_id = $1 AND ended_at IS NULL")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentorship_requests SET status = 'rejected', rejection_message = $3, updated_at = $2 WHERE mentor_id = $1 AND status = 'pending'")).
		WithArgs("u1", sqlmock.AnyArg(), roleChangedMessage).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mentor_profiles WHERE user_id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mentee_profiles (user_id)")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	previous, err := repo.ChangeRole(context.Background(), "u1", models.RoleMentee)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentor, previous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserReleasesCapacity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles mp SET current_mentees = GREATEST(mp.current_mentees - 1, 0)")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE active_mentorships SET ended_at = $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentorship_requests SET status = 'rejected'")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersExcludesStaff(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "a@example.com", "hash", "A", string(models.RoleMentee), nil, true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND p.role <> 'admin' ORDER BY u.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u JOIN profiles p")).WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{ExcludeAdmins: true})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
