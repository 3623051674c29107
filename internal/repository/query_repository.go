package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

const queryColumns = `q.id, q.mentee_id, q.mentor_id, q.full_name, q.course_program_year, q.university_name, q.email, q.mentorship_type, q.domain_guidance, q.query_description, q.expected_outcome, q.mentorship_duration, q.why_this_mentor, q.share_token, q.share_expires_at, q.share_revoked_at, q.mentor_reply, q.replied_at, q.created_at, q.updated_at`

// QueryRepository persists mentee queries and their share tokens.
type QueryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository constructs the repository.
func NewQueryRepository(db *sqlx.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// Create inserts a query. The share token is issued by the database.
func (r *QueryRepository) Create(ctx context.Context, query *models.MenteeQuery) error {
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query.CreatedAt = now
	query.UpdatedAt = now

	const stmt = `INSERT INTO mentee_queries (id, mentee_id, mentor_id, full_name, course_program_year, university_name, email, mentorship_type, domain_guidance, query_description, expected_outcome, mentorship_duration, why_this_mentor, share_expires_at, created_at, updated_at)
VALUES (:id, :mentee_id, :mentor_id, :full_name, :course_program_year, :university_name, :email, :mentorship_type, :domain_guidance, :query_description, :expected_outcome, :mentorship_duration, :why_this_mentor, :share_expires_at, :created_at, :updated_at)
RETURNING share_token`
	rows, err := r.db.NamedQueryContext(ctx, stmt, query)
	if err != nil {
		return fmt.Errorf("create mentee query: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("create mentee query rows: %w", err)
		}
		return errors.New("create mentee query: no share token returned")
	}
	if err := rows.Scan(&query.ShareToken); err != nil {
		return fmt.Errorf("scan share token: %w", err)
	}
	return nil
}

// FindByID returns a single query.
func (r *QueryRepository) FindByID(ctx context.Context, id string) (*models.MenteeQuery, error) {
	const stmt = `SELECT ` + queryColumns + ` FROM mentee_queries q WHERE q.id = $1`
	var query models.MenteeQuery
	if err := r.db.GetContext(ctx, &query, stmt, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentee query: %w", err)
	}
	return &query, nil
}

// FindByShareToken returns the query addressed by a share token together with
// the mentor's name.
func (r *QueryRepository) FindByShareToken(ctx context.Context, token string) (*models.MenteeQueryView, error) {
	const stmt = `SELECT ` + queryColumns + `, COALESCE(p.full_name, '') AS counterpart_name, p.avatar_url AS counterpart_avatar
FROM mentee_queries q
LEFT JOIN profiles p ON p.user_id = q.mentor_id
WHERE q.share_token = $1`
	var view models.MenteeQueryView
	if err := r.db.GetContext(ctx, &view, stmt, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentee query by token: %w", err)
	}
	return &view, nil
}

// ListForMentee returns the mentee's queries with mentor names, newest first.
func (r *QueryRepository) ListForMentee(ctx context.Context, menteeID string) ([]models.MenteeQueryView, error) {
	const stmt = `SELECT ` + queryColumns + `, COALESCE(p.full_name, '') AS counterpart_name, p.avatar_url AS counterpart_avatar
FROM mentee_queries q
LEFT JOIN profiles p ON p.user_id = q.mentor_id
WHERE q.mentee_id = $1
ORDER BY q.created_at DESC`
	var views []models.MenteeQueryView
	if err := r.db.SelectContext(ctx, &views, stmt, menteeID); err != nil {
		return nil, fmt.Errorf("list mentee queries: %w", err)
	}
	return views, nil
}

// ListForMentor returns queries addressed to the mentor with mentee names, newest first.
func (r *QueryRepository) ListForMentor(ctx context.Context, mentorID string) ([]models.MenteeQueryView, error) {
	const stmt = `SELECT ` + queryColumns + `, COALESCE(p.full_name, q.full_name) AS counterpart_name, p.avatar_url AS counterpart_avatar
FROM mentee_queries q
LEFT JOIN profiles p ON p.user_id = q.mentee_id
WHERE q.mentor_id = $1
ORDER BY q.created_at DESC`
	var views []models.MenteeQueryView
	if err := r.db.SelectContext(ctx, &views, stmt, mentorID); err != nil {
		return nil, fmt.Errorf("list mentor queries: %w", err)
	}
	return views, nil
}

// SaveReply overwrites the mentor's reply on a query addressed to them.
func (r *QueryRepository) SaveReply(ctx context.Context, id, mentorID, reply string, repliedAt time.Time) error {
	const stmt = `UPDATE mentee_queries SET mentor_reply = $3, replied_at = $4, updated_at = $4 WHERE id = $1 AND mentor_id = $2`
	res, err := r.db.ExecContext(ctx, stmt, id, mentorID, reply, repliedAt)
	if err != nil {
		return fmt.Errorf("save query reply: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevokeShareToken stops the query's share token from resolving.
func (r *QueryRepository) RevokeShareToken(ctx context.Context, id, menteeID string, revokedAt time.Time) error {
	const stmt = `UPDATE mentee_queries SET share_revoked_at = $3, updated_at = $3 WHERE id = $1 AND mentee_id = $2`
	res, err := r.db.ExecContext(ctx, stmt, id, menteeID, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke share token: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RotateShareToken issues a fresh token, clearing any revocation, and returns it.
func (r *QueryRepository) RotateShareToken(ctx context.Context, id, menteeID string, expiresAt *time.Time) (string, error) {
	const stmt = `UPDATE mentee_queries SET share_token = gen_random_uuid(), share_revoked_at = NULL, share_expires_at = $3, updated_at = now() WHERE id = $1 AND mentee_id = $2 RETURNING share_token`
	var token string
	if err := r.db.GetContext(ctx, &token, stmt, id, menteeID, expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("rotate share token: %w", err)
	}
	return token, nil
}
