package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

const (
	requestColumns    = `r.id, r.mentee_id, r.mentor_id, r.introduction, r.goals, r.status, r.rejection_message, r.created_at, r.updated_at`
	mentorshipColumns = `am.id, am.mentor_id, am.mentee_id, am.request_id, am.started_at, am.ended_at`
)

// MentorshipRepository persists mentorship requests and active mentorships.
type MentorshipRepository struct {
	db *sqlx.DB
}

// NewMentorshipRepository constructs the repository.
func NewMentorshipRepository(db *sqlx.DB) *MentorshipRepository {
	return &MentorshipRepository{db: db}
}

// CreateRequest inserts a pending request. A second pending request for the
// same pair trips the partial unique index and yields ErrDuplicate.
func (r *MentorshipRepository) CreateRequest(ctx context.Context, req *models.MentorshipRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.Status = models.RequestStatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	const query = `INSERT INTO mentorship_requests (id, mentee_id, mentor_id, introduction, goals, status, created_at, updated_at) VALUES (:id, :mentee_id, :mentor_id, :introduction, :goals, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create mentorship request: %w", err)
	}
	return nil
}

// FindRequestByID returns a single request.
func (r *MentorshipRepository) FindRequestByID(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM mentorship_requests r WHERE r.id = $1`
	var req models.MentorshipRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentorship request: %w", err)
	}
	return &req, nil
}

// ListRequestsForMentee returns the mentee's requests with mentor details, newest first.
func (r *MentorshipRepository) ListRequestsForMentee(ctx context.Context, menteeID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + requestColumns + `,
	p.full_name AS counterpart_name,
	p.email AS counterpart_email,
	p.avatar_url AS counterpart_avatar,
	mp.mentor_type AS mentor_type,
	NULL::text AS course,
	NULL::int AS year
FROM mentorship_requests r
LEFT JOIN profiles p ON p.user_id = r.mentor_id
LEFT JOIN mentor_profiles mp ON mp.user_id = r.mentor_id
WHERE r.mentee_id = $1`)
	return r.listRequests(ctx, &query, menteeID, filter)
}

// ListRequestsForMentor returns requests addressed to the mentor with mentee details, newest first.
func (r *MentorshipRepository) ListRequestsForMentor(ctx context.Context, mentorID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + requestColumns + `,
	p.full_name AS counterpart_name,
	p.email AS counterpart_email,
	p.avatar_url AS counterpart_avatar,
	NULL::text AS mentor_type,
	me.course AS course,
	me.year AS year
FROM mentorship_requests r
LEFT JOIN profiles p ON p.user_id = r.mentee_id
LEFT JOIN mentee_profiles me ON me.user_id = r.mentee_id
WHERE r.mentor_id = $1`)
	return r.listRequests(ctx, &query, mentorID, filter)
}

func (r *MentorshipRepository) listRequests(ctx context.Context, query *strings.Builder, ownerID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error) {
	args := []interface{}{ownerID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		fmt.Fprintf(query, " AND r.status = $%d", len(args))
	}
	query.WriteString(" ORDER BY r.created_at DESC")

	var views []models.MentorshipRequestView
	if err := r.db.SelectContext(ctx, &views, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list mentorship requests: %w", err)
	}
	return views, nil
}

// AcceptRequest moves a pending request addressed to mentorID to accepted,
// creates the active mentorship and takes one unit of mentor capacity. All
// three writes commit together or not at all.
func (r *MentorshipRepository) AcceptRequest(ctx context.Context, requestID, mentorID string) (req *models.MentorshipRequest, mentorship *models.ActiveMentorship, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin accept transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err = lockPendingRequest(ctx, tx, requestID, mentorID)
	if err != nil {
		return nil, nil, err
	}

	// Holds the role steady against a concurrent ChangeRole, which locks the
	// same row.
	var role string
	const lockRole = `SELECT role FROM profiles WHERE user_id = $1 AND role = 'mentor' FOR UPDATE`
	if err = tx.GetContext(ctx, &role, lockRole, mentorID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrRoleMismatch
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("lock mentor role: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO mentor_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, mentorID); err != nil {
		return nil, nil, fmt.Errorf("ensure mentor profile: %w", err)
	}

	var ledger struct {
		MaxMentees     int `db:"max_mentees"`
		CurrentMentees int `db:"current_mentees"`
	}
	const lockLedger = `SELECT max_mentees, current_mentees FROM mentor_profiles WHERE user_id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &ledger, lockLedger, mentorID); err != nil {
		return nil, nil, fmt.Errorf("lock mentor capacity: %w", err)
	}
	if ledger.CurrentMentees >= ledger.MaxMentees {
		err = ErrNoCapacity
		return nil, nil, err
	}

	now := time.Now().UTC()
	const updateRequest = `UPDATE mentorship_requests SET status = 'accepted', updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateRequest, req.ID, now); err != nil {
		return nil, nil, fmt.Errorf("accept mentorship request: %w", err)
	}
	req.Status = models.RequestStatusAccepted
	req.UpdatedAt = now

	mentorship = &models.ActiveMentorship{
		MentorID:  req.MentorID,
		MenteeID:  req.MenteeID,
		RequestID: &req.ID,
		StartedAt: now,
	}
	const insertMentorship = `INSERT INTO active_mentorships (mentor_id, mentee_id, request_id, started_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.GetContext(ctx, &mentorship.ID, insertMentorship, mentorship.MentorID, mentorship.MenteeID, req.ID, now); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("create active mentorship: %w", err)
	}

	const takeSlot = `UPDATE mentor_profiles SET current_mentees = current_mentees + 1, updated_at = $2 WHERE user_id = $1`
	if _, err = tx.ExecContext(ctx, takeSlot, mentorID, now); err != nil {
		return nil, nil, fmt.Errorf("increment mentor occupancy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit accept: %w", err)
	}
	return req, mentorship, nil
}

// RejectRequest moves a pending request addressed to mentorID to rejected.
func (r *MentorshipRepository) RejectRequest(ctx context.Context, requestID, mentorID string, message *string) (req *models.MentorshipRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reject transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err = lockPendingRequest(ctx, tx, requestID, mentorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	const updateRequest = `UPDATE mentorship_requests SET status = 'rejected', rejection_message = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateRequest, req.ID, message, now); err != nil {
		return nil, fmt.Errorf("reject mentorship request: %w", err)
	}
	req.Status = models.RequestStatusRejected
	req.RejectionMessage = message
	req.UpdatedAt = now

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reject: %w", err)
	}
	return req, nil
}

func lockPendingRequest(ctx context.Context, tx *sqlx.Tx, requestID, mentorID string) (*models.MentorshipRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM mentorship_requests r WHERE r.id = $1 AND r.mentor_id = $2 FOR UPDATE`
	var req models.MentorshipRequest
	if err := tx.GetContext(ctx, &req, query, requestID, mentorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock mentorship request: %w", err)
	}
	if !req.IsPending() {
		return nil, ErrInvalidTransition
	}
	return &req, nil
}

// EndMentorship closes an open mentorship and releases the mentor's slot.
func (r *MentorshipRepository) EndMentorship(ctx context.Context, mentorshipID string) (mentorship *models.ActiveMentorship, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin end mentorship transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	mentorship = &models.ActiveMentorship{}
	const lockQuery = `SELECT ` + mentorshipColumns + ` FROM active_mentorships am WHERE am.id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, mentorship, lockQuery, mentorshipID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock active mentorship: %w", err)
	}
	if !mentorship.IsOpen() {
		err = ErrInvalidTransition
		return nil, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE active_mentorships SET ended_at = $2 WHERE id = $1`, mentorship.ID, now); err != nil {
		return nil, fmt.Errorf("end active mentorship: %w", err)
	}
	mentorship.EndedAt = &now

	const releaseSlot = `UPDATE mentor_profiles SET current_mentees = GREATEST(current_mentees - 1, 0), updated_at = $2 WHERE user_id = $1`
	if _, err = tx.ExecContext(ctx, releaseSlot, mentorship.MentorID, now); err != nil {
		return nil, fmt.Errorf("decrement mentor occupancy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit end mentorship: %w", err)
	}
	return mentorship, nil
}

// FindMentorshipByID returns a single active mentorship row.
func (r *MentorshipRepository) FindMentorshipByID(ctx context.Context, id string) (*models.ActiveMentorship, error) {
	const query = `SELECT ` + mentorshipColumns + ` FROM active_mentorships am WHERE am.id = $1`
	var m models.ActiveMentorship
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active mentorship: %w", err)
	}
	return &m, nil
}

// HasOpenMentorship reports whether the pair is currently connected.
func (r *MentorshipRepository) HasOpenMentorship(ctx context.Context, menteeID, mentorID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM active_mentorships WHERE mentee_id = $1 AND mentor_id = $2 AND ended_at IS NULL)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, menteeID, mentorID); err != nil {
		return false, fmt.Errorf("check open mentorship: %w", err)
	}
	return exists, nil
}

// CountOpenForUser counts open mentorships in which the user takes part.
func (r *MentorshipRepository) CountOpenForUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM active_mentorships WHERE (mentor_id = $1 OR mentee_id = $1) AND ended_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count open mentorships: %w", err)
	}
	return count, nil
}

// ListMentorsForMentee returns the mentee's open mentorships with mentor details.
func (r *MentorshipRepository) ListMentorsForMentee(ctx context.Context, menteeID string) ([]models.ActiveMentorshipView, error) {
	const query = `SELECT ` + mentorshipColumns + `,
	p.full_name AS counterpart_name,
	p.email AS counterpart_email,
	p.avatar_url AS counterpart_avatar,
	mp.mentor_type AS mentor_type,
	mp.bio AS bio,
	NULL::text AS course,
	NULL::int AS year
FROM active_mentorships am
JOIN profiles p ON p.user_id = am.mentor_id
LEFT JOIN mentor_profiles mp ON mp.user_id = am.mentor_id
WHERE am.mentee_id = $1 AND am.ended_at IS NULL
ORDER BY am.started_at DESC`
	var views []models.ActiveMentorshipView
	if err := r.db.SelectContext(ctx, &views, query, menteeID); err != nil {
		return nil, fmt.Errorf("list mentors for mentee: %w", err)
	}
	return views, nil
}

// ListMenteesForMentor returns the mentor's open mentorships with mentee details.
func (r *MentorshipRepository) ListMenteesForMentor(ctx context.Context, mentorID string) ([]models.ActiveMentorshipView, error) {
	const query = `SELECT ` + mentorshipColumns + `,
	p.full_name AS counterpart_name,
	p.email AS counterpart_email,
	p.avatar_url AS counterpart_avatar,
	NULL::text AS mentor_type,
	NULL::text AS bio,
	me.course AS course,
	me.year AS year
FROM active_mentorships am
JOIN profiles p ON p.user_id = am.mentee_id
LEFT JOIN mentee_profiles me ON me.user_id = am.mentee_id
WHERE am.mentor_id = $1 AND am.ended_at IS NULL
ORDER BY am.started_at DESC`
	var views []models.ActiveMentorshipView
	if err := r.db.SelectContext(ctx, &views, query, mentorID); err != nil {
		return nil, fmt.Errorf("list mentees for mentor: %w", err)
	}
	return views, nil
}

// RelationsForMentee flags, per mentor, whether the mentee is connected or has
// a pending request.
func (r *MentorshipRepository) RelationsForMentee(ctx context.Context, menteeID string) ([]models.MentorshipRelation, error) {
	const query = `SELECT mentor_id, BOOL_OR(connected) AS is_connected, BOOL_OR(pending) AS has_pending
FROM (
	SELECT mentor_id, TRUE AS connected, FALSE AS pending FROM active_mentorships WHERE mentee_id = $1 AND ended_at IS NULL
	UNION ALL
	SELECT mentor_id, FALSE AS connected, TRUE AS pending FROM mentorship_requests WHERE mentee_id = $1 AND status = 'pending'
) rel
GROUP BY mentor_id`
	var relations []models.MentorshipRelation
	if err := r.db.SelectContext(ctx, &relations, query, menteeID); err != nil {
		return nil, fmt.Errorf("list mentee relations: %w", err)
	}
	return relations, nil
}
