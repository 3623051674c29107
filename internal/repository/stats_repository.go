package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// StatsRepository serves aggregate reads for dashboards and exports.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview returns platform-wide counters.
func (r *StatsRepository) Overview(ctx context.Context) (*models.OverviewStats, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM profiles WHERE role = 'mentor') AS total_mentors,
	(SELECT COUNT(*) FROM profiles WHERE role = 'mentee') AS total_mentees,
	(SELECT COUNT(*) FROM mentorship_requests) AS total_requests,
	(SELECT COUNT(*) FROM mentorship_requests WHERE status = 'pending') AS pending_requests,
	(SELECT COUNT(*) FROM mentorship_requests WHERE status = 'accepted') AS accepted_requests,
	(SELECT COUNT(*) FROM mentorship_requests WHERE status = 'rejected') AS rejected_requests,
	(SELECT COUNT(*) FROM mentee_queries) AS total_queries,
	(SELECT COUNT(*) FROM mentee_queries WHERE mentor_reply IS NOT NULL) AS replied_queries,
	(SELECT COUNT(*) FROM active_mentorships WHERE ended_at IS NULL) AS open_mentorships,
	(SELECT COUNT(*) FROM mentor_profiles WHERE is_available = TRUE AND current_mentees < max_mentees) AS available_mentors`
	var stats models.OverviewStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("load overview stats: %w", err)
	}
	return &stats, nil
}

// MentorActivity returns the mentor's requests touched since the cutoff.
func (r *StatsRepository) MentorActivity(ctx context.Context, mentorID string, since time.Time) ([]models.RequestActivity, error) {
	const query = `SELECT status, created_at, updated_at FROM mentorship_requests WHERE mentor_id = $1 AND (created_at >= $2 OR updated_at >= $2)`
	var rows []models.RequestActivity
	if err := r.db.SelectContext(ctx, &rows, query, mentorID, since); err != nil {
		return nil, fmt.Errorf("load mentor activity: %w", err)
	}
	return rows, nil
}

// MenteeConnectionStarts returns the start time of every mentorship the mentee has had.
func (r *StatsRepository) MenteeConnectionStarts(ctx context.Context, menteeID string) ([]time.Time, error) {
	const query = `SELECT started_at FROM active_mentorships WHERE mentee_id = $1 ORDER BY started_at ASC`
	var starts []time.Time
	if err := r.db.SelectContext(ctx, &starts, query, menteeID); err != nil {
		return nil, fmt.Errorf("load mentee connections: %w", err)
	}
	return starts, nil
}

// RequestCounts tallies request statuses for the given role column.
func (r *StatsRepository) RequestCounts(ctx context.Context, userID string, asMentor bool) (*models.RequestCounts, error) {
	column := "mentee_id"
	if asMentor {
		column = "mentor_id"
	}
	query := `SELECT
	COUNT(*) FILTER (WHERE status = 'pending') AS pending,
	COUNT(*) FILTER (WHERE status = 'accepted') AS accepted,
	COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
FROM mentorship_requests WHERE ` + column + ` = $1`
	var counts models.RequestCounts
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	return &counts, nil
}

// QueryCounts returns total and replied query counts for the given role column.
func (r *StatsRepository) QueryCounts(ctx context.Context, userID string, asMentor bool) (total, replied int, err error) {
	column := "mentee_id"
	if asMentor {
		column = "mentor_id"
	}
	query := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE mentor_reply IS NOT NULL) AS replied FROM mentee_queries WHERE ` + column + ` = $1`
	var counts struct {
		Total   int `db:"total"`
		Replied int `db:"replied"`
	}
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return 0, 0, fmt.Errorf("count queries: %w", err)
	}
	return counts.Total, counts.Replied, nil
}

// RequestExportRow is a flattened request row for rosters.
type RequestExportRow struct {
	ID         string    `db:"id"`
	MenteeName string    `db:"mentee_name"`
	MentorName string    `db:"mentor_name"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// ExportRequests returns every request with participant names.
func (r *StatsRepository) ExportRequests(ctx context.Context) ([]RequestExportRow, error) {
	const query = `SELECT r.id, COALESCE(me.full_name, '') AS mentee_name, COALESCE(mo.full_name, '') AS mentor_name, r.status, r.created_at, r.updated_at
FROM mentorship_requests r
LEFT JOIN profiles me ON me.user_id = r.mentee_id
LEFT JOIN profiles mo ON mo.user_id = r.mentor_id
ORDER BY r.created_at DESC`
	var rows []RequestExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export requests: %w", err)
	}
	return rows, nil
}

// MentorshipExportRow is a flattened mentorship row for rosters.
type MentorshipExportRow struct {
	ID         string     `db:"id"`
	MentorName string     `db:"mentor_name"`
	MenteeName string     `db:"mentee_name"`
	StartedAt  time.Time  `db:"started_at"`
	EndedAt    *time.Time `db:"ended_at"`
}

// ExportMentorships returns every mentorship with participant names.
func (r *StatsRepository) ExportMentorships(ctx context.Context) ([]MentorshipExportRow, error) {
	const query = `SELECT am.id, COALESCE(mo.full_name, '') AS mentor_name, COALESCE(me.full_name, '') AS mentee_name, am.started_at, am.ended_at
FROM active_mentorships am
LEFT JOIN profiles mo ON mo.user_id = am.mentor_id
LEFT JOIN profiles me ON me.user_id = am.mentee_id
ORDER BY am.started_at DESC`
	var rows []MentorshipExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export mentorships: %w", err)
	}
	return rows, nil
}

// UserExportRow is a flattened user row for rosters.
type UserExportRow struct {
	ID        string    `db:"id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// ExportUsers returns every mentee and mentor.
func (r *StatsRepository) ExportUsers(ctx context.Context) ([]UserExportRow, error) {
	const query = `SELECT p.user_id AS id, p.full_name, p.email, p.role, p.created_at FROM profiles p WHERE p.role IN ('mentee', 'mentor') ORDER BY p.role, p.full_name`
	var rows []UserExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	return rows, nil
}
