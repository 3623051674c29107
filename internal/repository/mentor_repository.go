package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

const mentorProfileColumns = `mp.id, mp.user_id, mp.mentor_type, mp.bio, mp.experience, mp.expertise, mp.areas_of_guidance, mp.is_available, mp.max_mentees, mp.current_mentees, mp.created_at, mp.updated_at`

// MentorRepository persists mentor profiles and the capacity ledger.
type MentorRepository struct {
	db *sqlx.DB
}

// NewMentorRepository constructs the repository.
func NewMentorRepository(db *sqlx.DB) *MentorRepository {
	return &MentorRepository{db: db}
}

// FindByUserID returns the mentor profile owned by the user.
func (r *MentorRepository) FindByUserID(ctx context.Context, userID string) (*models.MentorProfile, error) {
	const query = `SELECT ` + mentorProfileColumns + ` FROM mentor_profiles mp WHERE mp.user_id = $1`
	var profile models.MentorProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentor profile: %w", err)
	}
	return &profile, nil
}

// EnsureProfile creates a default mentor profile when none exists and returns it.
func (r *MentorRepository) EnsureProfile(ctx context.Context, userID string) (*models.MentorProfile, error) {
	const insert = `INSERT INTO mentor_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID); err != nil {
		return nil, fmt.Errorf("ensure mentor profile: %w", err)
	}
	return r.FindByUserID(ctx, userID)
}

// GetListing returns one mentor joined with display fields.
func (r *MentorRepository) GetListing(ctx context.Context, userID string) (*models.MentorListing, error) {
	const query = `SELECT ` + mentorProfileColumns + `, p.full_name, p.email, p.avatar_url
FROM mentor_profiles mp
JOIN profiles p ON p.user_id = mp.user_id
WHERE mp.user_id = $1 AND p.role = 'mentor'`
	var listing models.MentorListing
	if err := r.db.GetContext(ctx, &listing, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get mentor listing: %w", err)
	}
	return &listing, nil
}

// List returns mentors joined with display fields, ordered by name.
func (r *MentorRepository) List(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + mentorProfileColumns + `, p.full_name, p.email, p.avatar_url
FROM mentor_profiles mp
JOIN profiles p ON p.user_id = mp.user_id
WHERE p.role = 'mentor'`)

	var args []interface{}
	if filter.AvailableOnly {
		query.WriteString(" AND mp.is_available = TRUE AND mp.current_mentees < mp.max_mentees")
	}
	if filter.MentorType != nil {
		args = append(args, *filter.MentorType)
		fmt.Fprintf(&query, " AND mp.mentor_type = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		fmt.Fprintf(&query, " AND (LOWER(p.full_name) LIKE $%d OR LOWER(array_to_string(mp.expertise, ' ')) LIKE $%d OR LOWER(array_to_string(mp.areas_of_guidance, ' ')) LIKE $%d)", len(args), len(args), len(args))
	}
	query.WriteString(" ORDER BY p.full_name ASC")

	var listings []models.MentorListing
	if err := r.db.SelectContext(ctx, &listings, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	return listings, nil
}

// UpdateProfile writes the descriptive and capacity fields of a mentor profile.
func (r *MentorRepository) UpdateProfile(ctx context.Context, profile *models.MentorProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mentor_profiles SET mentor_type = :mentor_type, bio = :bio, experience = :experience, expertise = :expertise, areas_of_guidance = :areas_of_guidance, is_available = :is_available, max_mentees = :max_mentees, updated_at = :updated_at WHERE user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return fmt.Errorf("update mentor profile: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAvailability toggles whether the mentor accepts new requests.
func (r *MentorRepository) SetAvailability(ctx context.Context, userID string, available bool) error {
	const query = `UPDATE mentor_profiles SET is_available = $2, updated_at = $3 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, available, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set mentor availability: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetMaxMentees changes the capacity ceiling.
func (r *MentorRepository) SetMaxMentees(ctx context.Context, userID string, max int) error {
	const query = `UPDATE mentor_profiles SET max_mentees = $2, updated_at = $3 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, max, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set mentor max mentees: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReconcileOccupancy recomputes current_mentees from open mentorships and
// returns how many profiles were corrected.
func (r *MentorRepository) ReconcileOccupancy(ctx context.Context) (int64, error) {
	const query = `UPDATE mentor_profiles mp SET current_mentees = counts.open_count, updated_at = now()
FROM (
	SELECT mp2.user_id, COUNT(am.id) AS open_count
	FROM mentor_profiles mp2
	LEFT JOIN active_mentorships am ON am.mentor_id = mp2.user_id AND am.ended_at IS NULL
	GROUP BY mp2.user_id
) counts
WHERE counts.user_id = mp.user_id AND mp.current_mentees <> counts.open_count`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reconcile mentor occupancy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reconcile mentor occupancy rows: %w", err)
	}
	return affected, nil
}
