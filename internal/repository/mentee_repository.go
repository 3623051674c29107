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

const menteeProfileColumns = `me.id, me.user_id, me.course, me.specialisation, me.year, me.semester, me.section, me.interests, me.career_goals, me.created_at, me.updated_at`

// MenteeRepository persists mentee profiles.
type MenteeRepository struct {
	db *sqlx.DB
}

// NewMenteeRepository constructs the repository.
func NewMenteeRepository(db *sqlx.DB) *MenteeRepository {
	return &MenteeRepository{db: db}
}

// FindByUserID returns the mentee profile owned by the user.
func (r *MenteeRepository) FindByUserID(ctx context.Context, userID string) (*models.MenteeProfile, error) {
	const query = `SELECT ` + menteeProfileColumns + ` FROM mentee_profiles me WHERE me.user_id = $1`
	var profile models.MenteeProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentee profile: %w", err)
	}
	return &profile, nil
}

// EnsureProfile creates a default mentee profile when none exists and returns it.
func (r *MenteeRepository) EnsureProfile(ctx context.Context, userID string) (*models.MenteeProfile, error) {
	const insert = `INSERT INTO mentee_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID); err != nil {
		return nil, fmt.Errorf("ensure mentee profile: %w", err)
	}
	return r.FindByUserID(ctx, userID)
}

// UpdateProfile writes the academic fields of a mentee profile.
func (r *MenteeRepository) UpdateProfile(ctx context.Context, profile *models.MenteeProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mentee_profiles SET course = :course, specialisation = :specialisation, year = :year, semester = :semester, section = :section, interests = :interests, career_goals = :career_goals, updated_at = :updated_at WHERE user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return fmt.Errorf("update mentee profile: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns mentees joined with display fields, ordered by name.
func (r *MenteeRepository) List(ctx context.Context, search string) ([]models.MenteeListing, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + menteeProfileColumns + `, p.full_name, p.email, p.avatar_url
FROM mentee_profiles me
JOIN profiles p ON p.user_id = me.user_id
WHERE p.role = 'mentee'`)

	var args []interface{}
	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		fmt.Fprintf(&query, " AND (LOWER(p.full_name) LIKE $%d OR LOWER(p.email) LIKE $%d OR LOWER(COALESCE(me.course, '')) LIKE $%d)", len(args), len(args), len(args))
	}
	query.WriteString(" ORDER BY p.full_name ASC")

	var listings []models.MenteeListing
	if err := r.db.SelectContext(ctx, &listings, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list mentees: %w", err)
	}
	return listings, nil
}
