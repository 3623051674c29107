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
	userColumns = `u.id, u.email, u.password_hash, p.full_name, p.role, p.avatar_url, u.active, u.last_login, u.created_at, u.updated_at`
	userFrom    = `FROM users u JOIN profiles p ON p.user_id = u.id`

	accountRemovedMessage = "account removed"
	roleChangedMessage    = "account no longer holds this role"
)

// UserRepository persists principals together with their profile and role grant.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` ` + userFrom + ` WHERE u.email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` ` + userFrom + ` WHERE u.id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateFullName changes the display name on the profile.
func (r *UserRepository) UpdateFullName(ctx context.Context, id, fullName string) error {
	const query = `UPDATE profiles SET full_name = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, fullName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update full name: %w", err)
	}
	return nil
}

// UpdateAvatarURL stores the public avatar location on the profile.
func (r *UserRepository) UpdateAvatarURL(ctx context.Context, id, url string) error {
	const query = `UPDATE profiles SET avatar_url = $2, updated_at = $3 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, id, url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update avatar url: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := userFrom + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("p.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.ExcludeAdmins {
		conditions = append(conditions, "p.role <> 'admin'")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.email) LIKE $%d OR LOWER(p.full_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortColumns := map[string]string{
		"email":      "u.email",
		"created_at": "u.created_at",
		"full_name":  "p.full_name",
		"role":       "p.role",
	}
	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "u.created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts the principal, its profile, its role grant and the matching
// role profile in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (err error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertUser = `INSERT INTO users (id, email, password_hash, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertUser, user); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("create user: %w", err)
	}

	const insertProfile = `INSERT INTO profiles (user_id, full_name, email, role, avatar_url, created_at, updated_at) VALUES (:id, :full_name, :email, :role, :avatar_url, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertProfile, user); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	const insertRole = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`
	if _, err = tx.ExecContext(ctx, insertRole, user.ID, user.Role); err != nil {
		return fmt.Errorf("create user role: %w", err)
	}

	if err = insertRoleProfile(ctx, tx, user.ID, user.Role); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

// ChangeRole moves a principal to a new role, keeping profiles and user_roles
// in step and swapping the role profile row.
func (r *UserRepository) ChangeRole(ctx context.Context, id string, role models.UserRole) (previous models.UserRole, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin change role transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT role FROM profiles WHERE user_id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &previous, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("lock profile: %w", err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE profiles SET role = $2, updated_at = $3 WHERE user_id = $1`, id, role, now); err != nil {
		return "", fmt.Errorf("update profile role: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE user_roles SET role = $2 WHERE user_id = $1`, id, role); err != nil {
		return "", fmt.Errorf("update user role: %w", err)
	}

	if previous != role {
		if err = settleRelationships(ctx, tx, id, previous, now); err != nil {
			return "", err
		}
		switch previous {
		case models.RoleMentor:
			if _, err = tx.ExecContext(ctx, `DELETE FROM mentor_profiles WHERE user_id = $1`, id); err != nil {
				return "", fmt.Errorf("delete mentor profile: %w", err)
			}
		case models.RoleMentee:
			if _, err = tx.ExecContext(ctx, `DELETE FROM mentee_profiles WHERE user_id = $1`, id); err != nil {
				return "", fmt.Errorf("delete mentee profile: %w", err)
			}
		}
		if err = insertRoleProfile(ctx, tx, id, role); err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit change role: %w", err)
	}
	return previous, nil
}

// settleRelationships closes what a principal leaving a mentor or mentee role
// leaves behind: pending requests are rejected and open mentorships ended,
// releasing the mentor's slot when the mentee side leaves.
func settleRelationships(ctx context.Context, tx *sqlx.Tx, id string, previous models.UserRole, now time.Time) error {
	var column string
	switch previous {
	case models.RoleMentor:
		column = "mentor_id"
	case models.RoleMentee:
		column = "mentee_id"
		const releaseCapacity = `UPDATE mentor_profiles mp SET current_mentees = GREATEST(mp.current_mentees - 1, 0), updated_at = $2
FROM active_mentorships am
WHERE am.mentee_id = $1 AND am.ended_at IS NULL AND mp.user_id = am.mentor_id`
		if _, err := tx.ExecContext(ctx, releaseCapacity, id, now); err != nil {
			return fmt.Errorf("release mentor capacity: %w", err)
		}
	default:
		return nil
	}

	endMentorships := `UPDATE active_mentorships SET ended_at = $2 WHERE ` + column + ` = $1 AND ended_at IS NULL`
	if _, err := tx.ExecContext(ctx, endMentorships, id, now); err != nil {
		return fmt.Errorf("end mentorships: %w", err)
	}
	rejectPending := `UPDATE mentorship_requests SET status = 'rejected', rejection_message = $3, updated_at = $2 WHERE ` + column + ` = $1 AND status = 'pending'`
	if _, err := tx.ExecContext(ctx, rejectPending, id, now, roleChangedMessage); err != nil {
		return fmt.Errorf("reject pending requests: %w", err)
	}
	return nil
}

// Delete removes a principal. Open mentorships are ended with occupancy
// released and pending requests involving the user are rejected first.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const releaseCapacity = `UPDATE mentor_profiles mp SET current_mentees = GREATEST(mp.current_mentees - 1, 0), updated_at = $2
FROM active_mentorships am
WHERE am.mentee_id = $1 AND am.ended_at IS NULL AND mp.user_id = am.mentor_id`
	if _, err = tx.ExecContext(ctx, releaseCapacity, id, now); err != nil {
		return fmt.Errorf("release mentor capacity: %w", err)
	}

	const endMentorships = `UPDATE active_mentorships SET ended_at = $2 WHERE (mentor_id = $1 OR mentee_id = $1) AND ended_at IS NULL`
	if _, err = tx.ExecContext(ctx, endMentorships, id, now); err != nil {
		return fmt.Errorf("end mentorships: %w", err)
	}

	const rejectPending = `UPDATE mentorship_requests SET status = 'rejected', rejection_message = $3, updated_at = $2 WHERE (mentor_id = $1 OR mentee_id = $1) AND status = 'pending'`
	if _, err = tx.ExecContext(ctx, rejectPending, id, now, accountRemovedMessage); err != nil {
		return fmt.Errorf("reject pending requests: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

func insertRoleProfile(ctx context.Context, tx *sqlx.Tx, userID string, role models.UserRole) error {
	switch role {
	case models.RoleMentor:
		if _, err := tx.ExecContext(ctx, `INSERT INTO mentor_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return fmt.Errorf("create mentor profile: %w", err)
		}
	case models.RoleMentee:
		if _, err := tx.ExecContext(ctx, `INSERT INTO mentee_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return fmt.Errorf("create mentee profile: %w", err)
		}
	}
	return nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
