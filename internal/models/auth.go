package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest registers a new mentee or mentor account.
type SignupRequest struct {
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,min=6"`
	FullName  string   `json:"full_name" validate:"required,min=2,max=100"`
	Role      UserRole `json:"role" validate:"required,oneof=mentee mentor"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// LoginRequest holds credentials for authenticating a user. When ExpectedRole
// is set the account must hold that role.
type LoginRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required"`
	ExpectedRole UserRole `json:"role,omitempty" validate:"omitempty,oneof=mentee mentor admin hod dean"`
	IP           string   `json:"-"`
	UserAgent    string   `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url,omitempty"`
}

// NewUserInfo projects a user into its public shape.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, AvatarURL: u.AvatarURL}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
