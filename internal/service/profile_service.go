package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mentorProfileStore interface {
	EnsureProfile(ctx context.Context, userID string) (*models.MentorProfile, error)
	GetListing(ctx context.Context, userID string) (*models.MentorListing, error)
	UpdateProfile(ctx context.Context, profile *models.MentorProfile) error
}

type menteeProfileStore interface {
	EnsureProfile(ctx context.Context, userID string) (*models.MenteeProfile, error)
	UpdateProfile(ctx context.Context, profile *models.MenteeProfile) error
}

type profileUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateFullName(ctx context.Context, id, fullName string) error
	UpdateAvatarURL(ctx context.Context, id, url string) error
}

type avatarStore interface {
	SaveStream(key string, r io.Reader) (string, error)
	Delete(key string) error
}

// ProfileConfig controls avatar handling.
type ProfileConfig struct {
	PublicBaseURL   string
	AvatarMaxBytes  int64
	AvatarMIMETypes []string
}

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProfileService reads and updates role profiles and avatars.
type ProfileService struct {
	mentors   mentorProfileStore
	mentees   menteeProfileStore
	users     profileUserStore
	avatars   avatarStore
	cache     *CacheService
	cfg       ProfileConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(mentors mentorProfileStore, mentees menteeProfileStore, users profileUserStore, avatars avatarStore, cache *CacheService, cfg ProfileConfig, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.AvatarMaxBytes <= 0 {
		cfg.AvatarMaxBytes = 5 * 1024 * 1024
	}
	if len(cfg.AvatarMIMETypes) == 0 {
		cfg.AvatarMIMETypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &ProfileService{
		mentors:   mentors,
		mentees:   mentees,
		users:     users,
		avatars:   avatars,
		cache:     cache,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// GetMentorProfile returns the mentor's profile, creating the default row on first access.
func (s *ProfileService) GetMentorProfile(ctx context.Context, userID string) (*models.MentorListing, error) {
	if _, err := s.mentors.EnsureProfile(ctx, userID); err != nil {
		return nil, s.profileError(err, "failed to load mentor profile")
	}
	listing, err := s.mentors.GetListing(ctx, userID)
	if err != nil {
		return nil, s.profileError(err, "failed to load mentor profile")
	}
	return listing, nil
}

// UpdateMentorProfile writes the caller's mentor profile.
func (s *ProfileService) UpdateMentorProfile(ctx context.Context, userID string, payload dto.UpdateMentorProfilePayload) (*models.MentorListing, error) {
	payload.FullName = strings.TrimSpace(payload.FullName)
	payload.Expertise = cleanList(payload.Expertise)
	payload.AreasOfGuidance = cleanList(payload.AreasOfGuidance)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentor profile")
	}

	profile, err := s.mentors.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, s.profileError(err, "failed to load mentor profile")
	}
	profile.MentorType = payload.MentorType
	profile.Bio = trimmedOrNil(payload.Bio)
	profile.Experience = trimmedOrNil(payload.Experience)
	profile.Expertise = pq.StringArray(payload.Expertise)
	profile.AreasOfGuidance = pq.StringArray(payload.AreasOfGuidance)
	if payload.IsAvailable != nil {
		profile.IsAvailable = *payload.IsAvailable
	}
	if payload.MaxMentees != nil {
		profile.MaxMentees = *payload.MaxMentees
	}

	if err := s.users.UpdateFullName(ctx, userID, payload.FullName); err != nil {
		return nil, s.profileError(err, "failed to update mentor profile")
	}
	if err := s.mentors.UpdateProfile(ctx, profile); err != nil {
		return nil, s.profileError(err, "failed to update mentor profile")
	}
	s.cache.Invalidate(ctx, cachePrefixDirectory)
	return s.GetMentorProfile(ctx, userID)
}

// GetMenteeProfile returns the mentee's profile, creating the default row on first access.
func (s *ProfileService) GetMenteeProfile(ctx context.Context, userID string) (*models.MenteeListing, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.profileError(err, "failed to load mentee profile")
	}
	profile, err := s.mentees.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, s.profileError(err, "failed to load mentee profile")
	}
	return &models.MenteeListing{
		MenteeProfile: *profile,
		FullName:      user.FullName,
		Email:         user.Email,
		AvatarURL:     user.AvatarURL,
	}, nil
}

// UpdateMenteeProfile writes the caller's mentee profile.
func (s *ProfileService) UpdateMenteeProfile(ctx context.Context, userID string, payload dto.UpdateMenteeProfilePayload) (*models.MenteeListing, error) {
	payload.FullName = strings.TrimSpace(payload.FullName)
	payload.Interests = cleanList(payload.Interests)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentee profile")
	}

	profile, err := s.mentees.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, s.profileError(err, "failed to load mentee profile")
	}
	profile.Course = trimmedOrNil(payload.Course)
	profile.Specialisation = trimmedOrNil(payload.Specialisation)
	profile.Year = payload.Year
	profile.Semester = payload.Semester
	profile.Section = trimmedOrNil(payload.Section)
	profile.Interests = pq.StringArray(payload.Interests)
	profile.CareerGoals = trimmedOrNil(payload.CareerGoals)

	if err := s.users.UpdateFullName(ctx, userID, payload.FullName); err != nil {
		return nil, s.profileError(err, "failed to update mentee profile")
	}
	if err := s.mentees.UpdateProfile(ctx, profile); err != nil {
		return nil, s.profileError(err, "failed to update mentee profile")
	}
	return s.GetMenteeProfile(ctx, userID)
}

// UploadAvatar stores the image under avatars/{user_id}/avatar{ext}, replacing
// any previous avatar, and records its public URL on the profile.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, size int64, file io.Reader) (*dto.AvatarResponse, error) {
	if size > s.cfg.AvatarMaxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("avatar exceeds %d bytes", s.cfg.AvatarMaxBytes))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read avatar")
	}
	head = head[:n]
	if n == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "avatar file is empty")
	}

	mime := mimetype.Detect(head)
	ext, ok := s.allowedExtension(mime)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported avatar type %s", mime.String()))
	}

	limited := io.LimitReader(io.MultiReader(bytes.NewReader(head), file), s.cfg.AvatarMaxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read avatar")
	}
	if int64(len(body)) > s.cfg.AvatarMaxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("avatar exceeds %d bytes", s.cfg.AvatarMaxBytes))
	}

	key := path.Join("avatars", userID, "avatar"+ext)
	if _, err := s.avatars.SaveStream(key, bytes.NewReader(body)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}
	for _, other := range avatarExtensions {
		if other == ext {
			continue
		}
		stale := path.Join("avatars", userID, "avatar"+other)
		if err := s.avatars.Delete(stale); err != nil {
			s.logger.Debug("stale avatar not removed", zap.String("key", stale), zap.Error(err))
		}
	}

	url := fmt.Sprintf("%s/static/%s", s.cfg.PublicBaseURL, key)
	if err := s.users.UpdateAvatarURL(ctx, userID, url); err != nil {
		return nil, s.profileError(err, "failed to save avatar")
	}
	s.cache.Invalidate(ctx, cachePrefixDirectory)
	return &dto.AvatarResponse{AvatarURL: url}, nil
}

func (s *ProfileService) allowedExtension(mime *mimetype.MIME) (string, bool) {
	for _, allowed := range s.cfg.AvatarMIMETypes {
		if mime.Is(allowed) {
			ext, ok := avatarExtensions[allowed]
			return ext, ok
		}
	}
	return "", false
}

func (s *ProfileService) profileError(err error, message string) error {
	if repository.IsNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, "profile not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
