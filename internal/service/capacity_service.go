package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type capacityRepository interface {
	EnsureProfile(ctx context.Context, userID string) (*models.MentorProfile, error)
	SetAvailability(ctx context.Context, userID string, available bool) error
	SetMaxMentees(ctx context.Context, userID string, max int) error
	ReconcileOccupancy(ctx context.Context) (int64, error)
}

// CapacityService manages a mentor's availability flag and capacity ceiling.
// Occupancy itself is only moved by the request lifecycle.
type CapacityService struct {
	repo      capacityRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCapacityService constructs a CapacityService.
func NewCapacityService(repo capacityRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CapacityService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns the mentor's ledger, creating the default profile if needed.
func (s *CapacityService) Get(ctx context.Context, mentorID string) (*models.MentorCapacity, error) {
	profile, err := s.repo.EnsureProfile(ctx, mentorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load capacity")
	}
	return capacityOf(profile), nil
}

// SetAvailability toggles whether the mentor accepts new requests.
func (s *CapacityService) SetAvailability(ctx context.Context, mentorID string, payload dto.AvailabilityPayload) (*models.MentorCapacity, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if _, err := s.Get(ctx, mentorID); err != nil {
		return nil, err
	}
	if err := s.repo.SetAvailability(ctx, mentorID, *payload.IsAvailable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}
	s.cache.Invalidate(ctx, cachePrefixDirectory)
	return s.Get(ctx, mentorID)
}

// SetMaxMentees changes the ceiling. Lowering it below current occupancy is
// allowed; nobody is evicted but new accepts are blocked.
func (s *CapacityService) SetMaxMentees(ctx context.Context, mentorID string, payload dto.CapacityPayload) (*models.MentorCapacity, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "max mentees must be between 1 and 20")
	}
	before, err := s.Get(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetMaxMentees(ctx, mentorID, payload.MaxMentees); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capacity")
	}
	if payload.MaxMentees < before.CurrentMentees {
		s.logger.Info("mentor capacity lowered below occupancy",
			zap.String("mentor_id", mentorID),
			zap.Int("max_mentees", payload.MaxMentees),
			zap.Int("current_mentees", before.CurrentMentees))
	}
	s.cache.Invalidate(ctx, cachePrefixDirectory)
	return s.Get(ctx, mentorID)
}

func capacityOf(profile *models.MentorProfile) *models.MentorCapacity {
	return &models.MentorCapacity{
		MentorID:       profile.UserID,
		IsAvailable:    profile.IsAvailable,
		MaxMentees:     profile.MaxMentees,
		CurrentMentees: profile.CurrentMentees,
		HasCapacity:    profile.HasCapacity(),
	}
}

// Reconcile recomputes every mentor's occupancy from open mentorships and
// reports how many profiles drifted.
func (s *CapacityService) Reconcile(ctx context.Context) (int64, error) {
	fixed, err := s.repo.ReconcileOccupancy(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile occupancy")
	}
	if fixed > 0 {
		s.logger.Warn("mentor occupancy drift corrected", zap.Int64("profiles", fixed))
		s.cache.Invalidate(ctx, cachePrefixDirectory)
	}
	return fixed, nil
}
