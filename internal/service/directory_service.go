package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mentorDirectoryRepository interface {
	List(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error)
	GetListing(ctx context.Context, userID string) (*models.MentorListing, error)
}

type relationReader interface {
	RelationsForMentee(ctx context.Context, menteeID string) ([]models.MentorshipRelation, error)
}

// DirectoryService lists mentors decorated with the viewer's relationship to
// each of them. The base listing is cached; relations never are.
type DirectoryService struct {
	mentors   mentorDirectoryRepository
	relations relationReader
	cache     *CacheService
	metrics   *MetricsService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(mentors mentorDirectoryRepository, relations relationReader, cache *CacheService, metrics *MetricsService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DirectoryService{
		mentors:   mentors,
		relations: relations,
		cache:     cache,
		metrics:   metrics,
		ttl:       ttl,
		validator: validate,
		logger:    logger,
	}
}

// ListMentors returns the mentor directory as seen by the viewer.
func (s *DirectoryService) ListMentors(ctx context.Context, viewerID string, viewerRole models.UserRole, query dto.MentorDirectoryQuery) ([]models.MentorDirectoryEntry, error) {
	query.Search = strings.TrimSpace(query.Search)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid directory filter")
	}

	key := cacheKey(cachePrefixDirectory, "mentors", strings.ToLower(query.Search), query.MentorType, query.AvailableOnly)
	listings, hit, err := cached(ctx, s.cache, key, s.ttl, func() ([]models.MentorListing, error) {
		start := time.Now()
		items, err := s.mentors.List(ctx, query.Filter())
		s.metrics.ObserveDBQuery("mentor_directory", time.Since(start))
		return items, err
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	s.logger.Debug("mentor directory listed", zap.Bool("cache_hit", hit), zap.Int("count", len(listings)))

	relations, err := s.relationIndex(ctx, viewerID, viewerRole)
	if err != nil {
		return nil, err
	}

	entries := make([]models.MentorDirectoryEntry, 0, len(listings))
	for _, listing := range listings {
		if listing.UserID == viewerID {
			continue
		}
		entries = append(entries, decorate(listing, relations[listing.UserID], viewerRole))
	}
	return entries, nil
}

// GetMentor returns a single directory entry.
func (s *DirectoryService) GetMentor(ctx context.Context, viewerID string, viewerRole models.UserRole, mentorID string) (*models.MentorDirectoryEntry, error) {
	listing, err := s.mentors.GetListing(ctx, mentorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	relations, err := s.relationIndex(ctx, viewerID, viewerRole)
	if err != nil {
		return nil, err
	}
	entry := decorate(*listing, relations[mentorID], viewerRole)
	if mentorID == viewerID {
		entry.CanRequest = false
	}
	return &entry, nil
}

func (s *DirectoryService) relationIndex(ctx context.Context, viewerID string, viewerRole models.UserRole) (map[string]models.MentorshipRelation, error) {
	index := map[string]models.MentorshipRelation{}
	if viewerRole != models.RoleMentee {
		return index, nil
	}
	relations, err := s.relations.RelationsForMentee(ctx, viewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship relations")
	}
	for _, rel := range relations {
		index[rel.MentorID] = rel
	}
	return index, nil
}

func decorate(listing models.MentorListing, rel models.MentorshipRelation, viewerRole models.UserRole) models.MentorDirectoryEntry {
	entry := models.MentorDirectoryEntry{
		MentorListing:     listing,
		IsConnected:       rel.IsConnected,
		HasPendingRequest: rel.HasPendingRequest,
	}
	entry.CanRequest = viewerRole == models.RoleMentee &&
		listing.CanReceiveRequests() &&
		!rel.IsConnected &&
		!rel.HasPendingRequest
	return entry
}
