package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type statsReader interface {
	Overview(ctx context.Context) (*models.OverviewStats, error)
	MentorActivity(ctx context.Context, mentorID string, since time.Time) ([]models.RequestActivity, error)
	MenteeConnectionStarts(ctx context.Context, menteeID string) ([]time.Time, error)
	RequestCounts(ctx context.Context, userID string, asMentor bool) (*models.RequestCounts, error)
	QueryCounts(ctx context.Context, userID string, asMentor bool) (total, replied int, err error)
}

type mentorRosterReader interface {
	EnsureProfile(ctx context.Context, userID string) (*models.MentorProfile, error)
	List(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error)
}

type menteeRosterReader interface {
	List(ctx context.Context, search string) ([]models.MenteeListing, error)
}

type openMentorshipCounter interface {
	CountOpenForUser(ctx context.Context, userID string) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stats       statsReader
	Mentors     mentorRosterReader
	Mentees     menteeRosterReader
	Mentorships openMentorshipCounter
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// DashboardService composes staff overviews, rosters and per-user dashboards.
type DashboardService struct {
	stats       statsReader
	mentors     mentorRosterReader
	mentees     menteeRosterReader
	mentorships openMentorshipCounter
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &DashboardService{
		stats:       params.Stats,
		mentors:     params.Mentors,
		mentees:     params.Mentees,
		mentorships: params.Mentorships,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Overview returns platform counters for staff and indicates cache utilisation.
func (s *DashboardService) Overview(ctx context.Context) (*models.OverviewStats, bool, error) {
	stats, hit, err := cached(ctx, s.cache, cacheKey(cachePrefixDashboard, "overview"), s.cfg.CacheTTL, func() (*models.OverviewStats, error) {
		start := time.Now()
		stats, err := s.stats.Overview(ctx)
		s.metrics.ObserveDBQuery("dashboard_overview", time.Since(start))
		if err != nil {
			return nil, err
		}
		stats.GeneratedAt = s.now().UTC()
		return stats, nil
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overview")
	}
	return stats, hit, nil
}

// MentorRoster lists mentors for staff.
func (s *DashboardService) MentorRoster(ctx context.Context, query dto.RosterQuery) ([]models.MentorListing, error) {
	query.Search = strings.TrimSpace(query.Search)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster filter")
	}
	listings, err := s.mentors.List(ctx, models.MentorFilter{Search: query.Search})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	if listings == nil {
		listings = []models.MentorListing{}
	}
	return listings, nil
}

// MenteeRoster lists mentees for staff.
func (s *DashboardService) MenteeRoster(ctx context.Context, query dto.RosterQuery) ([]models.MenteeListing, error) {
	query.Search = strings.TrimSpace(query.Search)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster filter")
	}
	listings, err := s.mentees.List(ctx, query.Search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentees")
	}
	if listings == nil {
		listings = []models.MenteeListing{}
	}
	return listings, nil
}

// Mentor returns the mentor's own dashboard.
func (s *DashboardService) Mentor(ctx context.Context, mentorID string, query dto.ChartQuery) (*models.MentorDashboard, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "filter must be one of day, month, year")
	}
	interval := query.Interval()
	key := cacheKey(cachePrefixDashboard, "mentor", mentorID, interval)
	dashboard, hit, err := cached(ctx, s.cache, key, s.cfg.CacheTTL, func() (*models.MentorDashboard, error) {
		return s.composeMentor(ctx, mentorID, interval)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor dashboard")
	}
	return dashboard, hit, nil
}

// Mentee returns the mentee's own dashboard.
func (s *DashboardService) Mentee(ctx context.Context, menteeID string, query dto.ChartQuery) (*models.MenteeDashboard, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "filter must be one of day, month, year")
	}
	interval := query.Interval()
	key := cacheKey(cachePrefixDashboard, "mentee", menteeID, interval)
	dashboard, hit, err := cached(ctx, s.cache, key, s.cfg.CacheTTL, func() (*models.MenteeDashboard, error) {
		return s.composeMentee(ctx, menteeID, interval)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentee dashboard")
	}
	return dashboard, hit, nil
}

// System returns in-process request, cache and realtime counters.
func (s *DashboardService) System() models.SystemMetrics {
	snapshot := s.metrics.Snapshot()
	snapshot.GeneratedAt = s.now().UTC()
	return snapshot
}

func (s *DashboardService) composeMentor(ctx context.Context, mentorID string, interval models.ChartInterval) (*models.MentorDashboard, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("dashboard_mentor", time.Since(start)) }()

	profile, err := s.mentors.EnsureProfile(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	counts, err := s.stats.RequestCounts(ctx, mentorID, true)
	if err != nil {
		return nil, err
	}
	total, replied, err := s.stats.QueryCounts(ctx, mentorID, true)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	buckets := chartBuckets(interval, now)
	activity, err := s.stats.MentorActivity(ctx, mentorID, buckets[0])
	if err != nil {
		return nil, err
	}

	return &models.MentorDashboard{
		Capacity:        *capacityOf(profile),
		PendingRequests: counts.Pending,
		ActiveMentees:   profile.CurrentMentees,
		OpenQueries:     total - replied,
		Chart:           mentorChart(activity, interval, buckets),
	}, nil
}

func (s *DashboardService) composeMentee(ctx context.Context, menteeID string, interval models.ChartInterval) (*models.MenteeDashboard, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("dashboard_mentee", time.Since(start)) }()

	counts, err := s.stats.RequestCounts(ctx, menteeID, false)
	if err != nil {
		return nil, err
	}
	open, err := s.mentorships.CountOpenForUser(ctx, menteeID)
	if err != nil {
		return nil, err
	}
	_, replied, err := s.stats.QueryCounts(ctx, menteeID, false)
	if err != nil {
		return nil, err
	}
	starts, err := s.stats.MenteeConnectionStarts(ctx, menteeID)
	if err != nil {
		return nil, err
	}

	return &models.MenteeDashboard{
		PendingRequests: counts.Pending,
		ActiveMentors:   open,
		RepliedQueries:  replied,
		Chart:           menteeChart(starts, interval, chartBuckets(interval, s.now().UTC())),
	}, nil
}

// chartBuckets returns the start of each bucket, oldest first, ending with
// the bucket containing now.
func chartBuckets(interval models.ChartInterval, now time.Time) []time.Time {
	points := interval.Points()
	buckets := make([]time.Time, 0, points)
	current := bucketStart(interval, now)
	for i := points - 1; i >= 0; i-- {
		switch interval {
		case models.ChartIntervalDay:
			buckets = append(buckets, current.AddDate(0, 0, -i))
		case models.ChartIntervalMonth:
			buckets = append(buckets, current.AddDate(0, -i, 0))
		case models.ChartIntervalYear:
			buckets = append(buckets, current.AddDate(-i, 0, 0))
		}
	}
	return buckets
}

func bucketStart(interval models.ChartInterval, t time.Time) time.Time {
	t = t.UTC()
	switch interval {
	case models.ChartIntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case models.ChartIntervalYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func bucketLabel(interval models.ChartInterval, t time.Time) string {
	switch interval {
	case models.ChartIntervalMonth:
		return t.Format("Jan")
	case models.ChartIntervalYear:
		return t.Format("2006")
	}
	return t.Format("Jan 2")
}

// mentorChart counts requests received by created_at and decisions by updated_at.
func mentorChart(activity []models.RequestActivity, interval models.ChartInterval, buckets []time.Time) []models.MentorChartPoint {
	points := make([]models.MentorChartPoint, len(buckets))
	index := make(map[time.Time]int, len(buckets))
	for i, b := range buckets {
		points[i].Label = bucketLabel(interval, b)
		index[b] = i
	}
	for _, item := range activity {
		if i, ok := index[bucketStart(interval, item.CreatedAt)]; ok {
			points[i].Received++
		}
		i, ok := index[bucketStart(interval, item.UpdatedAt)]
		if !ok {
			continue
		}
		switch item.Status {
		case models.RequestStatusAccepted:
			points[i].Accepted++
		case models.RequestStatusRejected:
			points[i].Rejected++
		}
	}
	return points
}

// menteeChart reports the cumulative number of mentors connected by the end
// of each bucket.
func menteeChart(starts []time.Time, interval models.ChartInterval, buckets []time.Time) []models.MenteeChartPoint {
	points := make([]models.MenteeChartPoint, len(buckets))
	for i, b := range buckets {
		points[i].Label = bucketLabel(interval, b)
		for _, started := range starts {
			if !bucketStart(interval, started).After(b) {
				points[i].Mentors++
			}
		}
	}
	return points
}
