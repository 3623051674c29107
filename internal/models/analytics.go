package models

import "time"

// ChartInterval selects the bucket size of dashboard charts.
type ChartInterval string

const (
	ChartIntervalDay   ChartInterval = "day"
	ChartIntervalMonth ChartInterval = "month"
	ChartIntervalYear  ChartInterval = "year"
)

// Points returns how many buckets a chart of this interval covers.
func (i ChartInterval) Points() int {
	switch i {
	case ChartIntervalDay:
		return 7
	case ChartIntervalMonth:
		return 6
	case ChartIntervalYear:
		return 3
	}
	return 0
}

// OverviewStats aggregates platform counters for staff dashboards.
type OverviewStats struct {
	TotalMentors     int       `db:"total_mentors" json:"total_mentors"`
	TotalMentees     int       `db:"total_mentees" json:"total_mentees"`
	TotalRequests    int       `db:"total_requests" json:"total_requests"`
	PendingRequests  int       `db:"pending_requests" json:"pending_requests"`
	AcceptedRequests int       `db:"accepted_requests" json:"accepted_requests"`
	RejectedRequests int       `db:"rejected_requests" json:"rejected_requests"`
	TotalQueries     int       `db:"total_queries" json:"total_queries"`
	RepliedQueries   int       `db:"replied_queries" json:"replied_queries"`
	OpenMentorships  int       `db:"open_mentorships" json:"open_mentorships"`
	AvailableMentors int       `db:"available_mentors" json:"available_mentors"`
	GeneratedAt      time.Time `db:"-" json:"generated_at"`
}

// RequestActivity is a raw request row used to build chart buckets.
type RequestActivity struct {
	Status    RequestStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// MentorChartPoint is one bucket of a mentor's request chart.
type MentorChartPoint struct {
	Label    string `json:"label"`
	Received int    `json:"received"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

// MenteeChartPoint is one bucket of a mentee's connection chart.
type MenteeChartPoint struct {
	Label   string `json:"label"`
	Mentors int    `json:"mentors"`
}

// MentorDashboard summarises a mentor's own activity.
type MentorDashboard struct {
	Capacity        MentorCapacity     `json:"capacity"`
	PendingRequests int                `json:"pending_requests"`
	ActiveMentees   int                `json:"active_mentees"`
	OpenQueries     int                `json:"open_queries"`
	Chart           []MentorChartPoint `json:"chart"`
}

// MenteeDashboard summarises a mentee's own activity.
type MenteeDashboard struct {
	PendingRequests int                `json:"pending_requests"`
	ActiveMentors   int                `json:"active_mentors"`
	RepliedQueries  int                `json:"replied_queries"`
	Chart           []MenteeChartPoint `json:"chart"`
}

// RequestCounts is a per-principal status tally.
type RequestCounts struct {
	Pending  int `db:"pending"`
	Accepted int `db:"accepted"`
	Rejected int `db:"rejected"`
}

// SystemMetrics is an in-process snapshot of request, cache and domain counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	RealtimeSubscribers      int       `json:"realtime_subscribers"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
