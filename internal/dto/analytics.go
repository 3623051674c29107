package dto

import "github.com/noah-isme/mentorship-api/internal/models"

// ChartQuery selects a chart interval.
type ChartQuery struct {
	Filter string `form:"filter" validate:"omitempty,oneof=day month year"`
}

// Interval returns the requested interval, defaulting to day.
func (q ChartQuery) Interval() models.ChartInterval {
	if q.Filter == "" {
		return models.ChartIntervalDay
	}
	return models.ChartInterval(q.Filter)
}

// RosterQuery filters staff rosters.
type RosterQuery struct {
	Search string `form:"search" validate:"omitempty,max=100"`
}

// MentorDirectoryQuery filters the mentor directory.
type MentorDirectoryQuery struct {
	Search        string `form:"search" validate:"omitempty,max=100"`
	MentorType    string `form:"mentor_type" validate:"omitempty,oneof=senior alumni faculty"`
	AvailableOnly bool   `form:"available_only"`
}

// Filter converts the query into a repository filter.
func (q MentorDirectoryQuery) Filter() models.MentorFilter {
	filter := models.MentorFilter{Search: q.Search, AvailableOnly: q.AvailableOnly}
	if q.MentorType != "" {
		mt := models.MentorType(q.MentorType)
		filter.MentorType = &mt
	}
	return filter
}
