package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type stubDirectory struct {
	listings []models.MentorListing
	filters  []models.MentorFilter
}

func (s *stubDirectory) List(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error) {
	s.filters = append(s.filters, filter)
	return s.listings, nil
}

func (s *stubDirectory) GetListing(ctx context.Context, userID string) (*models.MentorListing, error) {
	for i := range s.listings {
		if s.listings[i].UserID == userID {
			return &s.listings[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubRelations struct {
	relations []models.MentorshipRelation
	calls     int
}

func (s *stubRelations) RelationsForMentee(ctx context.Context, menteeID string) ([]models.MentorshipRelation, error) {
	s.calls++
	return s.relations, nil
}

func mentorListing(id, name string, available bool, max, current int) models.MentorListing {
	return models.MentorListing{
		MentorProfile: models.MentorProfile{UserID: id, IsAvailable: available, MaxMentees: max, CurrentMentees: current},
		FullName:      name,
	}
}

func TestListMentorsDecoratesRelations(t *testing.T) {
	dir := &stubDirectory{listings: []models.MentorListing{
		mentorListing("m-connected", "Asha", true, 5, 1),
		mentorListing("m-pending", "Bala", true, 5, 0),
		mentorListing("m-full", "Chitra", true, 2, 2),
		mentorListing("m-away", "Dev", false, 5, 0),
		mentorListing("m-open", "Esha", true, 5, 0),
	}}
	rel := &stubRelations{relations: []models.MentorshipRelation{
		{MentorID: "m-connected", IsConnected: true},
		{MentorID: "m-pending", HasPendingRequest: true},
	}}
	svc := NewDirectoryService(dir, rel, nil, nil, 0, nil, nil)

	entries, err := svc.ListMentors(context.Background(), testMenteeID, models.RoleMentee, dto.MentorDirectoryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	byID := map[string]models.MentorDirectoryEntry{}
	for _, e := range entries {
		byID[e.UserID] = e
	}
	assert.True(t, byID["m-connected"].IsConnected)
	assert.False(t, byID["m-connected"].CanRequest)
	assert.True(t, byID["m-pending"].HasPendingRequest)
	assert.False(t, byID["m-pending"].CanRequest)
	assert.False(t, byID["m-full"].CanRequest)
	assert.False(t, byID["m-away"].CanRequest)
	assert.True(t, byID["m-open"].CanRequest)
}

func TestListMentorsForStaffSkipsRelations(t *testing.T) {
	dir := &stubDirectory{listings: []models.MentorListing{mentorListing("m-open", "Esha", true, 5, 0)}}
	rel := &stubRelations{}
	svc := NewDirectoryService(dir, rel, nil, nil, 0, nil, nil)

	entries, err := svc.ListMentors(context.Background(), "admin-1", models.RoleAdmin, dto.MentorDirectoryQuery{Search: "  esha ", MentorType: "alumni"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].CanRequest)
	assert.Zero(t, rel.calls)
	require.Len(t, dir.filters, 1)
	assert.Equal(t, "esha", dir.filters[0].Search)
	require.NotNil(t, dir.filters[0].MentorType)
	assert.Equal(t, models.MentorTypeAlumni, *dir.filters[0].MentorType)
}

func TestListMentorsHidesViewer(t *testing.T) {
	dir := &stubDirectory{listings: []models.MentorListing{
		mentorListing(testMentorID, "Self", true, 5, 0),
		mentorListing("m-other", "Other", true, 5, 0),
	}}
	svc := NewDirectoryService(dir, &stubRelations{}, nil, nil, 0, nil, nil)

	entries, err := svc.ListMentors(context.Background(), testMentorID, models.RoleMentor, dto.MentorDirectoryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m-other", entries[0].UserID)
}

func TestListMentorsRejectsUnknownType(t *testing.T) {
	svc := NewDirectoryService(&stubDirectory{}, &stubRelations{}, nil, nil, 0, nil, nil)

	_, err := svc.ListMentors(context.Background(), testMenteeID, models.RoleMentee, dto.MentorDirectoryQuery{MentorType: "guru"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetMentorNotFound(t *testing.T) {
	svc := NewDirectoryService(&stubDirectory{}, &stubRelations{}, nil, nil, 0, nil, nil)

	_, err := svc.GetMentor(context.Background(), testMenteeID, models.RoleMentee, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
