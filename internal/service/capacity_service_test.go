package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type fakeCapacityRepo struct {
	profile    *models.MentorProfile
	ensured    int
	drifted    int64
	reconciled int
}

func (f *fakeCapacityRepo) EnsureProfile(ctx context.Context, userID string) (*models.MentorProfile, error) {
	f.ensured++
	if f.profile == nil {
		f.profile = &models.MentorProfile{UserID: userID, IsAvailable: true, MaxMentees: models.DefaultMaxMentees}
	}
	copy := *f.profile
	return &copy, nil
}

func (f *fakeCapacityRepo) SetAvailability(ctx context.Context, userID string, available bool) error {
	f.profile.IsAvailable = available
	return nil
}

func (f *fakeCapacityRepo) SetMaxMentees(ctx context.Context, userID string, max int) error {
	f.profile.MaxMentees = max
	return nil
}

func (f *fakeCapacityRepo) ReconcileOccupancy(ctx context.Context) (int64, error) {
	f.reconciled++
	return f.drifted, nil
}

func TestCapacityGetCreatesDefaultProfile(t *testing.T) {
	svc := NewCapacityService(&fakeCapacityRepo{}, nil, nil, nil)

	capacity, err := svc.Get(context.Background(), "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, 5, capacity.MaxMentees)
	assert.Equal(t, 0, capacity.CurrentMentees)
	assert.True(t, capacity.IsAvailable)
	assert.True(t, capacity.HasCapacity)
}

func TestCapacitySetAvailability(t *testing.T) {
	repo := &fakeCapacityRepo{}
	svc := NewCapacityService(repo, nil, nil, nil)
	off := false

	capacity, err := svc.SetAvailability(context.Background(), "mentor-1", dto.AvailabilityPayload{IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, capacity.IsAvailable)

	_, err = svc.SetAvailability(context.Background(), "mentor-1", dto.AvailabilityPayload{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCapacitySetMaxMenteesBounds(t *testing.T) {
	repo := &fakeCapacityRepo{profile: &models.MentorProfile{UserID: "mentor-1", IsAvailable: true, MaxMentees: 5, CurrentMentees: 4}}
	svc := NewCapacityService(repo, nil, nil, nil)

	for _, invalid := range []int{0, 21, -3} {
		_, err := svc.SetMaxMentees(context.Background(), "mentor-1", dto.CapacityPayload{MaxMentees: invalid})
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, invalid)
	}

	capacity, err := svc.SetMaxMentees(context.Background(), "mentor-1", dto.CapacityPayload{MaxMentees: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, capacity.MaxMentees)
	assert.Equal(t, 4, capacity.CurrentMentees)
	assert.False(t, capacity.HasCapacity)

	capacity, err = svc.SetMaxMentees(context.Background(), "mentor-1", dto.CapacityPayload{MaxMentees: 20})
	require.NoError(t, err)
	assert.True(t, capacity.HasCapacity)
}

func TestCapacityReconcileReportsDrift(t *testing.T) {
	repo := &fakeCapacityRepo{drifted: 2}
	svc := NewCapacityService(repo, nil, nil, nil)

	fixed, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, fixed)
	assert.Equal(t, 1, repo.reconciled)
}
